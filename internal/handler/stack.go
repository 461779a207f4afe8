package handler

import (
	"reflect"
	"runtime"
	"strings"

	"github.com/dotcommander/errtrap/internal/models"
)

// maxStackDepth bounds CaptureStack.
const maxStackDepth = 64

//nolint:gochecknoglobals // resolved once from the package's own type
var handlerPkg = reflect.TypeOf(Handler{}).PkgPath()

// CaptureStack returns the caller's stack, skipping skip extra frames
// (0 = the function calling CaptureStack). When called from a deferred
// recover, the panic machinery up to runtime.gopanic is dropped.
func CaptureStack(skip int) []models.Frame {
	pc := make([]uintptr, maxStackDepth)
	// +2 skips runtime.Callers and CaptureStack itself.
	n := runtime.Callers(skip+2, pc)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pc[:n])
	out := make([]models.Frame, 0, n)
	for {
		fr, more := frames.Next()
		out = append(out, models.Frame{Function: fr.Function, File: fr.File, Line: fr.Line})
		if !more {
			break
		}
	}
	return trimPanicFrames(out)
}

func trimPanicFrames(frames []models.Frame) []models.Frame {
	for i, f := range frames {
		if f.Function == "runtime.gopanic" {
			return frames[i+1:]
		}
	}
	return frames
}

// callSite picks the first frame outside the runtime and the Handler's own
// recovery methods.
func callSite(frames []models.Frame) (models.Source, bool) {
	for _, f := range frames {
		if f.File == "" || strings.HasPrefix(f.Function, "runtime.") || internalFrame(f.Function) {
			continue
		}
		return models.Source{File: f.File, Line: f.Line}, true
	}
	return models.Source{}, false
}

func internalFrame(function string) bool {
	return strings.HasPrefix(function, handlerPkg+".(*Handler).") || function == handlerPkg+".CaptureStack"
}
