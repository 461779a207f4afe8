package handler

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"

	"github.com/dotcommander/errtrap/internal/format"
	"github.com/dotcommander/errtrap/internal/models"
)

// MaxCauseDepth bounds the cause chain built from Unwrap.
const MaxCauseDepth = 32

type classification struct {
	kind     models.Kind
	severity models.Severity
	code     int
	message  string
	typeName string
	source   *models.Source
}

// NewContext builds the ErrorContext for raw. It never panics: a raw value
// that cannot be inspected is recorded as a runtime error at info level.
func NewContext(raw any, snap models.Snapshot, stack []models.Frame) *models.ErrorContext {
	c := classify(raw)
	if c.source == nil {
		if src, ok := callSite(stack); ok {
			c.source = &src
		}
	}

	causes, truncated := causeChain(raw)
	return models.NewErrorContext(models.Params{
		Kind:      c.kind,
		Severity:  c.severity,
		Code:      c.code,
		Message:   c.message,
		TypeName:  c.typeName,
		Source:    c.source,
		Stack:     stack,
		Causes:    causes,
		Truncated: truncated,
		Snapshot:  snap,
	})
}

func classify(raw any) (c classification) {
	defer func() {
		if p := recover(); p != nil {
			c = classification{
				kind:     models.KindRuntimeError,
				severity: models.SeverityInfo,
				message:  fmt.Sprintf("unprintable %T value: %s", raw, format.Inline(p)),
				typeName: typeName(raw),
			}
		}
	}()

	c.typeName = typeName(raw)
	switch v := raw.(type) {
	case nil:
		c.kind, c.severity, c.message = models.KindRuntimeError, models.SeverityInfo, "unknown error"
	case *models.CompileError:
		c.kind, c.severity, c.message = models.KindCompileError, models.SeverityCritical, v.Message
	case *models.EngineError:
		c.kind, c.severity, c.message = models.KindRuntimeError, models.SeverityFromCode(v.Code), v.Message
		c.code = v.Code
	case runtime.Error:
		c.kind, c.severity, c.message = models.KindRuntimeError, models.SeverityCritical, v.Error()
	case error:
		c.kind, c.severity, c.message = models.KindUncaughtThrowable, models.SeverityError, v.Error()
	default:
		c.kind, c.severity, c.message = models.KindRuntimeError, models.SeverityInfo, format.Inline(v)
	}

	if loc, ok := raw.(models.Locator); ok {
		if file, line := loc.Location(); file != "" {
			c.source = &models.Source{File: file, Line: line}
		}
	}
	return c
}

func typeName(raw any) string {
	if raw == nil {
		return ""
	}
	return fmt.Sprintf("%T", raw)
}

// causeChain follows Unwrap from raw, outer to inner. It stops at the first
// error already seen or after MaxCauseDepth causes and reports truncation.
func causeChain(raw any) (causes []*models.ErrorContext, truncated bool) {
	err, ok := raw.(error)
	if !ok || err == nil {
		return nil, false
	}
	defer func() {
		if recover() != nil {
			truncated = true
		}
	}()

	seen := map[any]struct{}{}
	remember(seen, err)
	for cur := unwrapOnce(err); cur != nil; cur = unwrapOnce(cur) {
		if isComparable(cur) {
			if _, dup := seen[cur]; dup {
				return causes, true
			}
		}
		if len(causes) >= MaxCauseDepth {
			return causes, true
		}
		remember(seen, cur)

		c := classify(cur)
		causes = append(causes, models.NewErrorContext(models.Params{
			Kind:     c.kind,
			Severity: c.severity,
			Code:     c.code,
			Message:  c.message,
			TypeName: c.typeName,
			Source:   c.source,
		}))
	}
	return causes, false
}

func unwrapOnce(err error) error {
	if next := errors.Unwrap(err); next != nil {
		return next
	}
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range multi.Unwrap() {
			if e != nil {
				return e
			}
		}
	}
	return nil
}

func isComparable(err error) bool {
	return reflect.TypeOf(err).Comparable()
}

func remember(seen map[any]struct{}, err error) {
	if isComparable(err) {
		seen[err] = struct{}{}
	}
}
