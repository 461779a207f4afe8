package display

import (
	"net/http"

	"github.com/dotcommander/errtrap/internal/format"
)

// GenericMessage is shown to clients whenever diagnostic mode is off.
const GenericMessage = "An error occurred"

// Options are the per-strategy settings fixed at construction.
type Options struct {
	DiagnosticMode     bool
	IncludeStackTrace  bool
	IncludeRequestDump bool
	IncludeServerDump  bool
	IncludeSession     format.SessionKeys
}

func (o Options) description() format.DescriptionOptions {
	return format.DescriptionOptions{
		IncludeStackTrace:  o.IncludeStackTrace,
		IncludeRequestDump: o.IncludeRequestDump,
		IncludeServerDump:  o.IncludeServerDump,
		Session:            o.IncludeSession,
	}
}

// errorStatus is the status classification used for every rendered error.
const errorStatus = http.StatusInternalServerError
