package format

import (
	"strconv"
	"strings"

	"github.com/dotcommander/errtrap/internal/models"
)

// DescriptionOptions selects the optional sections of Description.
type DescriptionOptions struct {
	IncludeStackTrace  bool
	IncludeRequestDump bool
	IncludeServerDump  bool
	Session            SessionKeys
}

// Description renders the multi-line report used by the dump display and
// by verbose observers.
func Description(ec *models.ErrorContext, opts DescriptionOptions, lineBreak string) string {
	var b strings.Builder
	line := func(label, value string) {
		b.WriteString(lineBreak)
		b.WriteString(" ")
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(value)
	}

	b.WriteString(headline(ec))

	snap := ec.Snapshot()
	if snap.Host != "" {
		line("HOST", snap.Host)
	}
	if snap.URI != "" {
		line("URL", snap.URI)
	}
	if snap.Method != "" {
		line("Method", snap.Method)
	}
	if ec.HasSource() {
		src := ec.Source()
		line("File", src.File)
		line("Line", strconv.Itoa(src.Line))
	}
	line("Message", ec.Message())

	if stack := ec.Stack(); opts.IncludeStackTrace && len(stack) > 0 {
		line("Stack trace", lineBreak+StackTrace(stack, lineBreak))
	}
	if chain := CauseChain(ec, lineBreak); chain != "" {
		b.WriteString(lineBreak)
		b.WriteString(chain)
	}
	if opts.IncludeRequestDump && len(snap.Headers) > 0 {
		b.WriteString(lineBreak)
		b.WriteString(DumpWith("Request", snap.Headers, lineBreak))
	}
	if opts.IncludeServerDump && len(snap.Server) > 0 {
		b.WriteString(lineBreak)
		b.WriteString(DumpWith("Server", snap.Server, lineBreak))
	}
	if selected := opts.Session.Select(snap.Session); selected != nil {
		b.WriteString(lineBreak)
		b.WriteString(DumpWith("Session", selected, lineBreak))
	}
	return b.String()
}

func headline(ec *models.ErrorContext) string {
	h := string(ec.Kind()) + " [" + ec.Severity().String() + "]"
	if ec.TypeName() != "" {
		h += " " + ec.TypeName()
	}
	if ec.Code() != 0 {
		h += " code=" + strconv.Itoa(ec.Code())
	}
	return h
}
