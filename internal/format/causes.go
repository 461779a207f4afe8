package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dotcommander/errtrap/internal/models"
)

// CauseChain renders the causes of ec outer to inner, each entry nested one
// level below the one before it. Returns "" when there are no causes.
func CauseChain(ec *models.ErrorContext, lineBreak string) string {
	causes := ec.Causes()
	if len(causes) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Causes:")
	b.WriteString(lineBreak)
	for i, c := range causes {
		b.WriteString(strings.Repeat("  ", i))
		fmt.Fprintf(&b, " - #%d %s", i+1, causeLabel(c))
		b.WriteString(lineBreak)
	}
	if ec.CausesTruncated() {
		b.WriteString(strings.Repeat("  ", len(causes)))
		b.WriteString(" - " + recursionToken)
		b.WriteString(lineBreak)
	}
	return b.String()
}

func causeLabel(c *models.ErrorContext) string {
	label := strconv.Quote(c.Message())
	if c.TypeName() != "" {
		label = "(" + c.TypeName() + ") " + label
	}
	if c.HasSource() {
		label += " at " + c.Source().String()
	}
	return label
}

// StackTrace renders frames one per entry, innermost call first.
func StackTrace(frames []models.Frame, lineBreak string) string {
	var b strings.Builder
	for i, f := range frames {
		fmt.Fprintf(&b, "#%d %s", i, f.Function)
		b.WriteString(lineBreak)
		fmt.Fprintf(&b, "    %s:%d", f.File, f.Line)
		b.WriteString(lineBreak)
	}
	return b.String()
}
