package format

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dotcommander/errtrap/internal/models"
)

// MaxSummaryLength is the cap applied to summary lines. Single-line sinks
// such as syslog and error_log reject or split longer entries.
const MaxSummaryLength = 255

// Preprocessor rewrites a message before it is summarized, typically to
// scrub secrets.
type Preprocessor struct {
	pattern     *regexp.Regexp
	replacement string
}

// NewPreprocessor compiles a regexp replacement.
func NewPreprocessor(pattern, replacement string) (Preprocessor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Preprocessor{}, fmt.Errorf("summary preprocessor %q: %w", pattern, err)
	}
	return Preprocessor{pattern: re, replacement: replacement}, nil
}

// Apply runs the replacement. The zero Preprocessor is a no-op.
func (p Preprocessor) Apply(s string) string {
	if p.pattern == nil {
		return s
	}
	return p.pattern.ReplaceAllString(s, p.replacement)
}

// Summary renders "PRIORITY: message" as a single line of at most
// MaxSummaryLength runes.
func Summary(severity models.Severity, message string, preprocessors ...Preprocessor) string {
	for _, p := range preprocessors {
		message = p.Apply(message)
	}
	return SingleLine(severity.Priority()+": "+message, MaxSummaryLength)
}

// SingleLine truncates s to max runes and replaces CR and LF with spaces.
func SingleLine(s string, max int) string {
	if max > 0 && utf8.RuneCountInString(s) > max {
		s = string([]rune(s)[:max])
	}
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
