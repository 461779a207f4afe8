package models

import (
	"fmt"
	"log/slog"
	"strings"
)

// Severity is an ordered log level. Lower values are more severe and the
// numbering follows syslog (RFC 5424).
type Severity int

// Severity levels.
const (
	SeverityEmergency Severity = iota
	SeverityAlert
	SeverityCritical
	SeverityError
	SeverityWarning
	SeverityNotice
	SeverityInfo
	SeverityDebug
)

var severityNames = [...]string{
	SeverityEmergency: "emergency",
	SeverityAlert:     "alert",
	SeverityCritical:  "critical",
	SeverityError:     "error",
	SeverityWarning:   "warning",
	SeverityNotice:    "notice",
	SeverityInfo:      "info",
	SeverityDebug:     "debug",
}

var priorityLabels = [...]string{
	SeverityEmergency: "EMERG",
	SeverityAlert:     "ALERT",
	SeverityCritical:  "CRIT",
	SeverityError:     "ERR",
	SeverityWarning:   "WARN",
	SeverityNotice:    "NOTICE",
	SeverityInfo:      "INFO",
	SeverityDebug:     "DEBUG",
}

// Valid reports whether s is one of the eight known levels.
func (s Severity) Valid() bool {
	return s >= SeverityEmergency && s <= SeverityDebug
}

// Normalize maps unknown levels to SeverityInfo.
func (s Severity) Normalize() Severity {
	if !s.Valid() {
		return SeverityInfo
	}
	return s
}

func (s Severity) String() string {
	return severityNames[s.Normalize()]
}

// Priority returns the short upper-case label used in summary lines.
func (s Severity) Priority() string {
	return priorityLabels[s.Normalize()]
}

// SlogLevel maps the severity onto the four slog levels.
func (s Severity) SlogLevel() slog.Level {
	switch s.Normalize() {
	case SeverityEmergency, SeverityAlert, SeverityCritical, SeverityError:
		return slog.LevelError
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// PriorityString returns the priority label for a numeric level.
// Unknown levels get the label for info.
func PriorityString(level int) string {
	return Severity(level).Priority()
}

// ParseSeverity accepts either a level name ("warning") or a priority
// label ("WARN"), case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	v := strings.TrimSpace(s)
	for i := range severityNames {
		if strings.EqualFold(v, severityNames[i]) || strings.EqualFold(v, priorityLabels[i]) {
			return Severity(i), nil
		}
	}
	return SeverityInfo, fmt.Errorf("unknown severity %q", s)
}

// Engine error codes. Codes are bit flags so an embedded engine can pass
// its own numbering through untouched.
const (
	CodeFatal            = 1
	CodeWarning          = 2
	CodeParse            = 4
	CodeNotice           = 8
	CodeCoreError        = 16
	CodeCoreWarning      = 32
	CodeCompileError     = 64
	CodeCompileWarning   = 128
	CodeUserError        = 256
	CodeUserWarning      = 512
	CodeUserNotice       = 1024
	CodeStrict           = 2048
	CodeRecoverableError = 4096
	CodeDeprecated       = 8192
	CodeUserDeprecated   = 16384
)

var codeSeverity = map[int]Severity{
	CodeNotice:           SeverityNotice,
	CodeUserNotice:       SeverityNotice,
	CodeWarning:          SeverityWarning,
	CodeCoreWarning:      SeverityWarning,
	CodeUserWarning:      SeverityWarning,
	CodeFatal:            SeverityError,
	CodeUserError:        SeverityError,
	CodeCoreError:        SeverityError,
	CodeRecoverableError: SeverityError,
	CodeParse:            SeverityError,
	CodeCompileError:     SeverityError,
	CodeCompileWarning:   SeverityError,
	CodeStrict:           SeverityDebug,
	CodeDeprecated:       SeverityDebug,
	CodeUserDeprecated:   SeverityDebug,
}

// SeverityFromCode maps an engine error code to a severity.
// Unknown codes map to SeverityInfo.
func SeverityFromCode(code int) Severity {
	if s, ok := codeSeverity[code]; ok {
		return s
	}
	return SeverityInfo
}
