// Package output prints CLI results as JSON envelopes.
package output

import (
	"encoding/json"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// SchemaVersion is stamped on every envelope.
const SchemaVersion = "v1"

// Response represents a standard JSON response
type Response struct {
	SchemaVersion string `json:"schema_version"`
	Success       bool   `json:"success"`
	Data          any    `json:"data,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Success wraps a successful response with data
func Success(data any) Response {
	return Response{
		SchemaVersion: SchemaVersion,
		Success:       true,
		Data:          data,
	}
}

// Error wraps an error in a response
func Error(err error) Response {
	return Response{
		SchemaVersion: SchemaVersion,
		Success:       false,
		Error:         err.Error(),
	}
}

// Config selects the destination and layout of printed JSON.
type Config struct {
	Writer io.Writer
	Pretty bool
}

// DefaultConfig writes to stdout. Output is indented when
// ERRTRAP_PRETTY_JSON is "1"/"true" or stdout is a terminal.
func DefaultConfig() Config {
	return Config{Writer: os.Stdout, Pretty: prettyFromEnv(os.Getenv("ERRTRAP_PRETTY_JSON"), os.Stdout)}
}

func prettyFromEnv(v string, f *os.File) bool {
	switch v {
	case "1", "true":
		return true
	case "0", "false":
		return false
	}
	return f != nil && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// PrintWith encodes v according to cfg.
func PrintWith(cfg Config, v any) error {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if cfg.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// Print prints a value as JSON to stdout
func Print(v any) error {
	return PrintWith(DefaultConfig(), v)
}

// PrintSuccess prints a success response
func PrintSuccess(data any) error {
	return Print(Success(data))
}

// PrintError prints an error response
func PrintError(err error) error {
	return Print(Error(err))
}
