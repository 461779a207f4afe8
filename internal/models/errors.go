package models

import "fmt"

// EngineError is an engine-level runtime error reported with a numeric code
// (see the Code* constants) rather than raised as a Go error value.
type EngineError struct {
	Code    int
	Message string
	File    string
	Line    int
}

func (e *EngineError) Error() string {
	if e.File == "" {
		return e.Message
	}
	return fmt.Sprintf("%s in %s on line %d", e.Message, e.File, e.Line)
}

// Location reports where the error was raised.
func (e *EngineError) Location() (string, int) { return e.File, e.Line }

// CompileError is a compile-time failure (template, config, script). The
// process may be in a degraded state when one is handled.
type CompileError struct {
	Message string
	File    string
	Line    int
	Cause   error
}

func (e *CompileError) Error() string {
	msg := "compile error: " + e.Message
	if e.File != "" {
		msg = fmt.Sprintf("%s (%s:%d)", msg, e.File, e.Line)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *CompileError) Unwrap() error { return e.Cause }

// Location reports where the error was raised.
func (e *CompileError) Location() (string, int) { return e.File, e.Line }

// Locator is implemented by errors that know their source position.
type Locator interface {
	Location() (file string, line int)
}
