package models

import "time"

// Occurrence is the persisted record of one ErrorContext.
type Occurrence struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Severity   string    `json:"severity"`
	Code       int       `json:"code,omitempty"`
	Message    string    `json:"message"`
	TypeName   string    `json:"type_name,omitempty"`
	File       string    `json:"file,omitempty"`
	Line       int       `json:"line,omitempty"`
	Method     string    `json:"method,omitempty"`
	URI        string    `json:"uri,omitempty"`
	Host       string    `json:"host,omitempty"`
	Summary    string    `json:"summary"`
	Causes     int       `json:"causes"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewOccurrence flattens ec into a storable record.
func NewOccurrence(ec *ErrorContext, summary string) Occurrence {
	snap := ec.Snapshot()
	o := Occurrence{
		ID:         ec.ID(),
		Kind:       ec.Kind(),
		Severity:   ec.Severity().String(),
		Code:       ec.Code(),
		Message:    ec.Message(),
		TypeName:   ec.TypeName(),
		Method:     snap.Method,
		URI:        snap.URI,
		Host:       snap.Host,
		Summary:    summary,
		Causes:     len(ec.Causes()),
		OccurredAt: ec.OccurredAt(),
	}
	if ec.HasSource() {
		o.File = ec.Source().File
		o.Line = ec.Source().Line
	}
	return o
}
