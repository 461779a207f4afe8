package display

import (
	"maps"
	"slices"

	"github.com/dotcommander/errtrap/internal/models"
)

// ErrorIDHeader carries the occurrence id so clients can quote it.
const ErrorIDHeader = "X-Error-Id"

// Headers decorates the response with fixed headers and defers the body to
// the rest of the chain.
type Headers struct {
	headers map[string]string
}

// NewHeaders copies headers; nil is fine.
func NewHeaders(headers map[string]string) *Headers {
	return &Headers{headers: maps.Clone(headers)}
}

func (*Headers) Name() string                        { return "headers" }
func (*Headers) CanHandle(*models.ErrorContext) bool { return true }

func (h *Headers) Render(ec *models.ErrorContext, resp models.Response, next Next) (models.Response, error) {
	for _, k := range slices.Sorted(maps.Keys(h.headers)) {
		resp = resp.WithHeader(k, h.headers[k])
	}
	resp = resp.WithHeader(ErrorIDHeader, ec.ID())
	return next(resp), nil
}
