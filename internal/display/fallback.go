package display

import (
	"github.com/dotcommander/errtrap/internal/models"
)

// FallbackContentType is the content type of the terminal response.
const FallbackContentType = "text/plain; charset=utf-8"

// Fallback is the terminal strategy. It accepts everything and writes a
// fixed body with no interpolation and no I/O.
type Fallback struct{}

// NewFallback returns the terminal strategy.
func NewFallback() *Fallback { return &Fallback{} }

func (*Fallback) Name() string                        { return "fallback" }
func (*Fallback) CanHandle(*models.ErrorContext) bool { return true }
func (*Fallback) terminal()                            {}

func (*Fallback) Render(_ *models.ErrorContext, resp models.Response, _ Next) (models.Response, error) {
	return Static(resp), nil
}

// Static returns the fixed fallback response. Headers already on resp are
// kept so decorators still apply.
func Static(resp models.Response) models.Response {
	return models.Response{
		Status:      errorStatus,
		ContentType: FallbackContentType,
		Headers:     resp.Headers,
		Body:        []byte(GenericMessage),
	}
}
