package display

import (
	"github.com/dotcommander/errtrap/internal/format"
	"github.com/dotcommander/errtrap/internal/models"
)

// Dump writes the raw plain-text diagnostic report. It only applies in
// diagnostic mode.
type Dump struct {
	opts Options
}

// NewDump returns a Dump strategy.
func NewDump(opts Options) *Dump { return &Dump{opts: opts} }

func (*Dump) Name() string { return "dump" }

func (d *Dump) CanHandle(*models.ErrorContext) bool { return d.opts.DiagnosticMode }

func (d *Dump) Render(ec *models.ErrorContext, resp models.Response, _ Next) (models.Response, error) {
	resp.Status = errorStatus
	resp.ContentType = FallbackContentType
	resp.Body = []byte(format.Description(ec, d.opts.description(), "\n"))
	return resp, nil
}
