package display

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/dotcommander/errtrap/internal/format"
	"github.com/dotcommander/errtrap/internal/models"
)

// HTMLContentType is the content type written by the HTML strategy.
const HTMLContentType = "text/html; charset=utf-8"

var pageTemplate = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>Reference: <code>{{.ID}}</code></p>
{{- if .Diagnostic}}
<h2>{{.Message}}</h2>
{{- if .Location}}
<p>in <code>{{.Location}}</code></p>
{{- end}}
<pre>{{.Description}}</pre>
{{- end}}
</body>
</html>
`))

type htmlPage struct {
	Title       string
	ID          string
	Diagnostic  bool
	Message     string
	Location    string
	Description string
}

// HTML renders a formatted page for browser requests.
type HTML struct {
	opts Options
}

// NewHTML returns an HTML strategy.
func NewHTML(opts Options) *HTML { return &HTML{opts: opts} }

func (*HTML) Name() string { return "html" }

// CanHandle accepts requests that list text/html in Accept.
func (*HTML) CanHandle(ec *models.ErrorContext) bool {
	return ec.Snapshot().Accepts("text/html")
}

func (h *HTML) Render(ec *models.ErrorContext, resp models.Response, _ Next) (models.Response, error) {
	page := htmlPage{Title: GenericMessage, ID: ec.ID()}
	if h.opts.DiagnosticMode {
		page.Diagnostic = true
		page.Message = ec.Message()
		if ec.HasSource() {
			page.Location = ec.Source().String()
		}
		page.Description = format.Description(ec, h.opts.description(), "\n")
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		return resp, fmt.Errorf("render html error page: %w", err)
	}

	resp.Status = errorStatus
	resp.ContentType = HTMLContentType
	resp.Body = buf.Bytes()
	return resp, nil
}
