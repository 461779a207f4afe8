package display

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dotcommander/errtrap/internal/format"
	"github.com/dotcommander/errtrap/internal/models"
)

// JSONContentType is the content type written by the JSON strategy.
const JSONContentType = "application/json; charset=utf-8"

// JSON renders API-style requests.
type JSON struct {
	opts Options
}

// NewJSON returns a JSON strategy.
func NewJSON(opts Options) *JSON { return &JSON{opts: opts} }

func (*JSON) Name() string { return "json" }

// CanHandle accepts requests that ask for JSON or come from XHR.
func (*JSON) CanHandle(ec *models.ErrorContext) bool {
	snap := ec.Snapshot()
	return snap.Accepts("application/json") ||
		strings.EqualFold(snap.Header("X-Requested-With"), "XMLHttpRequest")
}

type jsonEnvelope struct {
	Error jsonError `json:"error"`
}

type jsonError struct {
	ID       string         `json:"id"`
	Message  string         `json:"message"`
	Kind     models.Kind    `json:"kind"`
	Severity string         `json:"severity"`
	Type     string         `json:"type,omitempty"`
	Code     int            `json:"code,omitempty"`
	File     string         `json:"file,omitempty"`
	Line     int            `json:"line,omitempty"`
	Causes   []jsonCause    `json:"causes,omitempty"`
	Stack    []models.Frame `json:"stack,omitempty"`
	Request  *jsonRequest   `json:"request,omitempty"`
	Session  map[string]any `json:"session,omitempty"`
}

type jsonCause struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

type jsonRequest struct {
	Method  string            `json:"method,omitempty"`
	URI     string            `json:"uri,omitempty"`
	Host    string            `json:"host,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

func (j *JSON) Render(ec *models.ErrorContext, resp models.Response, _ Next) (models.Response, error) {
	payload := jsonError{
		ID:       ec.ID(),
		Message:  GenericMessage,
		Kind:     ec.Kind(),
		Severity: ec.Severity().String(),
	}
	if j.opts.DiagnosticMode {
		j.addDiagnostics(&payload, ec)
	}

	body, err := json.Marshal(jsonEnvelope{Error: payload})
	if err != nil {
		return resp, fmt.Errorf("encode json error body: %w", err)
	}

	resp.Status = errorStatus
	resp.ContentType = JSONContentType
	resp.Body = body
	return resp, nil
}

func (j *JSON) addDiagnostics(p *jsonError, ec *models.ErrorContext) {
	p.Message = ec.Message()
	p.Type = ec.TypeName()
	p.Code = ec.Code()
	if ec.HasSource() {
		p.File = ec.Source().File
		p.Line = ec.Source().Line
	}
	for _, c := range ec.Causes() {
		jc := jsonCause{Type: c.TypeName(), Message: c.Message()}
		if c.HasSource() {
			jc.File, jc.Line = c.Source().File, c.Source().Line
		}
		p.Causes = append(p.Causes, jc)
	}
	if j.opts.IncludeStackTrace {
		p.Stack = ec.Stack()
	}
	snap := ec.Snapshot()
	if j.opts.IncludeRequestDump {
		p.Request = &jsonRequest{Method: snap.Method, URI: snap.URI, Host: snap.Host, Headers: snap.Headers}
	}
	p.Session = sessionForJSON(j.opts.IncludeSession, snap.Session)
}

// sessionForJSON selects session keys and replaces values encoding/json
// cannot represent with their dump text.
func sessionForJSON(keys format.SessionKeys, session map[string]any) map[string]any {
	selected := keys.Select(session)
	if len(selected) == 0 {
		return nil
	}
	out := make(map[string]any, len(selected))
	for k, v := range selected {
		if _, err := json.Marshal(v); err != nil {
			out[k] = format.Dump(k, v)
			continue
		}
		out[k] = v
	}
	return out
}
