// Package httptrap connects the error handler to net/http: it captures the
// request snapshot, recovers panics and writes the rendered response.
package httptrap

import (
	"net/http"
	"strings"

	"github.com/dotcommander/errtrap/internal/models"
)

// redactedHeaders never reach a snapshot verbatim.
//
//nolint:gochecknoglobals // read-only lookup table
var redactedHeaders = map[string]bool{
	"Authorization":       true,
	"Proxy-Authorization": true,
	"Cookie":              true,
	"Set-Cookie":          true,
}

const redacted = "[redacted]"

// Capture copies the request metadata into a Snapshot. Multi-valued
// headers are joined with ", ". session may be nil.
func Capture(r *http.Request, session map[string]any) models.Snapshot {
	if r == nil {
		return models.Snapshot{Session: session}
	}

	headers := make(map[string]string, len(r.Header))
	for name, values := range r.Header {
		if redactedHeaders[http.CanonicalHeaderKey(name)] {
			headers[name] = redacted
			continue
		}
		headers[name] = strings.Join(values, ", ")
	}

	// Absolute-form targets (proxy requests) are reduced to path and query.
	uri := r.RequestURI
	if r.URL != nil && (uri == "" || r.URL.IsAbs()) {
		uri = r.URL.RequestURI()
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	return models.Snapshot{
		Method:     r.Method,
		URI:        uri,
		Host:       r.Host,
		RemoteAddr: r.RemoteAddr,
		Headers:    headers,
		Session:    session,
		Server: map[string]string{
			"protocol": r.Proto,
			"scheme":   scheme,
		},
	}
}

// Write emits resp. A zero status is written as 500.
func Write(w http.ResponseWriter, resp models.Response) {
	h := w.Header()
	for name, value := range resp.Headers {
		h.Set(name, value)
	}
	if resp.ContentType != "" {
		h.Set("Content-Type", resp.ContentType)
	}
	h.Set("X-Content-Type-Options", "nosniff")

	status := resp.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	w.WriteHeader(status)
	_, _ = w.Write(resp.Body)
}
