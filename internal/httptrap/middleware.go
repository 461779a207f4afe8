package httptrap

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dotcommander/errtrap/internal/handler"
	"github.com/dotcommander/errtrap/internal/models"
)

// SessionFunc extracts session values for the snapshot.
type SessionFunc func(r *http.Request) map[string]any

// Option configures the middleware.
type Option func(*config)

type config struct {
	session SessionFunc
}

// WithSession sets the session extractor.
func WithSession(fn SessionFunc) Option {
	return func(c *config) { c.session = fn }
}

func newConfig(opts []Option) config {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c config) capture(r *http.Request) models.Snapshot {
	var session map[string]any
	if c.session != nil {
		session = c.session(r)
	}
	return Capture(r, session)
}

// Middleware recovers panics from next and answers with the handler's
// response. http.ErrAbortHandler is re-panicked. Nothing is written when
// the client is gone or next already started the response.
func Middleware(h *handler.Handler, opts ...Option) func(http.Handler) http.Handler {
	cfg := newConfig(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}
				resp := h.Recover(r.Context(), cfg.capture(r), p, handler.CaptureStack(1))
				respond(r.Context(), ww, resp)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// HandlerFunc is an http handler that may fail.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Wrap adapts fn, routing a returned error or a panic through h.
func Wrap(h *handler.Handler, fn HandlerFunc, opts ...Option) http.Handler {
	cfg := newConfig(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		resp, handled := h.Guard(r.Context(), cfg.capture(r), func() error { return fn(ww, r) })
		if handled {
			respond(r.Context(), ww, resp)
		}
	})
}

func respond(ctx context.Context, ww middleware.WrapResponseWriter, resp models.Response) {
	if ctx.Err() != nil || ww.Status() != 0 || ww.BytesWritten() > 0 {
		return
	}
	Write(ww, resp)
}
