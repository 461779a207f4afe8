package httptrap

import (
	"errors"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dotcommander/errtrap/internal/handler"
	"github.com/dotcommander/errtrap/internal/models"
)

// NewRouter returns the demo router: routes that fail in each supported
// way, plus /metrics and /healthz. A nil gatherer serves the default
// Prometheus registry.
func NewRouter(h *handler.Handler, gatherer prometheus.Gatherer, opts ...Option) chi.Router {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(Middleware(h, opts...))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Get("/panic", func(http.ResponseWriter, *http.Request) {
		var counts map[string]int
		counts["hits"]++
	})
	r.Method(http.MethodGet, "/error", Wrap(h, func(http.ResponseWriter, *http.Request) error {
		return &fs.PathError{Op: "write", Path: "/var/lib/errtrap/upload", Err: errors.New("no space left on device")}
	}, opts...))
	r.Method(http.MethodGet, "/compile", Wrap(h, func(http.ResponseWriter, *http.Request) error {
		_, err := template.New("page").Parse("{{ .Title ")
		return &models.CompileError{Message: "page template", File: "page.tmpl", Line: 1, Cause: err}
	}, opts...))
	r.Method(http.MethodGet, "/engine", Wrap(h, func(http.ResponseWriter, *http.Request) error {
		return &models.EngineError{Code: models.CodeWarning, Message: "Undefined variable $user", File: "index.php", Line: 12}
	}, opts...))
	return r
}
