// Package handler turns raw errors and panics into an ErrorContext, notifies
// observers and renders a response through the display chain. Handle never
// panics and always returns a response.
package handler

import (
	"context"
	"log/slog"

	"github.com/dotcommander/errtrap/internal/display"
	"github.com/dotcommander/errtrap/internal/format"
	"github.com/dotcommander/errtrap/internal/models"
	"github.com/dotcommander/errtrap/internal/observer"
)

// Handler orchestrates one occurrence: build context, notify, display.
// It is safe for concurrent use once constructed.
type Handler struct {
	registry *observer.Registry
	chain    *display.Chain
	logger   *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for faults inside the handler itself.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// New returns a Handler. A nil registry means no observers.
func New(registry *observer.Registry, chain *display.Chain, opts ...Option) *Handler {
	if registry == nil {
		registry = observer.NewRegistry()
	}
	h := &Handler{registry: registry, chain: chain, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Chain returns the display chain.
func (h *Handler) Chain() *display.Chain { return h.chain }

// Registry returns the observer registry.
func (h *Handler) Registry() *observer.Registry { return h.registry }

// Handle processes raw, which may be any value: an error, a recovered panic
// value, or nil. Observers run on a context detached from ctx's
// cancellation so a disconnected client does not cut them short.
func (h *Handler) Handle(ctx context.Context, raw any, snap models.Snapshot) models.Response {
	return h.handle(ctx, raw, snap, nil)
}

// Recover handles a value obtained from recover(). A nil stack is captured
// from the caller.
func (h *Handler) Recover(ctx context.Context, snap models.Snapshot, recovered any, stack []models.Frame) models.Response {
	if stack == nil {
		stack = CaptureStack(1)
	}
	return h.handle(ctx, recovered, snap, stack)
}

// Guard runs fn and routes a returned error or a panic through Handle.
// handled is false when fn returned nil.
func (h *Handler) Guard(ctx context.Context, snap models.Snapshot, fn func() error) (resp models.Response, handled bool) {
	defer func() {
		if p := recover(); p != nil {
			resp, handled = h.handle(ctx, p, snap, CaptureStack(1)), true
		}
	}()
	if err := fn(); err != nil {
		return h.handle(ctx, err, snap, nil), true
	}
	return models.Response{}, false
}

func (h *Handler) handle(ctx context.Context, raw any, snap models.Snapshot, stack []models.Frame) (resp models.Response) {
	resp = display.Static(models.Response{})
	defer func() {
		if p := recover(); p != nil {
			h.fault("handle", p)
			resp = display.Static(models.Response{})
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	ec := NewContext(raw, snap, stack)
	resp = display.Static(models.Response{}.WithHeader(display.ErrorIDHeader, ec.ID()))

	h.notify(context.WithoutCancel(ctx), ec)
	return h.render(ec, resp)
}

func (h *Handler) notify(ctx context.Context, ec *models.ErrorContext) {
	defer func() {
		if p := recover(); p != nil {
			h.fault("notify", p)
		}
	}()
	h.registry.NotifyAll(ctx, ec)
}

func (h *Handler) render(ec *models.ErrorContext, static models.Response) (resp models.Response) {
	defer func() {
		if p := recover(); p != nil {
			h.fault("display", p)
			resp = static
		}
	}()
	if h.chain == nil {
		return static
	}
	return h.chain.Execute(ec, models.Response{})
}

func (h *Handler) fault(stage string, p any) {
	defer func() { _ = recover() }()
	h.logger.Error("error handler fault", "stage", stage, "panic", format.Inline(p))
}
