// Package observer notifies side-effect sinks (logs, storage, metrics) of
// every error occurrence. A failing observer never stops the others.
package observer

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dotcommander/errtrap/internal/format"
	"github.com/dotcommander/errtrap/internal/models"
)

// Observer receives every occurrence before it is displayed. Implementations
// must treat the ErrorContext as read-only.
type Observer interface {
	Name() string
	Notify(ctx context.Context, ec *models.ErrorContext) error
}

// Registry holds observers in registration order. Register everything
// before the first NotifyAll; the list is not guarded for concurrent
// mutation.
type Registry struct {
	observers []Observer
	timeout   time.Duration
	faults    io.Writer
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithTimeout bounds each Notify call. Zero disables the bound.
func WithTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.timeout = d }
}

// WithFaultWriter sets where observer faults are reported.
// Faults are written with plain fmt.Fprintf, never through an observer.
func WithFaultWriter(w io.Writer) RegistryOption {
	return func(r *Registry) {
		if w != nil {
			r.faults = w
		}
	}
}

// NewRegistry returns an empty registry reporting faults to os.Stderr.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{faults: os.Stderr}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register appends o. Nil observers are ignored.
func (r *Registry) Register(o Observer) {
	if o == nil {
		return
	}
	r.observers = append(r.observers, o)
}

// Names lists observers in notification order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.observers))
	for i, o := range r.observers {
		out[i] = o.Name()
	}
	return out
}

// Len reports the number of registered observers.
func (r *Registry) Len() int { return len(r.observers) }

// NotifyAll notifies every observer in order and returns how many failed.
// An error, panic or timeout in one observer is reported on the fault
// writer and the walk continues.
func (r *Registry) NotifyAll(ctx context.Context, ec *models.ErrorContext) int {
	failed := 0
	for _, o := range r.observers {
		if err := r.notify(ctx, o, ec); err != nil {
			failed++
			r.fault(o, ec, err)
		}
	}
	return failed
}

func (r *Registry) notify(ctx context.Context, o Observer, ec *models.ErrorContext) error {
	if r.timeout <= 0 {
		return call(ctx, o, ec)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- call(ctx, o, ec) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("timed out after %s: %w", r.timeout, ctx.Err())
	}
}

func call(ctx context.Context, o Observer, ec *models.ErrorContext) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %s", format.Inline(p))
		}
	}()
	return o.Notify(ctx, ec)
}

func (r *Registry) fault(o Observer, ec *models.ErrorContext, err error) {
	defer func() { _ = recover() }()
	_, _ = fmt.Fprintf(r.faults, "errtrap: observer %q failed for error %s: %v\n", o.Name(), ec.ID(), err)
}
