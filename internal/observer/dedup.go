package observer

import (
	"context"

	"github.com/dotcommander/errtrap/internal/models"
	"github.com/dotcommander/errtrap/pkg/dedup"
)

// Dedup forwards only the first occurrence of a fingerprint per window to
// the wrapped observer. Repeats inside the window are dropped silently. A
// delivery that fails or panics is forgotten so the next occurrence is
// retried.
type Dedup struct {
	inner  Observer
	window *dedup.Window
}

// NewDedup wraps inner. The window may be shared between wrappers; each
// wrapper uses its inner observer's name as the scope.
func NewDedup(inner Observer, window *dedup.Window) *Dedup {
	return &Dedup{inner: inner, window: window}
}

func (d *Dedup) Name() string { return d.inner.Name() }

func (d *Dedup) Notify(ctx context.Context, ec *models.ErrorContext) error {
	scope, key := d.inner.Name(), ec.Fingerprint()
	if hit := d.window.Observe(scope, key); !hit.First {
		return nil
	}
	delivered := false
	defer func() {
		if !delivered {
			d.window.Forget(scope, key)
		}
	}()
	if err := d.inner.Notify(ctx, ec); err != nil {
		return err
	}
	delivered = true
	return nil
}
