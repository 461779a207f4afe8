package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// retryBudget bounds RetryWithBackoff. Writers sit on the error path of a
// request, so a locked database is given up on quickly.
const retryBudget = 2 * time.Second

// RetryWithBackoff runs operation until it succeeds, fails with an error
// other than SQLITE_BUSY/SQLITE_LOCKED, ctx is done, or the budget runs out.
func RetryWithBackoff(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = retryBudget
	b.RandomizationFactor = 0.1

	return backoff.Retry(func() error {
		err := operation()
		if err == nil || isBusy(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(b, ctx))
}

// isBusy reports whether err is a transient lock conflict.
func isBusy(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		// Extended codes keep the primary code in the low byte.
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
