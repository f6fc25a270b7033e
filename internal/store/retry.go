package store

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/iksnae/claude-memory/internal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// isBusy reports whether err is SQLite BUSY or LOCKED, including the
// extended codes derived from them.
func isBusy(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

func (s *Store) retryPolicy(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.InitialInterval
	b.MaxInterval = s.opts.MaxInterval
	b.MaxElapsedTime = s.opts.MaxElapsed
	return backoff.WithContext(b, ctx)
}

// retry runs op until it succeeds, fails with a non-busy error, or the
// retry ceiling passes. Exhausting the ceiling on busy errors yields a
// *internal.StorageTimeoutError.
func (s *Store) retry(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	attempts := 0

	err := backoff.Retry(func() error {
		attempts++
		err := fn()
		if err == nil {
			return nil
		}
		if isBusy(err) {
			internal.Logger().Debug("store busy, retrying", "op", op, "attempt", attempts, "err", err)
			return err
		}
		return backoff.Permanent(err)
	}, s.retryPolicy(ctx))

	if err != nil && isBusy(err) {
		internal.Logger().Warn("store busy past retry ceiling", "op", op, "attempts", attempts)
		return &internal.StorageTimeoutError{Op: op, Elapsed: time.Since(start), Err: err}
	}
	return err
}
