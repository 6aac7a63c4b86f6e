package persistence

import (
	"strings"
	"time"

	"github.com/alanmeadows/lit-critic/internal/errs"
)

const lockRetryAttempts = 3

// withLockRetry retries fn up to lockRetryAttempts times with linear
// backoff when the driver reports "database is locked"; any other error
// propagates immediately, per spec.md §4.6's auto-save contract.
func withLockRetry(fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= lockRetryAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
	}
	return errs.TransientTransportError("database remained locked after retries", lastErr)
}
