// utils/retry.go
package utils

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBRetries bounds how many times a transient database failure is retried.
const DBRetries = 3

// IsTransientDBError reports whether err is worth retrying: lost
// connections, serialization failures and deadlocks. Context cancellation
// and everything else is final.
func IsTransientDBError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"): // connection exception
			return true
		case pgErr.Code == "40001", pgErr.Code == "40P01": // serialization_failure, deadlock_detected
			return true
		case pgErr.Code == "57P01": // admin_shutdown
			return true
		}
		return false
	}

	return pgconn.SafeToRetry(err)
}

// RetryDB runs op, retrying transient failures with exponential backoff.
func RetryDB(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second

	return backoff.Retry(func() error {
		err := op()
		if err != nil && !IsTransientDBError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, DBRetries), ctx))
}
