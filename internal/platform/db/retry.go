package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
)

// retryMaxElapsed bounds the total time spent retrying a transient storage
// failure before it is surfaced to the caller.
const retryMaxElapsed = 2 * time.Second

// IsTransient reports whether err looks like a recoverable storage fault:
// connection loss, resource exhaustion, or an operator-initiated shutdown.
// Constraint and data errors are never transient.
func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 = connection exception, class 53 = insufficient
		// resources, 57P03 = cannot_connect_now.
		code := pgErr.Code
		return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "53") || code == "57P03"
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}

// WithRetry runs op, retrying transient storage errors with exponential
// backoff until retryMaxElapsed or context cancellation. Intended for
// idempotent reads; atomic write units are never retried here.
func WithRetry(ctx context.Context, op func(ctx context.Context) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxElapsedTime = retryMaxElapsed

	return backoff.Retry(func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(policy, ctx))
}
