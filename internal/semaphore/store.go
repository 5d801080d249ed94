// Package semaphore implements the counted semaphore (spec §4.6): up to
// `limit` concurrent holders per name, each admission carrying its own
// monotonic fencing token, with per-client-request idempotent acquire.
package semaphore

import (
	"context"
	"time"
)

// AcquireResult is the outcome of Acquire.
type AcquireResult struct {
	Acquired   bool
	Token      string
	Fencing    int64
	LeaseUntil time.Time
}

// Store is the persistence surface for counted semaphores.
type Store interface {
	// CreateOrUpdate upserts the Semaphore row's limit. Limit must be >=1.
	CreateOrUpdate(ctx context.Context, name string, limit int) error

	// Acquire runs the 5-step algorithm of spec §4.6. clientRequestID may
	// be empty to opt out of request-idempotence.
	Acquire(ctx context.Context, name, ownerID string, ttl time.Duration, clientRequestID string) (*AcquireResult, error)

	// Renew extends an unexpired lease, never shrinking leaseUntilUtc.
	Renew(ctx context.Context, name, token string, ttl time.Duration) (*AcquireResult, error)

	// Release deletes the lease row; reports whether a row was removed.
	Release(ctx context.Context, name, token string) (bool, error)

	// Reap deletes up to maxRows expired leases, scoped to name if
	// non-empty.
	Reap(ctx context.Context, name string, maxRows int) (int64, error)
}
