// Package idempotency gates side-effecting operations by business key
// (spec §4.3): ∅ → InProgress → {Completed | Failed}, with Failed keys
// retryable.
package idempotency

import (
	"context"
	"time"

	"github.com/reliableworkqueue/workqueue/internal/model"
)

// Store is the persistence surface for idempotency keys.
type Store interface {
	// TryBegin attempts to claim key for owner under lockDuration. Returns
	// true if the caller may proceed (fresh key, stale lock, Failed retry,
	// or re-entrant same-owner lock); false if another owner holds an
	// unexpired lock or the key is already Completed.
	TryBegin(ctx context.Context, key, owner string, lockDuration time.Duration) (bool, error)

	// Complete marks key Completed and clears the lease. Idempotent.
	Complete(ctx context.Context, key string) error

	// Fail marks key Failed, clears the lease, and increments failureCount.
	// Idempotent.
	Fail(ctx context.Context, key string) error

	// Get returns the current record, or errs.ErrNotFound.
	Get(ctx context.Context, key string) (*model.IdempotencyRecord, error)
}
