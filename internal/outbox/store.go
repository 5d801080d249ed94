// Package outbox implements the transactional outbox work queue (spec §4.1):
// atomic emission of messages alongside business writes, and reliable
// single-delivery claim/ack to in-process topic handlers.
package outbox

import (
	"context"
	"time"

	"github.com/reliableworkqueue/workqueue/internal/db"
	"github.com/reliableworkqueue/workqueue/internal/model"
)

// Store is the persistence surface for the outbox work queue.
type Store interface {
	// Enqueue inserts a Ready row inside the caller-supplied transaction
	// (or *sql.DB, for callers outside a transaction). Durability is the
	// caller's commit.
	Enqueue(ctx context.Context, tx db.Execer, topic string, payload []byte, correlationID string, dueTimeUtc *time.Time) (string, error)

	// ClaimDue atomically selects and locks up to batchSize Ready/due rows,
	// ordered by createdAt then id, and marks them InProgress under owner.
	ClaimDue(ctx context.Context, owner string, leaseSeconds int, batchSize int) ([]*model.OutboxMessage, error)

	// MarkDispatched transitions a row to Done. Only succeeds if still
	// owned by owner.
	MarkDispatched(ctx context.Context, id string, owner string) error

	// Reschedule returns a row to Ready with a bumped retryCount, recording
	// lastError and a new dueTimeUtc = now+delay.
	Reschedule(ctx context.Context, id string, owner string, delay time.Duration, lastError string) error

	// Fail transitions a row to the terminal Failed status.
	Fail(ctx context.Context, id string, owner string, lastError string) error

	// Reap reverts any InProgress row whose lockedUntil has expired back to
	// Ready, clearing the owner. Returns the number of rows reaped.
	Reap(ctx context.Context) (int64, error)

	// Cleanup deletes Done rows older than retention. Returns rows deleted.
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}
