// Package inbox implements inbound-message deduplication and the claim
// work queue over recorded message ids (spec §4.2).
package inbox

import (
	"context"
	"time"

	"github.com/reliableworkqueue/workqueue/internal/model"
)

// RecordResult is the outcome of Record: whether the message id was new or
// a duplicate, and the row's resulting state.
type RecordResult struct {
	IsNew  bool
	Record *model.InboxRecord
}

// Store is the persistence surface for inbox dedup + claim.
type Store interface {
	// Record inserts a first-seen row, or updates lastSeenUtc/attempts on a
	// duplicate. The caller uses IsNew to decide whether to process or
	// suppress.
	Record(ctx context.Context, source, messageID, topic string, payload []byte, hash string, dueTimeUtc *time.Time) (*RecordResult, error)

	// Claim atomically selects-and-locks up to batchSize Seen/Processing
	// rows whose lease has expired, ordered by lastSeenUtc.
	Claim(ctx context.Context, owner string, leaseSeconds int, batchSize int) ([]*model.InboxRecord, error)

	// Ack marks ids Done, clearing ownership. Only rows owned by owner are
	// affected.
	Ack(ctx context.Context, owner string, ids []string) error

	// Abandon returns ids to Seen, clearing ownership, optionally delaying
	// the next eligible claim by delay.
	Abandon(ctx context.Context, owner string, ids []string, delay *time.Duration) error

	// MarkDead transitions ids to the terminal Dead status.
	MarkDead(ctx context.Context, owner string, ids []string, reason string) error

	// AlreadyProcessed returns true iff the (source, messageID) row is Done.
	AlreadyProcessed(ctx context.Context, source, messageID string) (bool, error)

	// Reap reverts expired Processing rows back to Seen.
	Reap(ctx context.Context) (int64, error)

	// Cleanup deletes Done rows older than retention.
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}
