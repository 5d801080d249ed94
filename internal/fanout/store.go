// Package fanout implements the fanout coordinator (spec §4.8): under a
// per-topic lease, it enumerates (shardKey, workKey) candidates, decides
// which are due against a cursor, and emits a FanoutSlice outbox message
// per due candidate.
package fanout

import (
	"context"
	"time"

	"github.com/reliableworkqueue/workqueue/internal/model"
)

// PolicyStore reads and writes FanoutPolicy rows.
type PolicyStore interface {
	GetPolicy(ctx context.Context, fanoutTopic, workKey string) (*model.FanoutPolicy, error)
	UpsertPolicy(ctx context.Context, fanoutTopic, workKey string, everySeconds, jitterSeconds int) error
}

// CursorStore reads and writes FanoutCursor rows.
type CursorStore interface {
	GetLastCompleted(ctx context.Context, fanoutTopic, workKey, shardKey string) (*time.Time, error)
	MarkCompleted(ctx context.Context, fanoutTopic, workKey, shardKey string, at time.Time) error
}

// ShardEnumerator supplies the candidate shard keys for a (fanoutTopic,
// workKey) pair. The application owns this enumeration (spec §4.8 step 2:
// "supplied by an application-provided enumeration").
type ShardEnumerator func(ctx context.Context) ([]string, error)
