package fanout

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/reliableworkqueue/workqueue/internal/db"
	"github.com/reliableworkqueue/workqueue/internal/ids"
	"github.com/reliableworkqueue/workqueue/internal/model"
	"github.com/reliableworkqueue/workqueue/internal/outbox"
)

// Coordinator implements getDueSlices and emission into the outbox
// (spec §4.8).
type Coordinator struct {
	policies PolicyStore
	cursors  CursorStore
	outbox   outbox.Store
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(policies PolicyStore, cursors CursorStore, outboxStore outbox.Store) *Coordinator {
	return &Coordinator{policies: policies, cursors: cursors, outbox: outboxStore}
}

// GetDueSlices implements spec §4.8 steps 1-4 over a caller-supplied shard
// candidate list.
func (c *Coordinator) GetDueSlices(ctx context.Context, fanoutTopic, workKey string, shardKeys []string, now time.Time) ([]*model.FanoutSlice, error) {
	policy, err := c.policies.GetPolicy(ctx, fanoutTopic, workKey)
	if err != nil {
		return nil, err
	}

	var due []*model.FanoutSlice
	for _, shardKey := range shardKeys {
		lastCompleted, err := c.cursors.GetLastCompleted(ctx, fanoutTopic, workKey, shardKey)
		if err != nil {
			return nil, err
		}

		if !c.isDue(shardKey, workKey, policy, lastCompleted, now) {
			continue
		}

		due = append(due, &model.FanoutSlice{
			FanoutTopic:   fanoutTopic,
			ShardKey:      shardKey,
			WorkKey:       workKey,
			WindowStart:   lastCompleted,
			CorrelationID: ids.NewToken(),
		})
	}
	return due, nil
}

func (c *Coordinator) isDue(shardKey, workKey string, policy *model.FanoutPolicy, lastCompleted *time.Time, now time.Time) bool {
	if lastCompleted == nil {
		return true
	}
	every := time.Duration(policy.DefaultEverySecs) * time.Second
	flooredWindow := now.Unix() / int64(policy.DefaultEverySecs)
	jitter := time.Duration(deterministicJitter(shardKey, workKey, flooredWindow, policy.JitterSeconds)) * time.Second
	return now.Sub(*lastCompleted) >= every+jitter
}

// EmitDueSlices enumerates shards via enumerate, computes the due set, and
// enqueues each as an outbox message on topic fanoutTopic.
func (c *Coordinator) EmitDueSlices(ctx context.Context, tx db.Execer, fanoutTopic, workKey string, enumerate ShardEnumerator, now time.Time) (int, error) {
	shardKeys, err := enumerate(ctx)
	if err != nil {
		return 0, err
	}
	slices, err := c.GetDueSlices(ctx, fanoutTopic, workKey, shardKeys, now)
	if err != nil {
		return 0, err
	}
	for _, slice := range slices {
		payload, err := json.Marshal(slice)
		if err != nil {
			return 0, errors.WithStack(err)
		}
		if _, err := c.outbox.Enqueue(ctx, tx, fanoutTopic, payload, slice.CorrelationID, nil); err != nil {
			return 0, err
		}
	}
	return len(slices), nil
}
