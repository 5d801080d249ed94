package fanout

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/reliableworkqueue/workqueue/internal/errs"
	"github.com/reliableworkqueue/workqueue/internal/model"
)

const (
	getPolicySQL = `
SELECT default_every_secs, jitter_seconds FROM fanout_policies
WHERE fanout_topic = $1 AND work_key = $2`

	upsertPolicySQL = `
INSERT INTO fanout_policies (fanout_topic, work_key, default_every_secs, jitter_seconds)
VALUES ($1, $2, $3, $4)
ON CONFLICT (fanout_topic, work_key) DO UPDATE SET
    default_every_secs = $3, jitter_seconds = $4`

	getCursorSQL = `
SELECT last_completed_at FROM fanout_cursors
WHERE fanout_topic = $1 AND work_key = $2 AND shard_key = $3`

	markCompletedSQL = `
INSERT INTO fanout_cursors (fanout_topic, work_key, shard_key, last_completed_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (fanout_topic, work_key, shard_key) DO UPDATE SET last_completed_at = $4`
)

type pgPolicyStore struct {
	conn *sql.DB
}

// NewPostgresPolicyStore constructs a PolicyStore backed by database/sql.
func NewPostgresPolicyStore(conn *sql.DB) PolicyStore {
	return &pgPolicyStore{conn: conn}
}

func (s *pgPolicyStore) GetPolicy(ctx context.Context, fanoutTopic, workKey string) (*model.FanoutPolicy, error) {
	p := &model.FanoutPolicy{FanoutTopic: fanoutTopic, WorkKey: workKey}
	err := s.conn.QueryRowContext(ctx, getPolicySQL, fanoutTopic, workKey).Scan(&p.DefaultEverySecs, &p.JitterSeconds)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errs.ErrNotFound, "fanout policy (%s, %s) not found", fanoutTopic, workKey)
	}
	if err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return p, nil
}

func (s *pgPolicyStore) UpsertPolicy(ctx context.Context, fanoutTopic, workKey string, everySeconds, jitterSeconds int) error {
	if _, err := s.conn.ExecContext(ctx, upsertPolicySQL, fanoutTopic, workKey, everySeconds, jitterSeconds); err != nil {
		return errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return nil
}

type pgCursorStore struct {
	conn *sql.DB
}

// NewPostgresCursorStore constructs a CursorStore backed by database/sql.
func NewPostgresCursorStore(conn *sql.DB) CursorStore {
	return &pgCursorStore{conn: conn}
}

func (s *pgCursorStore) GetLastCompleted(ctx context.Context, fanoutTopic, workKey, shardKey string) (*time.Time, error) {
	var t sql.NullTime
	err := s.conn.QueryRowContext(ctx, getCursorSQL, fanoutTopic, workKey, shardKey).Scan(&t)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	if !t.Valid {
		return nil, nil
	}
	return &t.Time, nil
}

func (s *pgCursorStore) MarkCompleted(ctx context.Context, fanoutTopic, workKey, shardKey string, at time.Time) error {
	if _, err := s.conn.ExecContext(ctx, markCompletedSQL, fanoutTopic, workKey, shardKey, at); err != nil {
		return errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return nil
}
