package outbox

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/reliableworkqueue/workqueue/internal/db"
	"github.com/reliableworkqueue/workqueue/internal/errs"
	"github.com/reliableworkqueue/workqueue/internal/ids"
	"github.com/reliableworkqueue/workqueue/internal/model"
)

const (
	insertSQL = `
INSERT INTO outbox_messages (id, topic, payload, correlation_id, due_time_utc, status)
VALUES ($1, $2, $3, $4, $5, 0)`

	// claimDueSQL selects-and-updates in one statement so two concurrent
	// callers never observe, let alone claim, the same row (spec §4.1
	// "Claim correctness").
	claimDueSQL = `
WITH candidates AS (
    SELECT id
    FROM outbox_messages
    WHERE status = 0
      AND (due_time_utc IS NULL OR due_time_utc <= now())
    ORDER BY created_at ASC, id ASC
    LIMIT $1
    FOR UPDATE SKIP LOCKED
)
UPDATE outbox_messages o
SET status = 1, owner_token = $2, locked_until = now() + make_interval(secs => $3)
FROM candidates
WHERE o.id = candidates.id
RETURNING o.id, o.topic, o.payload, o.created_at, o.retry_count, o.correlation_id, o.due_time_utc`

	markDispatchedSQL = `
UPDATE outbox_messages
SET status = 2, owner_token = NULL, locked_until = NULL, processed_at = now()
WHERE id = $1 AND owner_token = $2`

	rescheduleSQL = `
UPDATE outbox_messages
SET status = 0, owner_token = NULL, locked_until = NULL,
    retry_count = retry_count + 1, last_error = $3,
    due_time_utc = now() + make_interval(secs => $4)
WHERE id = $1 AND owner_token = $2`

	failSQL = `
UPDATE outbox_messages
SET status = 3, owner_token = NULL, locked_until = NULL, last_error = $3
WHERE id = $1 AND owner_token = $2`

	reapSQL = `
UPDATE outbox_messages
SET status = 0, owner_token = NULL, locked_until = NULL
WHERE status = 1 AND locked_until <= now()`

	cleanupSQL = `
DELETE FROM outbox_messages
WHERE status = 2 AND processed_at <= now() - make_interval(secs => $1)`
)

type pgStore struct {
	conn *sql.DB
}

// NewPostgresStore constructs a Store backed directly by database/sql over
// a pgx stdlib connection.
func NewPostgresStore(conn *sql.DB) Store {
	return &pgStore{conn: conn}
}

func (s *pgStore) Enqueue(ctx context.Context, tx db.Execer, topic string, payload []byte, correlationID string, dueTimeUtc *time.Time) (string, error) {
	if topic == "" {
		return "", errors.Wrap(errs.ErrValidation, "topic is required")
	}
	id := ids.NewMessageID()
	var corr interface{}
	if correlationID != "" {
		corr = correlationID
	}
	if _, err := tx.ExecContext(ctx, insertSQL, id, topic, payload, corr, dueTimeUtc); err != nil {
		return "", errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return id, nil
}

func (s *pgStore) ClaimDue(ctx context.Context, owner string, leaseSeconds int, batchSize int) ([]*model.OutboxMessage, error) {
	if batchSize <= 0 {
		return nil, nil
	}
	rows, err := s.conn.QueryContext(ctx, claimDueSQL, batchSize, owner, leaseSeconds)
	if err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	defer rows.Close()

	var out []*model.OutboxMessage
	for rows.Next() {
		m := &model.OutboxMessage{Status: model.OutboxInProgress}
		var corr *string
		var due *time.Time
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload, &m.CreatedAt, &m.RetryCount, &corr, &due); err != nil {
			return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
		}
		m.CorrelationID = corr
		m.DueTimeUtc = due
		m.OwnerToken = &owner
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *pgStore) MarkDispatched(ctx context.Context, id string, owner string) error {
	res, err := s.conn.ExecContext(ctx, markDispatchedSQL, id, owner)
	if err != nil {
		return errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return requireOneRow(res, "outbox message not owned or already terminal")
}

func (s *pgStore) Reschedule(ctx context.Context, id string, owner string, delay time.Duration, lastError string) error {
	res, err := s.conn.ExecContext(ctx, rescheduleSQL, id, owner, lastError, int64(delay.Seconds()))
	if err != nil {
		return errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return requireOneRow(res, "outbox message not owned")
}

func (s *pgStore) Fail(ctx context.Context, id string, owner string, lastError string) error {
	res, err := s.conn.ExecContext(ctx, failSQL, id, owner, lastError)
	if err != nil {
		return errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return requireOneRow(res, "outbox message not owned")
}

func (s *pgStore) Reap(ctx context.Context) (int64, error) {
	res, err := s.conn.ExecContext(ctx, reapSQL)
	if err != nil {
		return 0, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return res.RowsAffected()
}

func (s *pgStore) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := s.conn.ExecContext(ctx, cleanupSQL, int64(retention.Seconds()))
	if err != nil {
		return 0, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return res.RowsAffected()
}

func requireOneRow(res sql.Result, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	if n == 0 {
		return errors.Wrap(errs.ErrStaleLease, msg)
	}
	return nil
}
