package idempotency

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/reliableworkqueue/workqueue/internal/errs"
	"github.com/reliableworkqueue/workqueue/internal/model"
)

const (
	// tryBeginSQL implements the single-statement read-modify-write from
	// spec §4.3: a fresh key always succeeds via the INSERT branch; an
	// existing key only transitions to InProgress if it is not Completed
	// and its lock is either absent, expired, or already held by owner.
	tryBeginSQL = `
INSERT INTO idempotency_records (key, status, locked_until, locked_by, created_at, updated_at)
VALUES ($1, 1, now() + make_interval(secs => $3), $2, now(), now())
ON CONFLICT (key) DO UPDATE SET
    status = 1,
    locked_until = now() + make_interval(secs => $3),
    locked_by = $2,
    updated_at = now()
WHERE idempotency_records.status <> 2
  AND (idempotency_records.locked_until IS NULL
       OR idempotency_records.locked_until <= now()
       OR idempotency_records.locked_by = $2)
RETURNING key`

	completeSQL = `
UPDATE idempotency_records
SET status = 2, locked_until = NULL, locked_by = NULL, completed_at = now(), updated_at = now()
WHERE key = $1`

	failSQL = `
UPDATE idempotency_records
SET status = 0, locked_until = NULL, locked_by = NULL, failure_count = failure_count + 1, updated_at = now()
WHERE key = $1`

	getSQL = `
SELECT key, status, locked_until, locked_by, failure_count, created_at, updated_at, completed_at
FROM idempotency_records WHERE key = $1`
)

type pgStore struct {
	conn *sql.DB
}

// NewPostgresStore constructs a Store backed directly by database/sql.
func NewPostgresStore(conn *sql.DB) Store {
	return &pgStore{conn: conn}
}

func (s *pgStore) TryBegin(ctx context.Context, key, owner string, lockDuration time.Duration) (bool, error) {
	if key == "" || owner == "" {
		return false, errors.Wrap(errs.ErrValidation, "key and owner are required")
	}
	var returned string
	err := s.conn.QueryRowContext(ctx, tryBeginSQL, key, owner, int64(lockDuration.Seconds())).Scan(&returned)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return true, nil
}

func (s *pgStore) Complete(ctx context.Context, key string) error {
	if _, err := s.conn.ExecContext(ctx, completeSQL, key); err != nil {
		return errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return nil
}

func (s *pgStore) Fail(ctx context.Context, key string) error {
	if _, err := s.conn.ExecContext(ctx, failSQL, key); err != nil {
		return errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return nil
}

func (s *pgStore) Get(ctx context.Context, key string) (*model.IdempotencyRecord, error) {
	var r model.IdempotencyRecord
	var status int
	err := s.conn.QueryRowContext(ctx, getSQL, key).Scan(
		&r.Key, &status, &r.LockedUntil, &r.LockedBy, &r.FailureCount, &r.CreatedAt, &r.UpdatedAt, &r.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	r.Status = model.IdempotencyStatus(status)
	return &r, nil
}
