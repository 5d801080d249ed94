package lock

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/reliableworkqueue/workqueue/internal/errs"
	"github.com/reliableworkqueue/workqueue/internal/ids"
)

const (
	// acquireSQL implements spec §4.4: a fresh resource is inserted with
	// fencing_token=0; an existing, free-or-expired resource is updated
	// with fencing_token+1. Contention (held by a live owner) returns no
	// row.
	acquireSQL = `
INSERT INTO distributed_locks (resource_name, owner_token, lease_until, fencing_token, context_json)
VALUES ($1, $2, now() + make_interval(secs => $3), 0, $4)
ON CONFLICT (resource_name) DO UPDATE SET
    owner_token = $2,
    lease_until = now() + make_interval(secs => $3),
    fencing_token = distributed_locks.fencing_token + 1,
    context_json = $4
WHERE distributed_locks.owner_token IS NULL OR distributed_locks.lease_until <= now()
RETURNING fencing_token, lease_until`

	renewSQL = `
UPDATE distributed_locks
SET lease_until = now() + make_interval(secs => $3), fencing_token = fencing_token + 1
WHERE resource_name = $1 AND owner_token = $2 AND lease_until > now()
RETURNING fencing_token, lease_until`

	releaseSQL = `
UPDATE distributed_locks
SET owner_token = NULL, lease_until = NULL
WHERE resource_name = $1 AND owner_token = $2`

	cleanupExpiredSQL = `
UPDATE distributed_locks
SET owner_token = NULL, lease_until = NULL
WHERE lease_until <= now()`
)

type pgStore struct {
	conn *sql.DB
}

// NewPostgresStore constructs a Store backed directly by database/sql.
func NewPostgresStore(conn *sql.DB) Store {
	return &pgStore{conn: conn}
}

func (s *pgStore) Acquire(ctx context.Context, name string, leaseSeconds int, contextJSON string) (*AcquireResult, error) {
	if name == "" {
		return nil, errors.Wrap(errs.ErrValidation, "name is required")
	}
	owner := ids.NewToken()
	var ctxJSON interface{}
	if contextJSON != "" {
		ctxJSON = contextJSON
	}

	var fencing int64
	var leaseUntil time.Time
	err := s.conn.QueryRowContext(ctx, acquireSQL, name, owner, leaseSeconds, ctxJSON).Scan(&fencing, &leaseUntil)
	if err == sql.ErrNoRows {
		return &AcquireResult{Acquired: false}, nil
	}
	if err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return &AcquireResult{Acquired: true, OwnerToken: owner, FencingToken: fencing, LeaseUntil: leaseUntil}, nil
}

func (s *pgStore) Renew(ctx context.Context, name, ownerToken string, leaseSeconds int) (*AcquireResult, error) {
	var fencing int64
	var leaseUntil time.Time
	err := s.conn.QueryRowContext(ctx, renewSQL, name, ownerToken, leaseSeconds).Scan(&fencing, &leaseUntil)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(errs.ErrStaleLease, "lock not held or lease expired")
	}
	if err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return &AcquireResult{Acquired: true, OwnerToken: ownerToken, FencingToken: fencing, LeaseUntil: leaseUntil}, nil
}

func (s *pgStore) Release(ctx context.Context, name, ownerToken string) error {
	if _, err := s.conn.ExecContext(ctx, releaseSQL, name, ownerToken); err != nil {
		return errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return nil
}

func (s *pgStore) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.conn.ExecContext(ctx, cleanupExpiredSQL)
	if err != nil {
		return 0, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return res.RowsAffected()
}
