package lease

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/reliableworkqueue/workqueue/internal/errs"
)

const (
	acquireSQL = `
INSERT INTO leases (name, owner, lease_until_utc, last_granted_utc, version)
VALUES ($1, $2, now() + make_interval(secs => $3), now(), 1)
ON CONFLICT (name) DO UPDATE SET
    owner = $2,
    lease_until_utc = now() + make_interval(secs => $3),
    last_granted_utc = now(),
    version = leases.version + 1
WHERE leases.owner IS NULL OR leases.lease_until_utc <= now()
RETURNING lease_until_utc`

	renewSQL = `
UPDATE leases
SET lease_until_utc = now() + make_interval(secs => $3)
WHERE name = $1 AND owner = $2 AND lease_until_utc > now()
RETURNING lease_until_utc`

	releaseSQL = `
UPDATE leases SET owner = NULL, lease_until_utc = NULL
WHERE name = $1 AND owner = $2`
)

type pgStore struct {
	conn *sql.DB
}

// NewPostgresStore constructs a Store backed directly by database/sql.
func NewPostgresStore(conn *sql.DB) Store {
	return &pgStore{conn: conn}
}

func (s *pgStore) Acquire(ctx context.Context, name, owner string, leaseSeconds int) (*AcquireResult, error) {
	if name == "" || owner == "" {
		return nil, errors.Wrap(errs.ErrValidation, "name and owner are required")
	}
	var until time.Time
	err := s.conn.QueryRowContext(ctx, acquireSQL, name, owner, leaseSeconds).Scan(&until)
	if err == sql.ErrNoRows {
		return &AcquireResult{Acquired: false}, nil
	}
	if err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return &AcquireResult{Acquired: true, LeaseUntil: until}, nil
}

func (s *pgStore) Renew(ctx context.Context, name, owner string, leaseSeconds int) (*AcquireResult, error) {
	var until time.Time
	err := s.conn.QueryRowContext(ctx, renewSQL, name, owner, leaseSeconds).Scan(&until)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(errs.ErrStaleLease, "lease not held or expired")
	}
	if err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return &AcquireResult{Acquired: true, LeaseUntil: until}, nil
}

func (s *pgStore) Release(ctx context.Context, name, owner string) error {
	if _, err := s.conn.ExecContext(ctx, releaseSQL, name, owner); err != nil {
		return errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return nil
}
