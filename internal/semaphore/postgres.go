package semaphore

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/reliableworkqueue/workqueue/internal/errs"
	"github.com/reliableworkqueue/workqueue/internal/ids"
)

const (
	upsertSemaphoreSQL = `
INSERT INTO semaphores (name, "limit", next_fencing_counter)
VALUES ($1, $2, 1)
ON CONFLICT (name) DO UPDATE SET "limit" = $2`

	lockSemaphoreSQL = `SELECT "limit", next_fencing_counter FROM semaphores WHERE name = $1 FOR UPDATE`

	findIdempotentLeaseSQL = `
SELECT token, fencing, lease_until_utc FROM semaphore_leases
WHERE name = $1 AND client_request_id = $2 AND lease_until_utc > now()`

	reapExpiredForNameSQL = `
DELETE FROM semaphore_leases
WHERE ctid IN (
    SELECT ctid FROM semaphore_leases WHERE name = $1 AND lease_until_utc <= now() LIMIT 10
)`

	countUnexpiredSQL = `SELECT count(*) FROM semaphore_leases WHERE name = $1 AND lease_until_utc > now()`

	bumpFencingSQL = `UPDATE semaphores SET next_fencing_counter = next_fencing_counter + 1 WHERE name = $1`

	insertLeaseSQL = `
INSERT INTO semaphore_leases (name, token, fencing, owner_id, lease_until_utc, created_utc, client_request_id)
VALUES ($1, $2, $3, $4, now() + make_interval(secs => $5), now(), $6)`

	renewSQL = `
UPDATE semaphore_leases
SET lease_until_utc = GREATEST(lease_until_utc, now() + make_interval(secs => $3)), renewed_utc = now()
WHERE name = $1 AND token = $2 AND lease_until_utc > now()
RETURNING fencing, lease_until_utc`

	releaseSQL = `DELETE FROM semaphore_leases WHERE name = $1 AND token = $2`

	reapSQL          = `DELETE FROM semaphore_leases WHERE lease_until_utc <= now() AND ctid IN (SELECT ctid FROM semaphore_leases WHERE lease_until_utc <= now() LIMIT $1)`
	reapScopedSQL     = `DELETE FROM semaphore_leases WHERE name = $1 AND ctid IN (SELECT ctid FROM semaphore_leases WHERE name = $1 AND lease_until_utc <= now() LIMIT $2)`
)

type pgStore struct {
	conn   *sql.DB
	bounds Bounds
}

// NewPostgresStore constructs a Store backed directly by database/sql,
// validating inputs against bounds (spec §4.6 "Validation").
func NewPostgresStore(conn *sql.DB, bounds Bounds) Store {
	return &pgStore{conn: conn, bounds: bounds}
}

func (s *pgStore) CreateOrUpdate(ctx context.Context, name string, limit int) error {
	if err := s.bounds.validateName(name); err != nil {
		return err
	}
	if err := s.bounds.validateLimit(limit); err != nil {
		return err
	}
	if _, err := s.conn.ExecContext(ctx, upsertSemaphoreSQL, name, limit); err != nil {
		return errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return nil
}

func (s *pgStore) Acquire(ctx context.Context, name, ownerID string, ttl time.Duration, clientRequestID string) (*AcquireResult, error) {
	if err := s.bounds.validateName(name); err != nil {
		return nil, err
	}
	if err := s.bounds.validateOwnerID(ownerID); err != nil {
		return nil, err
	}
	if err := s.bounds.validateTTL(ttl); err != nil {
		return nil, err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	defer func() { _ = tx.Rollback() }()

	// Step 1: lock the Semaphore row.
	var limit int
	var nextFencing int64
	err = tx.QueryRowContext(ctx, lockSemaphoreSQL, name).Scan(&limit, &nextFencing)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errs.ErrUnavailable, "semaphore %q does not exist", name)
	}
	if err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}

	// Step 2: request-idempotent acquire.
	if clientRequestID != "" {
		var token string
		var fencing int64
		var leaseUntil time.Time
		err := tx.QueryRowContext(ctx, findIdempotentLeaseSQL, name, clientRequestID).Scan(&token, &fencing, &leaseUntil)
		if err == nil {
			if cerr := tx.Commit(); cerr != nil {
				return nil, errors.Wrap(errs.ErrUnavailable, cerr.Error())
			}
			return &AcquireResult{Acquired: true, Token: token, Fencing: fencing, LeaseUntil: leaseUntil}, nil
		}
		if err != sql.ErrNoRows {
			return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
		}
	}

	// Step 3: opportunistic reap of up to 10 expired leases.
	if _, err := tx.ExecContext(ctx, reapExpiredForNameSQL, name); err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}

	// Step 4: capacity check.
	var held int
	if err := tx.QueryRowContext(ctx, countUnexpiredSQL, name).Scan(&held); err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	if held >= limit {
		if cerr := tx.Commit(); cerr != nil {
			return nil, errors.Wrap(errs.ErrUnavailable, cerr.Error())
		}
		return &AcquireResult{Acquired: false}, nil
	}

	// Step 5: mint token, assign fencing, insert lease.
	token := ids.NewToken()
	if _, err := tx.ExecContext(ctx, bumpFencingSQL, name); err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	var crid interface{}
	if clientRequestID != "" {
		crid = clientRequestID
	}
	if _, err := tx.ExecContext(ctx, insertLeaseSQL, name, token, nextFencing, ownerID, int64(ttl.Seconds()), crid); err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}

	return &AcquireResult{
		Acquired:   true,
		Token:      token,
		Fencing:    nextFencing,
		LeaseUntil: time.Now().Add(ttl),
	}, nil
}

func (s *pgStore) Renew(ctx context.Context, name, token string, ttl time.Duration) (*AcquireResult, error) {
	if err := s.bounds.validateTTL(ttl); err != nil {
		return nil, err
	}
	var fencing int64
	var leaseUntil time.Time
	err := s.conn.QueryRowContext(ctx, renewSQL, name, token, int64(ttl.Seconds())).Scan(&fencing, &leaseUntil)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(errs.ErrStaleLease, "semaphore lease missing or expired")
	}
	if err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return &AcquireResult{Acquired: true, Token: token, Fencing: fencing, LeaseUntil: leaseUntil}, nil
}

func (s *pgStore) Release(ctx context.Context, name, token string) (bool, error) {
	res, err := s.conn.ExecContext(ctx, releaseSQL, name, token)
	if err != nil {
		return false, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return n > 0, nil
}

func (s *pgStore) Reap(ctx context.Context, name string, maxRows int) (int64, error) {
	if maxRows <= 0 {
		maxRows = 10
	}
	var res sql.Result
	var err error
	if name == "" {
		res, err = s.conn.ExecContext(ctx, reapSQL, maxRows)
	} else {
		res, err = s.conn.ExecContext(ctx, reapScopedSQL, name, maxRows)
	}
	if err != nil {
		return 0, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return res.RowsAffected()
}
