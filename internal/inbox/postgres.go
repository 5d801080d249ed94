package inbox

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/reliableworkqueue/workqueue/internal/errs"
	"github.com/reliableworkqueue/workqueue/internal/model"
)

const (
	recordInsertSQL = `
INSERT INTO inbox_records (message_id, source, topic, payload, hash, due_time_utc, status, attempts)
VALUES ($1, $2, $3, $4, $5, $6, 0, 0)
ON CONFLICT (message_id) DO NOTHING`

	recordSelectSQL = `
SELECT message_id, source, hash, first_seen_utc, last_seen_utc, processed_utc,
       due_time_utc, attempts, status, locked_until, owner_token, topic, payload
FROM inbox_records WHERE message_id = $1`

	recordTouchSQL = `
UPDATE inbox_records SET last_seen_utc = now(), attempts = attempts + 1
WHERE message_id = $1
RETURNING message_id, source, hash, first_seen_utc, last_seen_utc, processed_utc,
          due_time_utc, attempts, status, locked_until, owner_token, topic, payload`

	claimSQL = `
WITH candidates AS (
    SELECT message_id
    FROM inbox_records
    WHERE status IN (0, 1)
      AND (locked_until IS NULL OR locked_until <= now())
      AND (due_time_utc IS NULL OR due_time_utc <= now())
    ORDER BY last_seen_utc ASC
    LIMIT $1
    FOR UPDATE SKIP LOCKED
)
UPDATE inbox_records r
SET status = 1, owner_token = $2, locked_until = now() + make_interval(secs => $3)
FROM candidates
WHERE r.message_id = candidates.message_id
RETURNING r.message_id, r.source, r.hash, r.first_seen_utc, r.last_seen_utc, r.processed_utc,
          r.due_time_utc, r.attempts, r.status, r.locked_until, r.owner_token, r.topic, r.payload`

	ackSQL = `
UPDATE inbox_records
SET status = 2, processed_utc = now(), owner_token = NULL, locked_until = NULL
WHERE message_id = ANY($1) AND owner_token = $2`

	abandonSQL = `
UPDATE inbox_records
SET status = 0, owner_token = NULL, locked_until = NULL,
    due_time_utc = CASE WHEN $3::bigint IS NULL THEN due_time_utc ELSE now() + make_interval(secs => $3::bigint) END
WHERE message_id = ANY($1) AND owner_token = $2`

	markDeadSQL = `
UPDATE inbox_records
SET status = 3, owner_token = NULL, locked_until = NULL
WHERE message_id = ANY($1) AND owner_token = $2`

	alreadyProcessedSQL = `SELECT status FROM inbox_records WHERE message_id = $1 AND source = $2`

	reapSQL = `
UPDATE inbox_records
SET status = 0, owner_token = NULL, locked_until = NULL
WHERE status = 1 AND locked_until <= now()`

	cleanupSQL = `
DELETE FROM inbox_records
WHERE status = 2 AND processed_utc <= now() - make_interval(secs => $1)`
)

type pgStore struct {
	conn *sql.DB
}

// NewPostgresStore constructs a Store backed directly by database/sql.
func NewPostgresStore(conn *sql.DB) Store {
	return &pgStore{conn: conn}
}

func (s *pgStore) Record(ctx context.Context, source, messageID, topic string, payload []byte, hash string, dueTimeUtc *time.Time) (*RecordResult, error) {
	if messageID == "" || source == "" {
		return nil, errors.Wrap(errs.ErrValidation, "source and messageID are required")
	}

	var hp, tp interface{}
	if hash != "" {
		hp = hash
	}
	if topic != "" {
		tp = topic
	}

	res, err := s.conn.ExecContext(ctx, recordInsertSQL, messageID, source, tp, payload, hp, dueTimeUtc)
	if err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}

	if n == 1 {
		rec, err := s.scanOne(s.conn.QueryRowContext(ctx, recordSelectSQL, messageID))
		if err != nil {
			return nil, err
		}
		return &RecordResult{IsNew: true, Record: rec}, nil
	}

	rec, err := s.scanOne(s.conn.QueryRowContext(ctx, recordTouchSQL, messageID))
	if err != nil {
		return nil, err
	}
	return &RecordResult{IsNew: false, Record: rec}, nil
}

func (s *pgStore) Claim(ctx context.Context, owner string, leaseSeconds int, batchSize int) ([]*model.InboxRecord, error) {
	if batchSize <= 0 {
		return nil, nil
	}
	rows, err := s.conn.QueryContext(ctx, claimSQL, batchSize, owner, leaseSeconds)
	if err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	defer rows.Close()

	var out []*model.InboxRecord
	for rows.Next() {
		rec, err := s.scanRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *pgStore) Ack(ctx context.Context, owner string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.conn.ExecContext(ctx, ackSQL, ids, owner)
	if err != nil {
		return errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return nil
}

func (s *pgStore) Abandon(ctx context.Context, owner string, ids []string, delay *time.Duration) error {
	if len(ids) == 0 {
		return nil
	}
	var secs interface{}
	if delay != nil {
		secs = int64(delay.Seconds())
	}
	_, err := s.conn.ExecContext(ctx, abandonSQL, ids, owner, secs)
	if err != nil {
		return errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return nil
}

func (s *pgStore) MarkDead(ctx context.Context, owner string, ids []string, reason string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.conn.ExecContext(ctx, markDeadSQL, ids, owner)
	if err != nil {
		return errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return nil
}

func (s *pgStore) AlreadyProcessed(ctx context.Context, source, messageID string) (bool, error) {
	var status int
	err := s.conn.QueryRowContext(ctx, alreadyProcessedSQL, messageID, source).Scan(&status)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return model.InboxStatus(status) == model.InboxDone, nil
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *pgStore) scanOne(row *sql.Row) (*model.InboxRecord, error) {
	return scanRecord(row)
}

func (s *pgStore) scanRows(rows *sql.Rows) (*model.InboxRecord, error) {
	return scanRecord(rows)
}

func scanRecord(sc rowScanner) (*model.InboxRecord, error) {
	var r model.InboxRecord
	var status int
	if err := sc.Scan(&r.MessageID, &r.Source, &r.Hash, &r.FirstSeenAt, &r.LastSeenAt, &r.ProcessedAt,
		&r.DueTimeUtc, &r.Attempts, &status, &r.LockedUntil, &r.OwnerToken, &r.Topic, &r.Payload); err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	r.Status = model.InboxStatus(status)
	return &r, nil
}
