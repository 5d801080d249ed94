package scheduler

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/reliableworkqueue/workqueue/internal/db"
	"github.com/reliableworkqueue/workqueue/internal/errs"
	"github.com/reliableworkqueue/workqueue/internal/ids"
	"github.com/reliableworkqueue/workqueue/internal/outbox"
)

const (
	insertTimerSQL = `
INSERT INTO timers (id, due_time, topic, payload, correlation_id, status)
VALUES ($1, $2, $3, $4, $5, 0)`

	upsertJobSQL = `
INSERT INTO jobs (id, job_name, cron_schedule, topic, payload, is_enabled, next_due_time)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (job_name) DO UPDATE SET
    cron_schedule = $3, topic = $4, payload = $5, is_enabled = $6, next_due_time = $7
RETURNING id`

	setJobEnabledSQL = `UPDATE jobs SET is_enabled = $2 WHERE job_name = $1`

	claimDueTimersSQL = `
SELECT id, topic, payload, correlation_id
FROM timers
WHERE status = 0 AND due_time <= now()
ORDER BY due_time ASC
LIMIT 200
FOR UPDATE SKIP LOCKED`

	markTimerDoneSQL = `UPDATE timers SET status = 3 WHERE id = $1`

	claimDueJobsSQL = `
SELECT id, job_name, cron_schedule, topic, payload, next_due_time
FROM jobs
WHERE is_enabled AND next_due_time <= now()
ORDER BY next_due_time ASC
LIMIT 200
FOR UPDATE SKIP LOCKED`

	insertJobRunSQL = `
INSERT INTO job_runs (id, job_id, scheduled_time, status)
VALUES ($1, $2, $3, 0)`

	advanceJobSQL = `UPDATE jobs SET next_due_time = $2, last_run_time = now() WHERE id = $1`
)

type pgStore struct {
	conn   *sql.DB
	outbox outbox.Store
}

// NewPostgresStore constructs a Store backed directly by database/sql,
// promoting due rows into outboxStore inside its own transaction.
func NewPostgresStore(conn *sql.DB, outboxStore outbox.Store) Store {
	return &pgStore{conn: conn, outbox: outboxStore}
}

func (s *pgStore) ScheduleTimer(ctx context.Context, tx db.Execer, dueTime time.Time, topic string, payload []byte, correlationID string) (string, error) {
	if topic == "" {
		return "", errors.Wrap(errs.ErrValidation, "topic is required")
	}
	id := ids.NewMessageID()
	var corr interface{}
	if correlationID != "" {
		corr = correlationID
	}
	if _, err := tx.ExecContext(ctx, insertTimerSQL, id, dueTime, topic, payload, corr); err != nil {
		return "", errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return id, nil
}

func (s *pgStore) UpsertJob(ctx context.Context, jobName, cronSchedule, topic string, payload []byte, isEnabled bool) (string, error) {
	if jobName == "" || topic == "" {
		return "", errors.Wrap(errs.ErrValidation, "jobName and topic are required")
	}
	next, err := nextDueTime(cronSchedule, time.Now().UTC())
	if err != nil {
		return "", err
	}
	var id string
	newID := ids.NewMessageID()
	row := s.conn.QueryRowContext(ctx, upsertJobSQL, newID, jobName, cronSchedule, topic, payload, isEnabled, next)
	if err := row.Scan(&id); err != nil {
		return "", errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return id, nil
}

func (s *pgStore) SetJobEnabled(ctx context.Context, jobName string, enabled bool) error {
	res, err := s.conn.ExecContext(ctx, setJobEnabledSQL, jobName, enabled)
	if err != nil {
		return errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	if n == 0 {
		return errors.Wrapf(errs.ErrNotFound, "job %q not found", jobName)
	}
	return nil
}

func (s *pgStore) PromoteDue(ctx context.Context, owner string) (*PromoteResult, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	defer func() { _ = tx.Rollback() }()

	result := &PromoteResult{}

	timerRows, err := tx.QueryContext(ctx, claimDueTimersSQL)
	if err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	type dueTimer struct {
		id, topic string
		payload   []byte
		corr      *string
	}
	var timers []dueTimer
	for timerRows.Next() {
		var t dueTimer
		if err := timerRows.Scan(&t.id, &t.topic, &t.payload, &t.corr); err != nil {
			timerRows.Close()
			return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
		}
		timers = append(timers, t)
	}
	if err := timerRows.Err(); err != nil {
		timerRows.Close()
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	timerRows.Close()

	for _, t := range timers {
		corr := ""
		if t.corr != nil {
			corr = *t.corr
		}
		if _, err := s.outbox.Enqueue(ctx, tx, t.topic, t.payload, corr, nil); err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, markTimerDoneSQL, t.id); err != nil {
			return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
		}
		result.TimersPromoted++
	}

	jobRows, err := tx.QueryContext(ctx, claimDueJobsSQL)
	if err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	type dueJob struct {
		id, jobName, cronSchedule, topic string
		payload                          []byte
		nextDue                          time.Time
	}
	var jobs []dueJob
	for jobRows.Next() {
		var j dueJob
		if err := jobRows.Scan(&j.id, &j.jobName, &j.cronSchedule, &j.topic, &j.payload, &j.nextDue); err != nil {
			jobRows.Close()
			return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
		}
		jobs = append(jobs, j)
	}
	if err := jobRows.Err(); err != nil {
		jobRows.Close()
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	jobRows.Close()

	for _, j := range jobs {
		runID := ids.NewMessageID()
		if _, err := tx.ExecContext(ctx, insertJobRunSQL, runID, j.id, j.nextDue); err != nil {
			return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
		}
		if _, err := s.outbox.Enqueue(ctx, tx, j.topic, j.payload, runID, nil); err != nil {
			return nil, err
		}
		next, err := nextDueTime(j.cronSchedule, j.nextDue)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, advanceJobSQL, j.id, next); err != nil {
			return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
		}
		result.JobsPromoted++
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return result, nil
}
