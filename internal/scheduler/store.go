// Package scheduler implements the promotion of due Jobs and Timers into
// the outbox under a singleton lease (spec §4.7).
package scheduler

import (
	"context"
	"time"

	"github.com/reliableworkqueue/workqueue/internal/db"
)

// PromoteResult reports how many rows were promoted in one tick.
type PromoteResult struct {
	TimersPromoted int64
	JobsPromoted   int64
}

// Store is the persistence surface for Jobs and Timers.
type Store interface {
	// ScheduleTimer inserts a one-shot Timer row, pending until dueTime.
	ScheduleTimer(ctx context.Context, tx db.Execer, dueTime time.Time, topic string, payload []byte, correlationID string) (string, error)

	// UpsertJob creates or updates a recurring Job by jobName. cronSchedule
	// is a standard five-field cron expression. nextDueTime is recomputed
	// from now on every call, whether or not the schedule changed.
	UpsertJob(ctx context.Context, jobName, cronSchedule, topic string, payload []byte, isEnabled bool) (string, error)

	// SetJobEnabled toggles a Job's isEnabled flag.
	SetJobEnabled(ctx context.Context, jobName string, enabled bool) error

	// PromoteDue runs one tick of spec §4.7: promotes due Timers to outbox
	// rows, and inserts a JobRun (itself promoted to an outbox row) for
	// every enabled Job whose nextDueTime has arrived.
	PromoteDue(ctx context.Context, owner string) (*PromoteResult, error)
}
