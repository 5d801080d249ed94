package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reliableworkqueue/workqueue/internal/coretest"
	"github.com/reliableworkqueue/workqueue/internal/outbox"
	"github.com/reliableworkqueue/workqueue/internal/scheduler"
)

func TestPromoteDue_TimerBecomesOutboxMessage(t *testing.T) {
	conn := coretest.OpenDB(t)
	outboxStore := outbox.NewPostgresStore(conn)
	store := scheduler.NewPostgresStore(conn, outboxStore)
	ctx := context.Background()

	_, err := store.ScheduleTimer(ctx, conn, time.Now().Add(-time.Second), "reminders.due", []byte("hi"), "corr-1")
	require.NoError(t, err)

	result, err := store.PromoteDue(ctx, "scheduler-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, result.TimersPromoted)

	msgs, err := outboxStore.ClaimDue(ctx, "worker-1", 30, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "reminders.due", msgs[0].Topic)
}

func TestPromoteDue_JobNotPromotedBeforeNextDueTime(t *testing.T) {
	conn := coretest.OpenDB(t)
	outboxStore := outbox.NewPostgresStore(conn)
	store := scheduler.NewPostgresStore(conn, outboxStore)
	ctx := context.Background()

	_, err := store.UpsertJob(ctx, "nightly-rollup", "* * * * *", "jobs.rollup", nil, true)
	require.NoError(t, err)

	// nextDueTime is in the future (the next minute boundary), so a tick now
	// promotes nothing yet.
	result, err := store.PromoteDue(ctx, "scheduler-1")
	require.NoError(t, err)
	require.EqualValues(t, 0, result.JobsPromoted)
}
