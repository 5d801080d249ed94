package fanout_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reliableworkqueue/workqueue/internal/coretest"
	"github.com/reliableworkqueue/workqueue/internal/fanout"
	"github.com/reliableworkqueue/workqueue/internal/outbox"
)

func TestGetDueSlices_FirstRunIsAlwaysDue(t *testing.T) {
	conn := coretest.OpenDB(t)
	policies := fanout.NewPostgresPolicyStore(conn)
	cursors := fanout.NewPostgresCursorStore(conn)
	outboxStore := outbox.NewPostgresStore(conn)
	coordinator := fanout.NewCoordinator(policies, cursors, outboxStore)
	ctx := context.Background()

	require.NoError(t, policies.UpsertPolicy(ctx, "reindex", "tenants", 3600, 0))

	slices, err := coordinator.GetDueSlices(ctx, "reindex", "tenants", []string{"shard-1", "shard-2"}, time.Now())
	require.NoError(t, err)
	require.Len(t, slices, 2)
}

func TestGetDueSlices_NotDueAfterRecentCompletion(t *testing.T) {
	conn := coretest.OpenDB(t)
	policies := fanout.NewPostgresPolicyStore(conn)
	cursors := fanout.NewPostgresCursorStore(conn)
	outboxStore := outbox.NewPostgresStore(conn)
	coordinator := fanout.NewCoordinator(policies, cursors, outboxStore)
	ctx := context.Background()

	require.NoError(t, policies.UpsertPolicy(ctx, "reindex", "tenants", 3600, 0))
	now := time.Now()
	require.NoError(t, cursors.MarkCompleted(ctx, "reindex", "tenants", "shard-1", now))

	slices, err := coordinator.GetDueSlices(ctx, "reindex", "tenants", []string{"shard-1"}, now.Add(time.Minute))
	require.NoError(t, err)
	require.Empty(t, slices)
}

func TestEmitDueSlices_EnqueuesIntoOutbox(t *testing.T) {
	conn := coretest.OpenDB(t)
	policies := fanout.NewPostgresPolicyStore(conn)
	cursors := fanout.NewPostgresCursorStore(conn)
	outboxStore := outbox.NewPostgresStore(conn)
	coordinator := fanout.NewCoordinator(policies, cursors, outboxStore)
	ctx := context.Background()

	require.NoError(t, policies.UpsertPolicy(ctx, "reindex", "tenants", 3600, 0))
	enumerate := func(ctx context.Context) ([]string, error) {
		return []string{"shard-1"}, nil
	}

	n, err := coordinator.EmitDueSlices(ctx, conn, "reindex", "tenants", enumerate, time.Now())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	msgs, err := outboxStore.ClaimDue(ctx, "worker-1", 30, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "reindex", msgs[0].Topic)
}
