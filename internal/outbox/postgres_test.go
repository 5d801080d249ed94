package outbox_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reliableworkqueue/workqueue/internal/coretest"
	"github.com/reliableworkqueue/workqueue/internal/model"
	"github.com/reliableworkqueue/workqueue/internal/outbox"
)

func TestPostgresStore_EnqueueClaimAck(t *testing.T) {
	conn := coretest.OpenDB(t)
	store := outbox.NewPostgresStore(conn)
	ctx := context.Background()

	id, err := store.Enqueue(ctx, conn, "orders.created", []byte(`{"id":1}`), "corr-1", nil)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs, err := store.ClaimDue(ctx, "owner-1", 30, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, id, msgs[0].ID)
	require.Equal(t, model.OutboxInProgress, msgs[0].Status)

	// A second claimant must not see the same row while it is leased.
	msgs2, err := store.ClaimDue(ctx, "owner-2", 30, 10)
	require.NoError(t, err)
	require.Empty(t, msgs2)

	require.NoError(t, store.MarkDispatched(ctx, id, "owner-1"))
}

func TestPostgresStore_RescheduleBumpsRetryCount(t *testing.T) {
	conn := coretest.OpenDB(t)
	store := outbox.NewPostgresStore(conn)
	ctx := context.Background()

	id, err := store.Enqueue(ctx, conn, "orders.created", nil, "", nil)
	require.NoError(t, err)

	msgs, err := store.ClaimDue(ctx, "owner-1", 30, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, 0, msgs[0].RetryCount)

	require.NoError(t, store.Reschedule(ctx, id, "owner-1", time.Millisecond, "transient"))

	time.Sleep(10 * time.Millisecond)
	msgs2, err := store.ClaimDue(ctx, "owner-2", 30, 1)
	require.NoError(t, err)
	require.Len(t, msgs2, 1)
	require.Equal(t, 1, msgs2[0].RetryCount)
}
