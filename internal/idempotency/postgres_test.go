package idempotency_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reliableworkqueue/workqueue/internal/coretest"
	"github.com/reliableworkqueue/workqueue/internal/idempotency"
	"github.com/reliableworkqueue/workqueue/internal/model"
)

func TestTryBegin_FreshKeySucceedsOnce(t *testing.T) {
	conn := coretest.OpenDB(t)
	store := idempotency.NewPostgresStore(conn)
	ctx := context.Background()

	key := "charge:order-1"
	ok, err := store.TryBegin(ctx, key, "owner-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// A second owner must not be able to begin while the lock is live.
	ok2, err := store.TryBegin(ctx, key, "owner-b", time.Minute)
	require.NoError(t, err)
	require.False(t, ok2)

	require.NoError(t, store.Complete(ctx, key))

	rec, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, model.IdempotencyCompleted, rec.Status)

	// Completed keys never reopen.
	ok3, err := store.TryBegin(ctx, key, "owner-c", time.Minute)
	require.NoError(t, err)
	require.False(t, ok3)
}

func TestTryBegin_FailedKeyIsRetryable(t *testing.T) {
	conn := coretest.OpenDB(t)
	store := idempotency.NewPostgresStore(conn)
	ctx := context.Background()

	key := "charge:order-2"
	ok, err := store.TryBegin(ctx, key, "owner-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, store.Fail(ctx, key))

	ok2, err := store.TryBegin(ctx, key, "owner-b", time.Minute)
	require.NoError(t, err)
	require.True(t, ok2)

	rec, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, 1, rec.FailureCount)
}
