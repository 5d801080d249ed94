package semaphore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reliableworkqueue/workqueue/internal/coretest"
	"github.com/reliableworkqueue/workqueue/internal/semaphore"
)

func TestAcquire_RespectsLimit(t *testing.T) {
	conn := coretest.OpenDB(t)
	store := semaphore.NewPostgresStore(conn, semaphore.DefaultBounds())
	ctx := context.Background()

	name := "db-connections:shard-1"
	require.NoError(t, store.CreateOrUpdate(ctx, name, 1))

	r1, err := store.Acquire(ctx, name, "worker-1", time.Minute, "")
	require.NoError(t, err)
	require.True(t, r1.Acquired)

	r2, err := store.Acquire(ctx, name, "worker-2", time.Minute, "")
	require.NoError(t, err)
	require.False(t, r2.Acquired)

	released, err := store.Release(ctx, name, r1.Token)
	require.NoError(t, err)
	require.True(t, released)

	r3, err := store.Acquire(ctx, name, "worker-2", time.Minute, "")
	require.NoError(t, err)
	require.True(t, r3.Acquired)
}

func TestAcquire_SameClientRequestIDIsIdempotent(t *testing.T) {
	conn := coretest.OpenDB(t)
	store := semaphore.NewPostgresStore(conn, semaphore.DefaultBounds())
	ctx := context.Background()

	name := "db-connections:shard-2"
	require.NoError(t, store.CreateOrUpdate(ctx, name, 1))

	r1, err := store.Acquire(ctx, name, "worker-1", time.Minute, "req-1")
	require.NoError(t, err)
	require.True(t, r1.Acquired)

	r2, err := store.Acquire(ctx, name, "worker-1", time.Minute, "req-1")
	require.NoError(t, err)
	require.True(t, r2.Acquired)
	require.Equal(t, r1.Token, r2.Token)
}
