package lease_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reliableworkqueue/workqueue/internal/coretest"
	"github.com/reliableworkqueue/workqueue/internal/lease"
)

func TestAcquire_SingletonOwnership(t *testing.T) {
	conn := coretest.OpenDB(t)
	store := lease.NewPostgresStore(conn)
	ctx := context.Background()

	name := "scheduler"

	r1, err := store.Acquire(ctx, name, "instance-a", 30)
	require.NoError(t, err)
	require.True(t, r1.Acquired)

	// The owning instance renews rather than re-acquiring while live.
	renewed, err := store.Renew(ctx, name, "instance-a", 30)
	require.NoError(t, err)
	require.True(t, renewed.Acquired)

	// A different owner cannot take over a live lease.
	r3, err := store.Acquire(ctx, name, "instance-b", 30)
	require.NoError(t, err)
	require.False(t, r3.Acquired)

	require.NoError(t, store.Release(ctx, name, "instance-a"))

	r4, err := store.Acquire(ctx, name, "instance-b", 30)
	require.NoError(t, err)
	require.True(t, r4.Acquired)
}
