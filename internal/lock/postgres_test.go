package lock_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reliableworkqueue/workqueue/internal/coretest"
	"github.com/reliableworkqueue/workqueue/internal/lock"
)

func TestAcquire_FencingTokenStrictlyIncreases(t *testing.T) {
	conn := coretest.OpenDB(t)
	store := lock.NewPostgresStore(conn)
	ctx := context.Background()

	name := "leader:shard-1"

	r1, err := store.Acquire(ctx, name, 30, "")
	require.NoError(t, err)
	require.True(t, r1.Acquired)

	// Contention: a different owner cannot acquire while r1 holds it.
	r2, err := store.Acquire(ctx, name, 30, "")
	require.NoError(t, err)
	require.False(t, r2.Acquired)

	renewed, err := store.Renew(ctx, name, r1.OwnerToken, 30)
	require.NoError(t, err)
	require.Greater(t, renewed.FencingToken, r1.FencingToken)

	require.NoError(t, store.Release(ctx, name, r1.OwnerToken))

	r3, err := store.Acquire(ctx, name, 30, "")
	require.NoError(t, err)
	require.True(t, r3.Acquired)
	require.Greater(t, r3.FencingToken, renewed.FencingToken)
}
