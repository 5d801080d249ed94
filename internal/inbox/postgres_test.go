package inbox_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reliableworkqueue/workqueue/internal/coretest"
	"github.com/reliableworkqueue/workqueue/internal/inbox"
)

func TestRecord_DuplicateIsNotNew(t *testing.T) {
	conn := coretest.OpenDB(t)
	store := inbox.NewPostgresStore(conn)
	ctx := context.Background()

	first, err := store.Record(ctx, "webhook", "msg-1", "payments.charged", []byte("x"), "", nil)
	require.NoError(t, err)
	require.True(t, first.IsNew)

	second, err := store.Record(ctx, "webhook", "msg-1", "payments.charged", []byte("x"), "", nil)
	require.NoError(t, err)
	require.False(t, second.IsNew)
	require.Equal(t, 1, second.Record.Attempts)
}

func TestClaimAckAbandon(t *testing.T) {
	conn := coretest.OpenDB(t)
	store := inbox.NewPostgresStore(conn)
	ctx := context.Background()

	_, err := store.Record(ctx, "webhook", "msg-2", "payments.charged", nil, "", nil)
	require.NoError(t, err)

	claimed, err := store.Claim(ctx, "owner-1", 30, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	require.NoError(t, store.Abandon(ctx, "owner-1", []string{"msg-2"}, nil))

	reclaimed, err := store.Claim(ctx, "owner-2", 30, 10)
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)

	require.NoError(t, store.Ack(ctx, "owner-2", []string{"msg-2"}))

	done, err := store.AlreadyProcessed(ctx, "webhook", "msg-2")
	require.NoError(t, err)
	require.True(t, done)
}
