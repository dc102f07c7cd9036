package publisher

import (
	"context"
	"testing"

	audit "steward/pkg/platform/audit"
	"steward/pkg/platform/audit/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		SubjectID: "U1",
		Action:    string(audit.EventAccessDenied),
		Screen:    "Leadership",
	})
	require.NoError(t, err)

	events, err := pub.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategorySecurity, events[0].Category)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisher_AsyncModeFlushesOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))

	for range 3 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(audit.EventLogin)}))
	}
	pub.Close()

	events, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, events, 3)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
}

func TestPublisher_EmitAfterClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	pub.Close()
	pub.Close()

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(audit.EventLogout)}))

	events, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestInMemoryStore_ListRecentOrder(t *testing.T) {
	store := memory.NewInMemoryStore()
	for _, action := range []string{"a", "b", "c"} {
		require.NoError(t, store.Append(context.Background(), audit.Event{Action: action}))
	}

	events, err := store.ListRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "c", events[0].Action)
	assert.Equal(t, "b", events[1].Action)
}
