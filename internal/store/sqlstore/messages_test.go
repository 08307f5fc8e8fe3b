package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LukasGX/Untis-App-API/internal/store"
)

func TestSaveMessage(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	msg, err := testStore.SaveMessage(ctx, "east", "alice", "Hello")
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
	assert.False(t, msg.Deleted)

	messages, err := testStore.GetMessages(ctx, "east", 100)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "Hello", messages[0].Body)

	other, err := testStore.GetMessages(ctx, "west", 100)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestGetMessagesNewestFirstWithLimit(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	for _, body := range []string{"one", "two", "three"} {
		_, err := testStore.SaveMessage(ctx, "east", "alice", body)
		require.NoError(t, err)
	}

	messages, err := testStore.GetMessages(ctx, "east", 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "three", messages[0].Body)
	assert.Equal(t, "two", messages[1].Body)
}

func TestSetMessageDeleted(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	msg, err := testStore.SaveMessage(ctx, "east", "alice", "Hello")
	require.NoError(t, err)

	require.NoError(t, testStore.SetMessageDeleted(ctx, "east", msg.ID, true))
	got, err := testStore.GetMessage(ctx, "east", msg.ID)
	require.NoError(t, err)
	assert.True(t, got.Deleted)
	assert.Equal(t, "Hello", got.Body)

	// wrong school is a silent no-op
	require.NoError(t, testStore.SetMessageDeleted(ctx, "west", msg.ID, false))
	got, _ = testStore.GetMessage(ctx, "east", msg.ID)
	assert.True(t, got.Deleted)

	require.NoError(t, testStore.SetMessageDeleted(ctx, "east", 9999, true))

	_, err = testStore.GetMessage(ctx, "west", msg.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
