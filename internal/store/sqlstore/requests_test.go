package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LukasGX/Untis-App-API/internal/models"
	"github.com/LukasGX/Untis-App-API/internal/store"
)

func TestCreateRequest(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	req, err := testStore.CreateRequest(ctx, "east", "alice", models.StatusPending)
	require.NoError(t, err)
	assert.NotZero(t, req.ID)
	assert.Equal(t, models.StatusPending, req.Status)
	assert.False(t, req.CreatedAt.IsZero())

	// Test duplicate request
	_, err = testStore.CreateRequest(ctx, "east", "alice", models.StatusPending)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestUsernameIsUniqueAcrossSchools(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	_, err := testStore.CreateRequest(ctx, "east", "alice", models.StatusPending)
	require.NoError(t, err)

	_, err = testStore.CreateRequest(ctx, "west", "alice", models.StatusPending)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestGetRequest(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	_, err := testStore.CreateRequest(ctx, "east", "alice", models.StatusPending)
	require.NoError(t, err)

	req, err := testStore.GetRequestByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "east", req.School)

	_, err = testStore.GetRequestByUsername(ctx, "nonexistent")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = testStore.GetRequest(ctx, "west", "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateRequestStatus(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	req, err := testStore.CreateRequest(ctx, "east", "alice", models.StatusPending)
	require.NoError(t, err)

	// every transition is accepted, including back to pending
	for _, status := range []models.Status{models.StatusApproved, models.StatusDenied, models.StatusApproved, models.StatusPending} {
		require.NoError(t, testStore.UpdateRequestStatus(ctx, req.ID, status))
		got, err := testStore.GetRequest(ctx, "east", "alice")
		require.NoError(t, err)
		assert.Equal(t, status, got.Status)
	}

	assert.ErrorIs(t, testStore.UpdateRequestStatus(ctx, 9999, models.StatusApproved), store.ErrNotFound)
}

func TestListSchoolsAndPendingCount(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	testStore.CreateRequest(ctx, "west", "bob", models.StatusPending)
	testStore.CreateRequest(ctx, "east", "alice", models.StatusPending)
	testStore.CreateRequest(ctx, "east", "carol", models.StatusApproved)

	schools, err := testStore.ListSchools(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"east", "west"}, schools)

	count, err := testStore.CountPendingRequests(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	requests, err := testStore.ListRequests(ctx)
	require.NoError(t, err)
	assert.Len(t, requests, 3)
}
