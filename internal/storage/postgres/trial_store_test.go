package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nova-arcade/internal/domain"
	"nova-arcade/internal/storage"
)

func TestTrialStore_PutGetDelete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTrialStore(pool)

	rec := &domain.TrialRecord{
		Count:    1,
		LastUsed: 1700000000000,
		DeviceID: "0123456789abcdef",
		Games:    []domain.GameUse{{GameID: "snake", Timestamp: 1700000000000}},
	}
	require.NoError(t, store.Put(ctx, "wallet-a", rec))

	got, err := store.Get(ctx, "wallet-a")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, rec.LastUsed, got.LastUsed)
	assert.Equal(t, rec.DeviceID, got.DeviceID)
	require.Len(t, got.Games, 1)
	assert.Equal(t, "snake", got.Games[0].GameID)

	// Upsert replaces the record
	rec.Count = 3
	rec.Games = append(rec.Games, domain.GameUse{GameID: "tetris", Timestamp: 1700000001000})
	require.NoError(t, store.Put(ctx, "wallet-a", rec))

	got, err = store.Get(ctx, "wallet-a")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Count)
	assert.Len(t, got.Games, 2)

	ids, err := store.Identities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"wallet-a"}, ids)

	require.NoError(t, store.Delete(ctx, "wallet-a"))
	_, err = store.Get(ctx, "wallet-a")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTrialStore_CountConstraint(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTrialStore(pool)
	err := store.Put(context.Background(), "over", &domain.TrialRecord{Count: domain.MaxTrials + 1, LastUsed: 1})
	assert.Error(t, err, "count above the trial limit must be rejected by the schema")
}
