package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nova-arcade/internal/domain"
	"nova-arcade/internal/storage"
)

func TestCompetitionStore_EnterAndHistory(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCompetitionStore(pool)

	for i, id := range []string{"comp-1", "comp-2"} {
		require.NoError(t, store.Create(ctx, &domain.Competition{
			ID: id, Mode: "team", EntryFeeUSDC: 5, PrizePoolNAG: 90,
			Status: domain.CompetitionWaiting, IsDemo: true, CreatedAt: int64(1700000000000 + i),
		}))
		require.NoError(t, store.AddParticipant(ctx, &domain.Participant{
			CompetitionID: id, Address: "WalletA", JoinedAt: int64(1700000000000 + i),
		}))
	}

	history, err := store.ListByAddress(ctx, "WalletA", 20)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "comp-2", history[0].Competition.ID)
	assert.Equal(t, domain.CompetitionWaiting, history[0].Competition.Status)
	assert.Nil(t, history[0].Participant.Score)

	err = store.AddParticipant(ctx, &domain.Participant{CompetitionID: "comp-1", Address: "WalletA", JoinedAt: 1})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.AddParticipant(ctx, &domain.Participant{CompetitionID: "missing", Address: "WalletA", Score: ptr(10), JoinedAt: 1})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCompetitionStore_Metrics(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCompetitionStore(pool)

	require.NoError(t, store.IncrementMetric(ctx, domain.MetricDemoEntries, 1))
	require.NoError(t, store.IncrementMetric(ctx, domain.MetricDemoEntries, 1))
	require.NoError(t, store.IncrementMetric(ctx, domain.MetricSimulatedVolume, 50))

	m, err := store.Metrics(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 2, m[domain.MetricDemoEntries], 0.0001)
	assert.InDelta(t, 50, m[domain.MetricSimulatedVolume], 0.0001)
}
