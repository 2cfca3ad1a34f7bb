package prices

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"token-price-watcher/internal/storage"
	"token-price-watcher/internal/storage/memory"
)

func seed(t *testing.T, store *memory.Store, chain string, at time.Time) {
	t.Helper()
	_, err := store.InsertObservation(context.Background(), storage.PriceObservation{
		Chain:     chain,
		Symbol:    chain,
		Price:     decimal.NewFromInt(100),
		Timestamp: at,
	})
	require.NoError(t, err)
}

func TestLast24HoursGroupsByHour(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2026, 8, 30, 12, 30, 0, 0, time.UTC)

	seed(t, store, "Ethereum", now.Add(-10*time.Minute)) // 12:20
	seed(t, store, "Bitcoin", now.Add(-20*time.Minute))  // 12:10
	seed(t, store, "Ethereum", now.Add(-90*time.Minute)) // 11:00
	seed(t, store, "Ethereum", now.Add(-30*time.Hour))   // outside window

	svc := New(store, zerolog.Nop())
	buckets, err := svc.Last24Hours(context.Background(), now)
	require.NoError(t, err)

	require.Len(t, buckets, 2)
	require.Equal(t, time.Date(2026, 8, 30, 11, 0, 0, 0, time.UTC), buckets[0].Hour)
	require.Len(t, buckets[0].Observations, 1)
	require.Equal(t, time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC), buckets[1].Hour)
	require.Len(t, buckets[1].Observations, 2)
}

func TestLast24HoursEmptyStore(t *testing.T) {
	svc := New(memory.NewStore(), zerolog.Nop())
	buckets, err := svc.Last24Hours(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	require.Empty(t, buckets)
}
