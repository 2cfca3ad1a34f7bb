package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"token-price-watcher/internal/storage"
)

func insert(t *testing.T, store *Store, chain, symbol string, price int64, at time.Time) {
	t.Helper()
	_, err := store.InsertObservation(context.Background(), storage.PriceObservation{
		Chain:     chain,
		Symbol:    symbol,
		Price:     decimal.NewFromInt(price),
		Timestamp: at,
	})
	require.NoError(t, err)
}

func TestNearestAfterReturnsNewestInWindow(t *testing.T) {
	store := NewStore()
	now := time.Now().UTC()

	insert(t, store, "Ethereum", "ETH", 90, now.Add(-2*time.Hour))
	insert(t, store, "Ethereum", "ETH", 100, now.Add(-40*time.Minute))
	insert(t, store, "Ethereum", "ETH", 110, now.Add(-10*time.Minute))
	insert(t, store, "Bitcoin", "BTC", 60000, now.Add(-5*time.Minute))

	obs, err := store.NearestAfter(context.Background(), "Ethereum", now.Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, obs.Price.Equal(decimal.NewFromInt(110)))

	// The out-of-window sample must never be picked.
	_, err = store.NearestAfter(context.Background(), "Ethereum", now)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLatestObservationPerChain(t *testing.T) {
	store := NewStore()
	now := time.Now().UTC()

	insert(t, store, "Ethereum", "ETH", 100, now.Add(-time.Hour))
	insert(t, store, "Ethereum", "ETH", 105, now.Add(-time.Minute))
	insert(t, store, "Bitcoin", "BTC", 60000, now)

	obs, err := store.LatestObservation(context.Background(), "Ethereum")
	require.NoError(t, err)
	require.True(t, obs.Price.Equal(decimal.NewFromInt(105)))

	_, err = store.LatestObservation(context.Background(), "Solana")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLatestBySymbolIndependentOfChainName(t *testing.T) {
	store := NewStore()
	now := time.Now().UTC()

	insert(t, store, "Ethereum", "ETH", 3000, now.Add(-time.Minute))
	insert(t, store, "Bitcoin", "BTC", 60000, now)

	obs, err := store.LatestBySymbol(context.Background(), "ETH")
	require.NoError(t, err)
	require.Equal(t, "Ethereum", obs.Chain)
	require.True(t, obs.Price.Equal(decimal.NewFromInt(3000)))
}

func TestChainsAreDistinctAndSorted(t *testing.T) {
	store := NewStore()
	now := time.Now().UTC()

	insert(t, store, "Ethereum", "ETH", 100, now)
	insert(t, store, "Bitcoin", "BTC", 200, now)
	insert(t, store, "Ethereum", "ETH", 101, now.Add(time.Minute))

	chains, err := store.Chains(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Bitcoin", "Ethereum"}, chains)
}

func TestSupportedTokensFiltersUnsupported(t *testing.T) {
	store := NewStore()
	store.SeedTokens("ETH", "BTC")

	tokens, err := store.SupportedTokens(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	for _, tok := range tokens {
		require.True(t, tok.IsSupported)
	}
}
