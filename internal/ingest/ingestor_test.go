package ingest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"token-price-watcher/internal/marketdata"
	"token-price-watcher/internal/storage"
	"token-price-watcher/internal/storage/memory"
)

type fakeGateway struct {
	quotes map[string]marketdata.Quote
	calls  []string
}

func (f *fakeGateway) GetQuote(_ context.Context, symbol string) (marketdata.Quote, error) {
	f.calls = append(f.calls, symbol)
	quote, ok := f.quotes[symbol]
	if !ok {
		return marketdata.Quote{}, fmt.Errorf("%w: no quote for %s", marketdata.ErrUnavailable, symbol)
	}
	return quote, nil
}

func ethQuote() marketdata.Quote {
	return marketdata.Quote{
		Symbol:           "ETH",
		Name:             "Ethereum",
		PriceUSD:         decimal.NewFromInt(3000),
		PercentChange1h:  decimal.NewFromFloat(0.4),
		PercentChange24h: decimal.NewFromFloat(-2.1),
	}
}

func btcQuote() marketdata.Quote {
	return marketdata.Quote{
		Symbol:   "BTC",
		Name:     "Bitcoin",
		PriceUSD: decimal.NewFromInt(60000),
	}
}

func TestTickRecordsOneObservationPerToken(t *testing.T) {
	store := memory.NewStore()
	store.SeedTokens("ETH", "BTC")
	gw := &fakeGateway{quotes: map[string]marketdata.Quote{"ETH": ethQuote(), "BTC": btcQuote()}}

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	ing := New(gw, store, store, nil, zerolog.Nop())
	require.NoError(t, ing.Tick(context.Background(), now))

	require.Equal(t, 2, store.ObservationCount())

	obs, err := store.LatestObservation(context.Background(), "Ethereum")
	require.NoError(t, err)
	require.Equal(t, "ETH", obs.Symbol)
	require.Equal(t, now, obs.Timestamp)
	require.Equal(t, "3000", obs.Price.String())
}

func TestTickSkipsFailedTokenAndContinues(t *testing.T) {
	store := memory.NewStore()
	store.SeedTokens("ETH", "DOGE", "BTC")
	gw := &fakeGateway{quotes: map[string]marketdata.Quote{"ETH": ethQuote(), "BTC": btcQuote()}}

	ing := New(gw, store, store, nil, zerolog.Nop())
	require.NoError(t, ing.Tick(context.Background(), time.Now().UTC()))

	// DOGE failed but BTC, polled after it, was still recorded.
	require.Equal(t, []string{"ETH", "DOGE", "BTC"}, gw.calls)
	require.Equal(t, 2, store.ObservationCount())

	_, err := store.LatestObservation(context.Background(), "Bitcoin")
	require.NoError(t, err)
}

func TestTickReportsTotalFailure(t *testing.T) {
	store := memory.NewStore()
	store.SeedTokens("ETH")
	gw := &fakeGateway{quotes: map[string]marketdata.Quote{}}

	ing := New(gw, store, store, nil, zerolog.Nop())
	require.Error(t, ing.Tick(context.Background(), time.Now().UTC()))
	require.Equal(t, 0, store.ObservationCount())
}

func TestTickFallsBackToConfiguredTokens(t *testing.T) {
	store := memory.NewStore() // empty registry
	gw := &fakeGateway{quotes: map[string]marketdata.Quote{"ETH": ethQuote()}}

	ing := New(gw, store, store, []string{"ETH"}, zerolog.Nop())
	require.NoError(t, ing.Tick(context.Background(), time.Now().UTC()))
	require.Equal(t, 1, store.ObservationCount())
}

var _ marketdata.Gateway = (*fakeGateway)(nil)
var _ storage.PriceStore = (*memory.Store)(nil)
