package swap

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
	btcPrice decimal.Decimal
	fail     bool
	calls    int
}

func (f *fakeGateway) GetQuote(_ context.Context, symbol string) (marketdata.Quote, error) {
	f.calls++
	if f.fail {
		return marketdata.Quote{}, fmt.Errorf("%w: upstream down", marketdata.ErrUnavailable)
	}
	return marketdata.Quote{Symbol: symbol, PriceUSD: f.btcPrice}, nil
}

func defaultOpts() Options {
	return Options{FeePct: decimal.NewFromFloat(0.03)}
}

func storeWithEth(t *testing.T, price float64) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	_, err := store.InsertObservation(context.Background(), storage.PriceObservation{
		Chain:     "Ethereum",
		Symbol:    "ETH",
		Price:     decimal.NewFromFloat(price),
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
	return store
}

func TestRateComputesAmountsAndFees(t *testing.T) {
	store := storeWithEth(t, 3000)
	gw := &fakeGateway{btcPrice: decimal.NewFromInt(60000)}

	calc := New(gw, store, store, defaultOpts(), zerolog.Nop())
	quote, err := calc.Rate(context.Background(), decimal.NewFromInt(2))
	require.NoError(t, err)

	// a=2, p=3000, q=60000 => btc = 2*3000/60000 = 0.1
	require.True(t, quote.BtcAmount.Equal(decimal.NewFromFloat(0.1)), "btc amount %s", quote.BtcAmount)
	// feeInEth = 2 * 0.03/100 = 0.0006
	require.True(t, quote.FeeInEth.Equal(decimal.NewFromFloat(0.0006)), "fee eth %s", quote.FeeInEth)
	// feeInUsd = 0.0006 * 3000 = 1.8
	require.True(t, quote.FeeInUsd.Equal(decimal.NewFromFloat(1.8)), "fee usd %s", quote.FeeInUsd)
}

func TestRateRejectsNonPositiveAmountBeforeUpstream(t *testing.T) {
	store := storeWithEth(t, 3000)
	gw := &fakeGateway{btcPrice: decimal.NewFromInt(60000)}
	calc := New(gw, store, store, defaultOpts(), zerolog.Nop())

	_, err := calc.Rate(context.Background(), decimal.Zero)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = calc.Rate(context.Background(), decimal.NewFromInt(-1))
	require.ErrorIs(t, err, ErrInvalidAmount)

	// The gateway must never have been consulted.
	require.Zero(t, gw.calls)
}

func TestRateFailsWhenBtcQuoteUnavailable(t *testing.T) {
	store := storeWithEth(t, 3000)
	gw := &fakeGateway{fail: true}
	calc := New(gw, store, store, defaultOpts(), zerolog.Nop())

	_, err := calc.Rate(context.Background(), decimal.NewFromInt(1))
	require.ErrorIs(t, err, ErrRateUnavailable)
}

func TestRateDegradesToZeroWithoutStoredEthPrice(t *testing.T) {
	store := memory.NewStore()
	gw := &fakeGateway{btcPrice: decimal.NewFromInt(60000)}
	calc := New(gw, store, store, defaultOpts(), zerolog.Nop())

	quote, err := calc.Rate(context.Background(), decimal.NewFromInt(2))
	require.NoError(t, err)
	require.True(t, quote.BtcAmount.IsZero())
	require.True(t, quote.FeeInUsd.IsZero())
	// The ETH-denominated fee does not depend on the stored price.
	require.True(t, quote.FeeInEth.Equal(decimal.NewFromFloat(0.0006)))
}

func TestRateRecordsSwapWhenEnabled(t *testing.T) {
	store := storeWithEth(t, 3000)
	gw := &fakeGateway{btcPrice: decimal.NewFromInt(60000)}

	opts := defaultOpts()
	opts.Record = true
	calc := New(gw, store, store, opts, zerolog.Nop())

	_, err := calc.Rate(context.Background(), decimal.NewFromInt(2))
	require.NoError(t, err)

	swaps := store.Swaps()
	require.Len(t, swaps, 1)
	require.True(t, swaps[0].BtcAmount.Equal(decimal.NewFromFloat(0.1)))
}

func TestRateDoesNotRecordByDefault(t *testing.T) {
	store := storeWithEth(t, 3000)
	gw := &fakeGateway{btcPrice: decimal.NewFromInt(60000)}
	calc := New(gw, store, store, defaultOpts(), zerolog.Nop())

	_, err := calc.Rate(context.Background(), decimal.NewFromInt(2))
	require.NoError(t, err)
	require.Empty(t, store.Swaps())
}

var _ marketdata.Gateway = (*fakeGateway)(nil)
