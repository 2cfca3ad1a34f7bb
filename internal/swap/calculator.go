package swap

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"token-price-watcher/internal/marketdata"
	"token-price-watcher/internal/storage"
)

var (
	// ErrInvalidAmount reports a non-positive input amount, rejected before
	// any upstream call.
	ErrInvalidAmount = errors.New("swap: eth amount must be positive")
	// ErrRateUnavailable reports a failed or empty BTC quote.
	ErrRateUnavailable = errors.New("swap: could not retrieve exchange rate")
)

var dec100 = decimal.NewFromInt(100)

// Quote is the result of one ETH to BTC conversion.
type Quote struct {
	BtcAmount decimal.Decimal
	FeeInEth  decimal.Decimal
	FeeInUsd  decimal.Decimal
}

// Options parameterise the calculator.
type Options struct {
	// FeePct is a percentage value (0.03 means a 0.03% fee), divided by 100
	// at calculation time.
	FeePct decimal.Decimal
	// Record persists each computed conversion when enabled.
	Record bool
}

// Calculator converts an ETH amount to BTC using the latest stored ETH/USD
// price and a live BTC/USD quote, with a fixed percentage fee.
type Calculator struct {
	gateway marketdata.Gateway
	prices  storage.PriceStore
	swaps   storage.SwapStore
	opts    Options
	logger  zerolog.Logger
}

// New constructs a Calculator. swaps may be nil when recording is disabled.
func New(gateway marketdata.Gateway, prices storage.PriceStore, swaps storage.SwapStore, opts Options, logger zerolog.Logger) *Calculator {
	return &Calculator{
		gateway: gateway,
		prices:  prices,
		swaps:   swaps,
		opts:    opts,
		logger:  logger.With().Str("component", "swap").Logger(),
	}
}

// Rate computes the BTC amount and fee breakdown for the given ETH amount.
func (c *Calculator) Rate(ctx context.Context, ethAmount decimal.Decimal) (Quote, error) {
	if !ethAmount.IsPositive() {
		return Quote{}, fmt.Errorf("%w: got %s", ErrInvalidAmount, ethAmount.String())
	}

	btcQuote, err := c.gateway.GetQuote(ctx, "BTC")
	if err != nil {
		return Quote{}, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}
	if btcQuote.PriceUSD.IsZero() {
		return Quote{}, fmt.Errorf("%w: zero btc price", ErrRateUnavailable)
	}

	ethUsd := c.latestEthPrice(ctx)

	ethAmountInUsd := ethAmount.Mul(ethUsd)
	btcAmount := ethAmountInUsd.Div(btcQuote.PriceUSD)
	feeInEth := ethAmount.Mul(c.opts.FeePct).Div(dec100)
	feeInUsd := feeInEth.Mul(ethUsd)

	quote := Quote{
		BtcAmount: btcAmount,
		FeeInEth:  feeInEth,
		FeeInUsd:  feeInUsd,
	}

	if c.opts.Record && c.swaps != nil {
		rec := storage.SwapRecord{
			EthAmount: ethAmount,
			BtcAmount: btcAmount,
			FeeInEth:  feeInEth,
			FeeInUsd:  feeInUsd,
		}
		if _, err := c.swaps.InsertSwap(ctx, rec); err != nil {
			c.logger.Error().Err(err).Msg("failed to record swap")
		}
	}

	return quote, nil
}

// latestEthPrice returns the newest stored ETH/USD price, or zero when no
// observation exists yet. The zero case yields a zero conversion rather
// than an error, matching the stored-price-as-best-effort contract.
func (c *Calculator) latestEthPrice(ctx context.Context) decimal.Decimal {
	obs, err := c.prices.LatestBySymbol(ctx, "ETH")
	if errors.Is(err, storage.ErrNotFound) {
		c.logger.Warn().Msg("no stored ETH price, conversion degrades to zero")
		return decimal.Zero
	}
	if err != nil {
		c.logger.Error().Err(err).Msg("eth price lookup failed, conversion degrades to zero")
		return decimal.Zero
	}
	return obs.Price
}
