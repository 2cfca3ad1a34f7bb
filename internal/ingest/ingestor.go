package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"token-price-watcher/internal/marketdata"
	"token-price-watcher/internal/storage"
)

// Ingestor pulls current quotes for every supported token and appends one
// observation per successful fetch. A failed fetch skips that token only;
// there is no retry within a tick — the next tick is the retry.
type Ingestor struct {
	gateway  marketdata.Gateway
	prices   storage.PriceStore
	tokens   storage.TokenStore
	fallback []string
	logger   zerolog.Logger
}

// New constructs an Ingestor. fallback names the symbols to poll when the
// supported-token registry is empty or unavailable.
func New(gateway marketdata.Gateway, prices storage.PriceStore, tokens storage.TokenStore, fallback []string, logger zerolog.Logger) *Ingestor {
	return &Ingestor{
		gateway:  gateway,
		prices:   prices,
		tokens:   tokens,
		fallback: fallback,
		logger:   logger.With().Str("component", "ingest").Logger(),
	}
}

// Tick runs one ingestion pass with timestamp = tick execution time.
func (i *Ingestor) Tick(ctx context.Context, now time.Time) error {
	symbols := i.pollList(ctx)
	if len(symbols) == 0 {
		i.logger.Warn().Msg("no supported tokens to poll")
		return nil
	}

	var failed int
	for _, symbol := range symbols {
		quote, err := i.gateway.GetQuote(ctx, symbol)
		if err != nil {
			failed++
			i.logger.Warn().Err(err).Str("symbol", symbol).Msg("quote fetch failed, skipping token")
			continue
		}

		obs := storage.PriceObservation{
			Chain:            quote.Name,
			Symbol:           quote.Symbol,
			Price:            quote.PriceUSD,
			PercentChange1h:  quote.PercentChange1h,
			PercentChange24h: quote.PercentChange24h,
			Timestamp:        now,
		}
		if _, err := i.prices.InsertObservation(ctx, obs); err != nil {
			failed++
			i.logger.Error().Err(err).Str("symbol", symbol).Msg("failed to persist observation")
			continue
		}

		i.logger.Info().
			Str("symbol", quote.Symbol).
			Str("chain", quote.Name).
			Str("price_usd", quote.PriceUSD.String()).
			Msg("observation recorded")
	}

	if failed == len(symbols) {
		return fmt.Errorf("all %d token fetches failed", failed)
	}
	return nil
}

func (i *Ingestor) pollList(ctx context.Context) []string {
	if i.tokens != nil {
		tokens, err := i.tokens.SupportedTokens(ctx)
		if err != nil {
			i.logger.Warn().Err(err).Msg("supported-token lookup failed, using configured fallback")
		} else if len(tokens) > 0 {
			symbols := make([]string, 0, len(tokens))
			for _, tok := range tokens {
				symbols = append(symbols, tok.Name)
			}
			return symbols
		}
	}
	return i.fallback
}
