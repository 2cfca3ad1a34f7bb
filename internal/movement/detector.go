package movement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"token-price-watcher/internal/notify"
	"token-price-watcher/internal/storage"
)

var dec100 = decimal.NewFromInt(100)

// Options tune the detector.
type Options struct {
	Window       time.Duration
	ThresholdPct decimal.Decimal
	Recipient    string
}

// Detector compares each chain's observations against the newest observation
// inside the lookback window and notifies on a threshold-crossing increase.
// Multiple observations in one chain can each trigger independently within a
// tick; there is no per-tick dedup.
type Detector struct {
	prices   storage.PriceStore
	notifier notify.Notifier
	opts     Options
	logger   zerolog.Logger
}

// New constructs a Detector.
func New(prices storage.PriceStore, notifier notify.Notifier, opts Options, logger zerolog.Logger) *Detector {
	if opts.Window <= 0 {
		opts.Window = time.Hour
	}
	return &Detector{
		prices:   prices,
		notifier: notifier,
		opts:     opts,
		logger:   logger.With().Str("component", "movement").Logger(),
	}
}

// Tick runs one detection pass over every chain in the store.
func (d *Detector) Tick(ctx context.Context, now time.Time) error {
	chains, err := d.prices.Chains(ctx)
	if err != nil {
		return fmt.Errorf("list chains: %w", err)
	}

	cutoff := now.Add(-d.opts.Window)
	for _, chain := range chains {
		if err := d.checkChain(ctx, chain, cutoff); err != nil {
			d.logger.Error().Err(err).Str("chain", chain).Msg("movement check failed")
		}
	}
	return nil
}

func (d *Detector) checkChain(ctx context.Context, chain string, cutoff time.Time) error {
	observations, err := d.prices.ListObservations(ctx, chain)
	if err != nil {
		return fmt.Errorf("list observations: %w", err)
	}

	for _, obs := range observations {
		reference, err := d.prices.NearestAfter(ctx, chain, cutoff)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reference lookup: %w", err)
		}

		// A zero reference would divide by zero; treat the observation as
		// unverifiable and move on.
		if reference.Price.IsZero() {
			d.logger.Warn().Str("chain", chain).Time("reference", reference.Timestamp).
				Msg("zero reference price, skipping observation")
			continue
		}

		change := obs.Price.Sub(reference.Price).Div(reference.Price).Mul(dec100)
		if change.GreaterThanOrEqual(d.opts.ThresholdPct) {
			d.emit(ctx, chain, obs.Price, change)
		}
	}
	return nil
}

func (d *Detector) emit(ctx context.Context, chain string, price, changePct decimal.Decimal) {
	d.logger.Info().
		Str("chain", chain).
		Str("price", price.String()).
		Str("change_pct", changePct.String()).
		Msg("threshold-crossing movement detected")

	if d.notifier == nil || d.opts.Recipient == "" {
		return
	}

	msg := notify.MovementAlert(d.opts.Recipient, chain, price, d.opts.ThresholdPct)
	if err := d.notifier.Send(ctx, msg); err != nil {
		d.logger.Error().Err(err).Str("chain", chain).Msg("failed to dispatch movement alert")
	}
}
