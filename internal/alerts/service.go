package alerts

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

var (
	// ErrDuplicate reports an existing active subscription for (chain, email).
	ErrDuplicate = errors.New("alerts: subscription already exists")
	// ErrInvalid reports a rejected registration before any write.
	ErrInvalid = errors.New("alerts: invalid subscription")
)

// Options tune evaluation behaviour.
type Options struct {
	// EnforceTarget gates the target-price comparison. Off, every evaluation
	// tick notifies each subscriber with the latest price regardless of the
	// stored target. On, a subscriber is notified only once the latest price
	// is at or below its target.
	EnforceTarget bool
}

// Service registers alert subscriptions and periodically evaluates them.
type Service struct {
	alerts   storage.AlertStore
	prices   storage.PriceStore
	notifier notify.Notifier
	opts     Options
	logger   zerolog.Logger
}

// New constructs the alert service.
func New(alerts storage.AlertStore, prices storage.PriceStore, notifier notify.Notifier, opts Options, logger zerolog.Logger) *Service {
	return &Service{
		alerts:   alerts,
		prices:   prices,
		notifier: notifier,
		opts:     opts,
		logger:   logger.With().Str("component", "alerts").Logger(),
	}
}

// SetAlert registers a standing subscription. A second registration for the
// same (chain, email) pair is a conflict, checked before the insert; the
// check-then-insert is not atomic under concurrent writers.
func (s *Service) SetAlert(ctx context.Context, chain string, targetPrice decimal.Decimal, email string) (storage.AlertSubscription, error) {
	if chain == "" {
		return storage.AlertSubscription{}, fmt.Errorf("%w: chain is required", ErrInvalid)
	}
	if email == "" {
		return storage.AlertSubscription{}, fmt.Errorf("%w: email is required", ErrInvalid)
	}
	if !targetPrice.IsPositive() {
		return storage.AlertSubscription{}, fmt.Errorf("%w: target price must be positive", ErrInvalid)
	}

	exists, err := s.alerts.AlertExists(ctx, chain, email)
	if err != nil {
		return storage.AlertSubscription{}, fmt.Errorf("check existing alert: %w", err)
	}
	if exists {
		return storage.AlertSubscription{}, fmt.Errorf("%w: %s for %s", ErrDuplicate, chain, email)
	}

	sub, err := s.alerts.InsertAlert(ctx, storage.AlertSubscription{
		Chain:       chain,
		TargetPrice: targetPrice,
		Email:       email,
	})
	if err != nil {
		return storage.AlertSubscription{}, fmt.Errorf("insert alert: %w", err)
	}

	s.logger.Info().Str("chain", chain).Str("email", email).
		Str("target_price", targetPrice.String()).Msg("price alert registered")
	return sub, nil
}

// Tick evaluates every standing subscription against the latest stored price
// for its chain. A failure on one subscription is logged and never aborts
// the rest of the tick.
func (s *Service) Tick(ctx context.Context, _ time.Time) error {
	subs, err := s.alerts.ListAlerts(ctx)
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}

	for _, sub := range subs {
		latest, err := s.prices.LatestObservation(ctx, sub.Chain)
		if err != nil {
			s.logger.Warn().Err(err).Str("chain", sub.Chain).Str("email", sub.Email).
				Msg("no price available for alert, skipping")
			continue
		}

		if s.opts.EnforceTarget && latest.Price.GreaterThan(sub.TargetPrice) {
			continue
		}

		msg := notify.TargetAlert(sub.Email, sub.Chain, latest.Price)
		if s.notifier == nil {
			continue
		}
		if err := s.notifier.Send(ctx, msg); err != nil {
			s.logger.Error().Err(err).Str("chain", sub.Chain).Str("email", sub.Email).
				Msg("failed to dispatch target alert")
		}
	}
	return nil
}
