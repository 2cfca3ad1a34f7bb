package prices

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"token-price-watcher/internal/storage"
)

// HourlyBucket groups the observations recorded within one clock hour.
type HourlyBucket struct {
	Hour         time.Time
	Observations []storage.PriceObservation
}

// Service serves read-side queries over the price time series.
type Service struct {
	prices storage.PriceStore
	logger zerolog.Logger
}

// New constructs the query service.
func New(prices storage.PriceStore, logger zerolog.Logger) *Service {
	return &Service{
		prices: prices,
		logger: logger.With().Str("component", "prices").Logger(),
	}
}

// Last24Hours returns the past day's observations across all chains grouped
// into hour buckets, oldest bucket first.
func (s *Service) Last24Hours(ctx context.Context, now time.Time) ([]HourlyBucket, error) {
	since := now.Add(-24 * time.Hour)
	observations, err := s.prices.ListObservationsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("list observations since %s: %w", since.Format(time.RFC3339), err)
	}

	buckets := make([]HourlyBucket, 0)
	index := make(map[time.Time]int)
	for _, obs := range observations {
		hour := obs.Timestamp.UTC().Truncate(time.Hour)
		i, ok := index[hour]
		if !ok {
			i = len(buckets)
			index[hour] = i
			buckets = append(buckets, HourlyBucket{Hour: hour})
		}
		buckets[i].Observations = append(buckets[i].Observations, obs)
	}
	return buckets, nil
}
