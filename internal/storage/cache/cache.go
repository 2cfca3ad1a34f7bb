package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"token-price-watcher/internal/storage"
)

// Options tune the latest-observation cache.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// PriceStore decorates a storage.PriceStore with a Redis read-through cache
// for the latest observation per chain. Every other query goes straight to
// the inner store. Cache failures degrade to the inner store, never to the
// caller.
type PriceStore struct {
	inner  storage.PriceStore
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewPriceStore wires a Redis client in front of the inner store.
func NewPriceStore(inner storage.PriceStore, opts Options, logger zerolog.Logger) *PriceStore {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	return &PriceStore{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "price_cache").Logger(),
	}
}

// Close releases the Redis client.
func (c *PriceStore) Close() error {
	return c.client.Close()
}

func latestKey(chain string) string {
	return fmt.Sprintf("latest:%s", chain)
}

// LatestObservation serves from Redis when possible, falling back to the
// inner store and priming the cache on a miss.
func (c *PriceStore) LatestObservation(ctx context.Context, chain string) (storage.PriceObservation, error) {
	payload, err := c.client.Get(ctx, latestKey(chain)).Result()
	if err == nil {
		var obs storage.PriceObservation
		if unmarshalErr := json.Unmarshal([]byte(payload), &obs); unmarshalErr == nil {
			return obs, nil
		}
		c.logger.Warn().Str("chain", chain).Msg("discarding undecodable cache entry")
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn().Err(err).Str("chain", chain).Msg("cache read failed, falling back to store")
	}

	obs, err := c.inner.LatestObservation(ctx, chain)
	if err != nil {
		return storage.PriceObservation{}, err
	}

	c.prime(ctx, obs)
	return obs, nil
}

// InsertObservation writes through to the inner store and refreshes the
// cached latest entry for the chain.
func (c *PriceStore) InsertObservation(ctx context.Context, obs storage.PriceObservation) (int64, error) {
	id, err := c.inner.InsertObservation(ctx, obs)
	if err != nil {
		return 0, err
	}
	obs.ID = id
	c.prime(ctx, obs)
	return id, nil
}

func (c *PriceStore) prime(ctx context.Context, obs storage.PriceObservation) {
	payload, err := json.Marshal(obs)
	if err != nil {
		c.logger.Warn().Err(err).Str("chain", obs.Chain).Msg("failed to encode cache entry")
		return
	}
	if err := c.client.Set(ctx, latestKey(obs.Chain), payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("chain", obs.Chain).Msg("cache write failed")
	}
}

// LatestBySymbol delegates to the inner store.
func (c *PriceStore) LatestBySymbol(ctx context.Context, symbol string) (storage.PriceObservation, error) {
	return c.inner.LatestBySymbol(ctx, symbol)
}

// ListObservations delegates to the inner store.
func (c *PriceStore) ListObservations(ctx context.Context, chain string) ([]storage.PriceObservation, error) {
	return c.inner.ListObservations(ctx, chain)
}

// NearestAfter delegates to the inner store.
func (c *PriceStore) NearestAfter(ctx context.Context, chain string, since time.Time) (storage.PriceObservation, error) {
	return c.inner.NearestAfter(ctx, chain, since)
}

// ListObservationsSince delegates to the inner store.
func (c *PriceStore) ListObservationsSince(ctx context.Context, since time.Time) ([]storage.PriceObservation, error) {
	return c.inner.ListObservationsSince(ctx, since)
}

// Chains delegates to the inner store.
func (c *PriceStore) Chains(ctx context.Context) ([]string, error) {
	return c.inner.Chains(ctx)
}

var _ storage.PriceStore = (*PriceStore)(nil)
