package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"token-price-watcher/internal/storage"
)

// Store is an in-memory implementation of the storage interfaces. It backs
// unit tests and DSN-less runs of the service.
type Store struct {
	mu           sync.RWMutex
	nextID       int64
	observations []storage.PriceObservation
	alerts       []storage.AlertSubscription
	tokens       []storage.SupportedToken
	swaps        []storage.SwapRecord
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) allocID() int64 {
	s.nextID++
	return s.nextID
}

// InsertObservation appends one price sample.
func (s *Store) InsertObservation(_ context.Context, obs storage.PriceObservation) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obs.ID = s.allocID()
	s.observations = append(s.observations, obs)
	return obs.ID, nil
}

// LatestObservation returns the newest sample for a chain.
func (s *Store) LatestObservation(_ context.Context, chain string) (storage.PriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest storage.PriceObservation
		found  bool
	)
	for _, obs := range s.observations {
		if obs.Chain != chain {
			continue
		}
		if !found || obs.Timestamp.After(latest.Timestamp) {
			latest = obs
			found = true
		}
	}
	if !found {
		return storage.PriceObservation{}, storage.ErrNotFound
	}
	return latest, nil
}

// LatestBySymbol returns the newest sample for a token symbol.
func (s *Store) LatestBySymbol(_ context.Context, symbol string) (storage.PriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest storage.PriceObservation
		found  bool
	)
	for _, obs := range s.observations {
		if obs.Symbol != symbol {
			continue
		}
		if !found || obs.Timestamp.After(latest.Timestamp) {
			latest = obs
			found = true
		}
	}
	if !found {
		return storage.PriceObservation{}, storage.ErrNotFound
	}
	return latest, nil
}

// ListObservations lists every sample for a chain ordered by timestamp.
func (s *Store) ListObservations(_ context.Context, chain string) ([]storage.PriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]storage.PriceObservation, 0)
	for _, obs := range s.observations {
		if obs.Chain == chain {
			result = append(result, obs)
		}
	}
	sortByTimestamp(result)
	return result, nil
}

// NearestAfter returns the newest sample for a chain observed after since.
func (s *Store) NearestAfter(_ context.Context, chain string, since time.Time) (storage.PriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		nearest storage.PriceObservation
		found   bool
	)
	for _, obs := range s.observations {
		if obs.Chain != chain || !obs.Timestamp.After(since) {
			continue
		}
		if !found || obs.Timestamp.After(nearest.Timestamp) {
			nearest = obs
			found = true
		}
	}
	if !found {
		return storage.PriceObservation{}, storage.ErrNotFound
	}
	return nearest, nil
}

// ListObservationsSince lists samples across all chains observed after since.
func (s *Store) ListObservationsSince(_ context.Context, since time.Time) ([]storage.PriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]storage.PriceObservation, 0)
	for _, obs := range s.observations {
		if obs.Timestamp.After(since) {
			result = append(result, obs)
		}
	}
	sortByTimestamp(result)
	return result, nil
}

// Chains lists the distinct chains present in the time series.
func (s *Store) Chains(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	chains := make([]string, 0)
	for _, obs := range s.observations {
		if _, ok := seen[obs.Chain]; ok {
			continue
		}
		seen[obs.Chain] = struct{}{}
		chains = append(chains, obs.Chain)
	}
	sort.Strings(chains)
	return chains, nil
}

// AlertExists reports whether a subscription exists for (chain, email).
func (s *Store) AlertExists(_ context.Context, chain, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.alerts {
		if sub.Chain == chain && sub.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// InsertAlert persists a new subscription.
func (s *Store) InsertAlert(_ context.Context, sub storage.AlertSubscription) (storage.AlertSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub.ID = s.allocID()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	s.alerts = append(s.alerts, sub)
	return sub, nil
}

// ListAlerts lists every standing subscription.
func (s *Store) ListAlerts(_ context.Context) ([]storage.AlertSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]storage.AlertSubscription, len(s.alerts))
	copy(result, s.alerts)
	return result, nil
}

// SeedTokens replaces the supported-token registry.
func (s *Store) SeedTokens(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = s.tokens[:0]
	for _, name := range names {
		s.tokens = append(s.tokens, storage.SupportedToken{
			ID:          s.allocID(),
			Name:        name,
			IsSupported: true,
			CreatedAt:   time.Now().UTC(),
		})
	}
}

// SupportedTokens lists tokens currently flagged supported.
func (s *Store) SupportedTokens(_ context.Context) ([]storage.SupportedToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]storage.SupportedToken, 0, len(s.tokens))
	for _, tok := range s.tokens {
		if tok.IsSupported {
			result = append(result, tok)
		}
	}
	return result, nil
}

// InsertSwap records a computed conversion.
func (s *Store) InsertSwap(_ context.Context, rec storage.SwapRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.allocID()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.swaps = append(s.swaps, rec)
	return rec.ID, nil
}

// Swaps returns recorded conversions, for assertions in tests.
func (s *Store) Swaps() []storage.SwapRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]storage.SwapRecord, len(s.swaps))
	copy(result, s.swaps)
	return result
}

// ObservationCount reports the number of stored samples.
func (s *Store) ObservationCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observations)
}

func sortByTimestamp(observations []storage.PriceObservation) {
	sort.SliceStable(observations, func(i, j int) bool {
		return observations[i].Timestamp.Before(observations[j].Timestamp)
	})
}

var (
	_ storage.PriceStore = (*Store)(nil)
	_ storage.AlertStore = (*Store)(nil)
	_ storage.TokenStore = (*Store)(nil)
	_ storage.SwapStore  = (*Store)(nil)
)
