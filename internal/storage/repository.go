package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("storage: not found")
)

const (
	insertObservationSQL = `INSERT INTO prices (
        chain,
        symbol,
        price,
        percent_change_1h,
        percent_change_24h,
        observed_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    ) RETURNING id;`

	latestObservationSQL = `SELECT
        id, chain, symbol, price, percent_change_1h, percent_change_24h, observed_at
    FROM prices
    WHERE chain = $1
    ORDER BY observed_at DESC
    LIMIT 1;`

	listObservationsByChainSQL = `SELECT
        id, chain, symbol, price, percent_change_1h, percent_change_24h, observed_at
    FROM prices
    WHERE chain = $1
    ORDER BY observed_at;`

	latestBySymbolSQL = `SELECT
        id, chain, symbol, price, percent_change_1h, percent_change_24h, observed_at
    FROM prices
    WHERE symbol = $1
    ORDER BY observed_at DESC
    LIMIT 1;`

	nearestAfterSQL = `SELECT
        id, chain, symbol, price, percent_change_1h, percent_change_24h, observed_at
    FROM prices
    WHERE chain = $1
      AND observed_at > $2
    ORDER BY observed_at DESC
    LIMIT 1;`

	listObservationsSinceSQL = `SELECT
        id, chain, symbol, price, percent_change_1h, percent_change_24h, observed_at
    FROM prices
    WHERE observed_at > $1
    ORDER BY observed_at;`

	distinctChainsSQL = `SELECT DISTINCT chain FROM prices ORDER BY chain;`

	alertExistsSQL = `SELECT EXISTS (
        SELECT 1 FROM alerts WHERE chain = $1 AND email = $2
    );`

	insertAlertSQL = `INSERT INTO alerts (
        chain, target_price, email, is_triggered
    ) VALUES (
        $1,$2,$3,false
    ) RETURNING id, created_at;`

	listAlertsSQL = `SELECT
        id, chain, target_price, email, is_triggered, created_at
    FROM alerts
    ORDER BY created_at;`

	supportedTokensSQL = `SELECT
        id, name, is_supported, created_at
    FROM supported_tokens
    WHERE is_supported
    ORDER BY name;`

	insertSwapSQL = `INSERT INTO swaps (
        eth_amount, btc_amount, fee_in_eth, fee_in_usd
    ) VALUES (
        $1,$2,$3,$4
    ) RETURNING id;`
)

// PriceStore defines operations over the price time series.
type PriceStore interface {
	InsertObservation(ctx context.Context, obs PriceObservation) (int64, error)
	LatestObservation(ctx context.Context, chain string) (PriceObservation, error)
	LatestBySymbol(ctx context.Context, symbol string) (PriceObservation, error)
	ListObservations(ctx context.Context, chain string) ([]PriceObservation, error)
	NearestAfter(ctx context.Context, chain string, since time.Time) (PriceObservation, error)
	ListObservationsSince(ctx context.Context, since time.Time) ([]PriceObservation, error)
	Chains(ctx context.Context) ([]string, error)
}

// AlertStore defines operations over standing alert subscriptions.
type AlertStore interface {
	AlertExists(ctx context.Context, chain, email string) (bool, error)
	InsertAlert(ctx context.Context, sub AlertSubscription) (AlertSubscription, error)
	ListAlerts(ctx context.Context) ([]AlertSubscription, error)
}

// TokenStore exposes the supported-token registry.
type TokenStore interface {
	SupportedTokens(ctx context.Context) ([]SupportedToken, error)
}

// SwapStore records computed swaps.
type SwapStore interface {
	InsertSwap(ctx context.Context, rec SwapRecord) (int64, error)
}

// Store aggregates Postgres access to prices, alerts, tokens, and swaps.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertObservation appends one price sample.
func (s *Store) InsertObservation(ctx context.Context, obs PriceObservation) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	var id int64
	scanErr := pool.QueryRow(ctx, insertObservationSQL,
		obs.Chain,
		obs.Symbol,
		obs.Price.String(),
		obs.PercentChange1h.String(),
		obs.PercentChange24h.String(),
		obs.Timestamp,
	).Scan(&id)
	if scanErr != nil {
		return 0, fmt.Errorf("insert observation: %w", scanErr)
	}
	return id, nil
}

// LatestObservation returns the newest sample for a chain.
func (s *Store) LatestObservation(ctx context.Context, chain string) (PriceObservation, error) {
	pool, err := s.getPool()
	if err != nil {
		return PriceObservation{}, err
	}

	rows, queryErr := pool.Query(ctx, latestObservationSQL, chain)
	if queryErr != nil {
		return PriceObservation{}, fmt.Errorf("latest observation: %w", queryErr)
	}
	defer rows.Close()

	return scanOne(rows)
}

// LatestBySymbol returns the newest sample for a token symbol.
func (s *Store) LatestBySymbol(ctx context.Context, symbol string) (PriceObservation, error) {
	pool, err := s.getPool()
	if err != nil {
		return PriceObservation{}, err
	}

	rows, queryErr := pool.Query(ctx, latestBySymbolSQL, symbol)
	if queryErr != nil {
		return PriceObservation{}, fmt.Errorf("latest by symbol: %w", queryErr)
	}
	defer rows.Close()

	return scanOne(rows)
}

// ListObservations lists every sample for a chain ordered by timestamp.
func (s *Store) ListObservations(ctx context.Context, chain string) ([]PriceObservation, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listObservationsByChainSQL, chain)
	if queryErr != nil {
		return nil, fmt.Errorf("list observations: %w", queryErr)
	}
	defer rows.Close()

	return scanAll(rows)
}

// NearestAfter returns the newest sample for a chain observed after since.
func (s *Store) NearestAfter(ctx context.Context, chain string, since time.Time) (PriceObservation, error) {
	pool, err := s.getPool()
	if err != nil {
		return PriceObservation{}, err
	}

	rows, queryErr := pool.Query(ctx, nearestAfterSQL, chain, since)
	if queryErr != nil {
		return PriceObservation{}, fmt.Errorf("nearest after: %w", queryErr)
	}
	defer rows.Close()

	return scanOne(rows)
}

// ListObservationsSince lists samples across all chains observed after since.
func (s *Store) ListObservationsSince(ctx context.Context, since time.Time) ([]PriceObservation, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listObservationsSinceSQL, since)
	if queryErr != nil {
		return nil, fmt.Errorf("list observations since: %w", queryErr)
	}
	defer rows.Close()

	return scanAll(rows)
}

// Chains lists the distinct chains present in the time series.
func (s *Store) Chains(ctx context.Context) ([]string, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, distinctChainsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("distinct chains: %w", queryErr)
	}
	defer rows.Close()

	chains := make([]string, 0)
	for rows.Next() {
		var chain string
		if err := rows.Scan(&chain); err != nil {
			return nil, err
		}
		chains = append(chains, chain)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return chains, nil
}

// AlertExists reports whether a subscription exists for (chain, email).
func (s *Store) AlertExists(ctx context.Context, chain, email string) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}

	var exists bool
	if scanErr := pool.QueryRow(ctx, alertExistsSQL, chain, email).Scan(&exists); scanErr != nil {
		return false, fmt.Errorf("alert exists: %w", scanErr)
	}
	return exists, nil
}

// InsertAlert persists a new subscription.
func (s *Store) InsertAlert(ctx context.Context, sub AlertSubscription) (AlertSubscription, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertSubscription{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL, sub.Chain, sub.TargetPrice.String(), sub.Email)
	if scanErr := row.Scan(&sub.ID, &sub.CreatedAt); scanErr != nil {
		return AlertSubscription{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return sub, nil
}

// ListAlerts lists every standing subscription.
func (s *Store) ListAlerts(ctx context.Context) ([]AlertSubscription, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAlertsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list alerts: %w", queryErr)
	}
	defer rows.Close()

	subs := make([]AlertSubscription, 0)
	for rows.Next() {
		var sub AlertSubscription
		var targetStr string
		if err := rows.Scan(&sub.ID, &sub.Chain, &targetStr, &sub.Email, &sub.IsTriggered, &sub.CreatedAt); err != nil {
			return nil, err
		}
		target, convErr := decimal.NewFromString(targetStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse target price: %w", convErr)
		}
		sub.TargetPrice = target
		subs = append(subs, sub)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return subs, nil
}

// SupportedTokens lists tokens currently flagged supported.
func (s *Store) SupportedTokens(ctx context.Context) ([]SupportedToken, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, supportedTokensSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("supported tokens: %w", queryErr)
	}
	defer rows.Close()

	tokens := make([]SupportedToken, 0)
	for rows.Next() {
		var tok SupportedToken
		if err := rows.Scan(&tok.ID, &tok.Name, &tok.IsSupported, &tok.CreatedAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return tokens, nil
}

// InsertSwap records a computed conversion.
func (s *Store) InsertSwap(ctx context.Context, rec SwapRecord) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	var id int64
	scanErr := pool.QueryRow(ctx, insertSwapSQL,
		rec.EthAmount.String(),
		rec.BtcAmount.String(),
		rec.FeeInEth.String(),
		rec.FeeInUsd.String(),
	).Scan(&id)
	if scanErr != nil {
		return 0, fmt.Errorf("insert swap: %w", scanErr)
	}
	return id, nil
}

func scanOne(rows pgx.Rows) (PriceObservation, error) {
	if !rows.Next() {
		if rows.Err() != nil {
			return PriceObservation{}, rows.Err()
		}
		return PriceObservation{}, ErrNotFound
	}
	return scanObservation(rows)
}

func scanAll(rows pgx.Rows) ([]PriceObservation, error) {
	observations := make([]PriceObservation, 0)
	for rows.Next() {
		obs, scanErr := scanObservation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		observations = append(observations, obs)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return observations, nil
}

func scanObservation(rows pgx.Rows) (PriceObservation, error) {
	var (
		obs         PriceObservation
		priceStr    string
		change1hStr string
		change24Str string
	)

	if err := rows.Scan(
		&obs.ID,
		&obs.Chain,
		&obs.Symbol,
		&priceStr,
		&change1hStr,
		&change24Str,
		&obs.Timestamp,
	); err != nil {
		return PriceObservation{}, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return PriceObservation{}, fmt.Errorf("parse price: %w", err)
	}
	change1h, err := decimal.NewFromString(change1hStr)
	if err != nil {
		return PriceObservation{}, fmt.Errorf("parse percent change 1h: %w", err)
	}
	change24h, err := decimal.NewFromString(change24Str)
	if err != nil {
		return PriceObservation{}, fmt.Errorf("parse percent change 24h: %w", err)
	}

	obs.Price = price
	obs.PercentChange1h = change1h
	obs.PercentChange24h = change24h
	return obs, nil
}

var (
	_ PriceStore = (*Store)(nil)
	_ AlertStore = (*Store)(nil)
	_ TokenStore = (*Store)(nil)
	_ SwapStore  = (*Store)(nil)
)
