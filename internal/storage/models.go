package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceObservation is one timestamped price sample for a chain. Rows are
// append-only; one row per ingestion tick per symbol.
type PriceObservation struct {
	ID               int64
	Chain            string
	Symbol           string
	Price            decimal.Decimal
	PercentChange1h  decimal.Decimal
	PercentChange24h decimal.Decimal
	Timestamp        time.Time
}

// AlertSubscription is a standing request to be notified about a chain's price.
// At most one active subscription per (chain, email) pair.
type AlertSubscription struct {
	ID          int64
	Chain       string
	TargetPrice decimal.Decimal
	Email       string
	IsTriggered bool
	CreatedAt   time.Time
}

// SupportedToken governs which symbols the ingestion loop polls.
type SupportedToken struct {
	ID          int64
	Name        string
	IsSupported bool
	CreatedAt   time.Time
}

// SwapRecord captures a computed ETH to BTC conversion.
type SwapRecord struct {
	ID        int64
	EthAmount decimal.Decimal
	BtcAmount decimal.Decimal
	FeeInEth  decimal.Decimal
	FeeInUsd  decimal.Decimal
	CreatedAt time.Time
}
