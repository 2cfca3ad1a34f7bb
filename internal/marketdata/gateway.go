package marketdata

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Quote is one current price snapshot for a token symbol.
type Quote struct {
	Symbol           string
	Name             string
	PriceUSD         decimal.Decimal
	PercentChange1h  decimal.Decimal
	PercentChange24h decimal.Decimal
}

// ErrUnavailable wraps every transport, decode, or provider-side failure so
// callers can tell "fetch failed" apart from a genuine zero price.
var ErrUnavailable = errors.New("marketdata: quote unavailable")

// Gateway retrieves a current quote for a token symbol.
type Gateway interface {
	GetQuote(ctx context.Context, symbol string) (Quote, error)
}
