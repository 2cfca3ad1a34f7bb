package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const quotesLatestPath = "/cryptocurrency/quotes/latest"

// Options parameterise the CoinMarketCap client.
type Options struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	UserAgent string
}

// Client fetches quotes from the CoinMarketCap API.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs a CoinMarketCap client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://pro-api.coinmarketcap.com/v1"
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "marketdata").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// GetQuote retrieves the current USD quote for a token symbol. Any transport,
// decode, or provider error is reported as ErrUnavailable; a parsed zero
// price is rejected the same way so degraded upstream data never looks like
// a real market price.
func (c *Client) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Quote{}, fmt.Errorf("%w: empty symbol", ErrUnavailable)
	}

	endpoint := fmt.Sprintf("%s%s?symbol=%s", c.baseURL, quotesLatestPath, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: create request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-CMC_PRO_API_KEY", c.opts.APIKey)
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return Quote{}, parseAPIError(resp.StatusCode, payload)
	}

	var decoded quotesResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return Quote{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if decoded.Status.ErrorCode != 0 {
		return Quote{}, fmt.Errorf("%w: api error (%d): %s", ErrUnavailable, decoded.Status.ErrorCode, decoded.Status.ErrorMessage)
	}

	entry, ok := decoded.Data[symbol]
	if !ok {
		return Quote{}, fmt.Errorf("%w: symbol %s missing from response", ErrUnavailable, symbol)
	}

	usd, ok := entry.Quote["USD"]
	if !ok {
		return Quote{}, fmt.Errorf("%w: no USD quote for %s", ErrUnavailable, symbol)
	}
	if usd.Price.IsZero() {
		return Quote{}, fmt.Errorf("%w: zero price for %s", ErrUnavailable, symbol)
	}

	return Quote{
		Symbol:           entry.Symbol,
		Name:             entry.Name,
		PriceUSD:         usd.Price,
		PercentChange1h:  usd.PercentChange1h,
		PercentChange24h: usd.PercentChange24h,
	}, nil
}

type quotesResponse struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
	Data map[string]quoteEntry `json:"data"`
}

type quoteEntry struct {
	Name   string               `json:"name"`
	Symbol string               `json:"symbol"`
	Quote  map[string]usdDetail `json:"quote"`
}

type usdDetail struct {
	Price            decimal.Decimal `json:"price"`
	PercentChange1h  decimal.Decimal `json:"percent_change_1h"`
	PercentChange24h decimal.Decimal `json:"percent_change_24h"`
}

func parseAPIError(status int, payload []byte) error {
	var decoded quotesResponse
	if err := json.Unmarshal(payload, &decoded); err == nil && decoded.Status.ErrorMessage != "" {
		return fmt.Errorf("%w: api error (%d): %s", ErrUnavailable, status, decoded.Status.ErrorMessage)
	}
	if len(payload) > 0 {
		return fmt.Errorf("%w: api error (%d): %s", ErrUnavailable, status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("%w: api error (%d)", ErrUnavailable, status)
}

var _ Gateway = (*Client)(nil)
