package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"token-price-watcher/internal/alerts"
	"token-price-watcher/internal/prices"
	"token-price-watcher/internal/swap"
)

// Options tune the HTTP listener.
type Options struct {
	ListenAddr      string
	ShutdownTimeout time.Duration
}

// Server exposes the swap, alert-registration, and price-history surfaces
// over JSON. Validation happens here, before any upstream call.
type Server struct {
	opts    Options
	calc    *swap.Calculator
	alerts  *alerts.Service
	history *prices.Service
	logger  zerolog.Logger
	httpSrv *http.Server
}

// NewServer wires the handlers onto a mux.
func NewServer(opts Options, calc *swap.Calculator, alertSvc *alerts.Service, history *prices.Service, logger zerolog.Logger) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		opts:    opts,
		calc:    calc,
		alerts:  alertSvc,
		history: history,
		logger:  logger.With().Str("component", "httpapi").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /swap/rate", s.handleSwapRate)
	mux.HandleFunc("POST /price-alert/set", s.handleSetAlert)
	mux.HandleFunc("GET /prices/history", s.handleHistory)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpSrv = &http.Server{
		Addr:              opts.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the underlying handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.opts.ListenAddr).Msg("http api listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return <-errCh
}

type feePayload struct {
	Eth decimal.Decimal `json:"eth"`
	Usd decimal.Decimal `json:"usd"`
}

type swapRatePayload struct {
	BtcAmount decimal.Decimal `json:"btcAmount"`
	Fee       feePayload      `json:"fee"`
}

type setAlertRequest struct {
	Chain string          `json:"chain"`
	Price decimal.Decimal `json:"price"`
	Email string          `json:"email"`
}

type messagePayload struct {
	Message string `json:"message"`
}

type errorPayload struct {
	Error string `json:"error"`
}

func (s *Server) handleSwapRate(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ethAmount")
	amount, err := decimal.NewFromString(raw)
	if err != nil || !amount.IsPositive() {
		s.writeJSON(w, http.StatusBadRequest, errorPayload{Error: "Invalid ETH amount"})
		return
	}

	quote, err := s.calc.Rate(r.Context(), amount)
	switch {
	case errors.Is(err, swap.ErrInvalidAmount):
		s.writeJSON(w, http.StatusBadRequest, errorPayload{Error: "Invalid ETH amount"})
		return
	case errors.Is(err, swap.ErrRateUnavailable):
		s.writeJSON(w, http.StatusServiceUnavailable, errorPayload{Error: "Could not retrieve exchange rate"})
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("swap rate failed")
		s.writeJSON(w, http.StatusInternalServerError, errorPayload{Error: "Internal Server Error"})
		return
	}

	s.writeJSON(w, http.StatusOK, swapRatePayload{
		BtcAmount: quote.BtcAmount,
		Fee:       feePayload{Eth: quote.FeeInEth, Usd: quote.FeeInUsd},
	})
}

func (s *Server) handleSetAlert(w http.ResponseWriter, r *http.Request) {
	var req setAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorPayload{Error: "Invalid request body"})
		return
	}
	if req.Chain == "" || req.Email == "" || !req.Price.IsPositive() {
		s.writeJSON(w, http.StatusBadRequest, errorPayload{Error: "chain, price, and email are required"})
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorPayload{Error: "Invalid email address"})
		return
	}

	_, err := s.alerts.SetAlert(r.Context(), req.Chain, req.Price, req.Email)
	switch {
	case errors.Is(err, alerts.ErrDuplicate):
		s.writeJSON(w, http.StatusConflict, messagePayload{
			Message: fmt.Sprintf("Price alert already exists for %s.", req.Chain),
		})
		return
	case errors.Is(err, alerts.ErrInvalid):
		s.writeJSON(w, http.StatusBadRequest, errorPayload{Error: err.Error()})
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("set alert failed")
		s.writeJSON(w, http.StatusInternalServerError, errorPayload{Error: "Internal Server Error"})
		return
	}

	s.writeJSON(w, http.StatusCreated, messagePayload{
		Message: fmt.Sprintf("Price alert set for %s at %s USD.", req.Chain, req.Price.String()),
	})
}

type historyObservation struct {
	Chain            string          `json:"chain"`
	Symbol           string          `json:"symbol"`
	Price            decimal.Decimal `json:"price"`
	PercentChange1h  decimal.Decimal `json:"percentChange1h"`
	PercentChange24h decimal.Decimal `json:"percentChange24h"`
	Timestamp        time.Time       `json:"timestamp"`
}

type historyBucket struct {
	Hour         time.Time            `json:"hour"`
	Observations []historyObservation `json:"observations"`
}

type historyPayload struct {
	Data []historyBucket `json:"data"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	buckets, err := s.history.Last24Hours(r.Context(), time.Now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("history query failed")
		s.writeJSON(w, http.StatusInternalServerError, errorPayload{Error: "Internal Server Error"})
		return
	}

	payload := historyPayload{Data: make([]historyBucket, 0, len(buckets))}
	for _, bucket := range buckets {
		out := historyBucket{Hour: bucket.Hour, Observations: make([]historyObservation, 0, len(bucket.Observations))}
		for _, obs := range bucket.Observations {
			out.Observations = append(out.Observations, historyObservation{
				Chain:            obs.Chain,
				Symbol:           obs.Symbol,
				Price:            obs.Price,
				PercentChange1h:  obs.PercentChange1h,
				PercentChange24h: obs.PercentChange24h,
				Timestamp:        obs.Timestamp,
			})
		}
		payload.Data = append(payload.Data, out)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, messagePayload{Message: "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}
