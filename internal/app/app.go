package app

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"token-price-watcher/internal/alerts"
	"token-price-watcher/internal/config"
	"token-price-watcher/internal/httpapi"
	"token-price-watcher/internal/ingest"
	"token-price-watcher/internal/marketdata"
	"token-price-watcher/internal/movement"
	"token-price-watcher/internal/notify"
	"token-price-watcher/internal/prices"
	"token-price-watcher/internal/scheduler"
	"token-price-watcher/internal/storage"
	"token-price-watcher/internal/storage/cache"
	"token-price-watcher/internal/storage/memory"
	"token-price-watcher/internal/swap"
	"token-price-watcher/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// stores bundles the storage interfaces a command needs, regardless of
// whether they are backed by PostgreSQL or the in-memory fallback.
type stores struct {
	prices storage.PriceStore
	alerts storage.AlertStore
	tokens storage.TokenStore
	swaps  storage.SwapStore
}

// openStores connects to PostgreSQL when a DSN is configured and falls back
// to an in-memory store otherwise, so the service stays runnable without a
// database at the cost of persistence. The optional Redis cache is layered
// over the price store here.
func (a *App) openStores(ctx context.Context) (stores, func(), error) {
	var (
		st     stores
		closer func()
	)

	if a.Config.Database.DSN != "" {
		pool, err := storage.NewPool(ctx, a.Config.Database)
		if err != nil {
			return stores{}, nil, err
		}
		store := storage.NewStore(pool)
		st = stores{prices: store, alerts: store, tokens: store, swaps: store}
		closer = store.Close
	} else {
		a.Logger.Warn().Msg("database.dsn not configured; using in-memory storage")
		mem := memory.NewStore()
		st = stores{prices: mem, alerts: mem, tokens: mem, swaps: mem}
		closer = func() {}
	}

	if a.Config.Redis.Enabled {
		cached := cache.NewPriceStore(st.prices, cache.Options{
			Addr:     a.Config.Redis.Addr,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
			TTL:      a.Config.Redis.TTL,
		}, a.Logger)
		st.prices = cached

		inner := closer
		closer = func() {
			if err := cached.Close(); err != nil {
				a.Logger.Warn().Err(err).Msg("failed to close redis client")
			}
			inner()
		}
	}

	return st, closer, nil
}

func (a *App) newGateway() marketdata.Gateway {
	return marketdata.NewClient(marketdata.Options{
		BaseURL:   a.Config.MarketData.BaseURL,
		APIKey:    a.Config.MarketData.APIKey,
		Timeout:   a.Config.MarketData.RequestTimeout,
		UserAgent: a.Config.MarketData.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() (notify.Notifier, error) {
	if !a.Config.SMTP.Enabled {
		return nil, nil
	}
	return notify.NewSMTPNotifier(notify.SMTPOptions{
		Host:     a.Config.SMTP.Host,
		Port:     a.Config.SMTP.Port,
		Username: a.Config.SMTP.Username,
		Password: a.Config.SMTP.Password,
		From:     a.Config.SMTP.From,
		Timeout:  a.Config.SMTP.Timeout,
	}, a.Logger)
}

func (a *App) newCalculator(gateway marketdata.Gateway, st stores) *swap.Calculator {
	return swap.New(gateway, st.prices, st.swaps, swap.Options{
		FeePct: decimal.NewFromFloat(a.Config.Swap.FeePct),
		Record: a.Config.Swap.Record,
	}, a.Logger)
}

func (a *App) jobOptions(interval time.Duration) scheduler.Options {
	return scheduler.Options{
		Interval:     interval,
		StartupDelay: a.Config.Scheduler.StartupDelay,
		TickTimeout:  a.Config.Scheduler.TickTimeout,
	}
}

// Run executes the long-running watcher: the three scheduled jobs plus the
// JSON API when enabled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, closeStores, err := a.openStores(ctx)
	if err != nil {
		return err
	}
	defer closeStores()

	gateway := a.newGateway()
	notifier, err := a.newNotifier()
	if err != nil {
		return err
	}
	if notifier == nil {
		a.Logger.Warn().Msg("smtp not configured; alerts will be logged only")
	}

	ingestor := ingest.New(gateway, st.prices, st.tokens, a.Config.Ingest.Tokens, a.Logger)
	detector := movement.New(st.prices, notifier, movement.Options{
		Window:       a.Config.Movement.Window,
		ThresholdPct: decimal.NewFromFloat(a.Config.Movement.ThresholdPct),
		Recipient:    a.Config.Movement.Recipient,
	}, a.Logger)
	alertSvc := alerts.New(st.alerts, st.prices, notifier, alerts.Options{
		EnforceTarget: a.Config.Alerts.EnforceTarget,
	}, a.Logger)

	runner := scheduler.NewRunner(a.Logger,
		scheduler.NewJob("ingest", a.jobOptions(a.Config.Ingest.Interval), ingestor.Tick, a.Logger),
		scheduler.NewJob("movement", a.jobOptions(a.Config.Movement.Interval), detector.Tick, a.Logger),
		scheduler.NewJob("alerts", a.jobOptions(a.Config.Alerts.Interval), alertSvc.Tick, a.Logger),
	)

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		errCh <- runner.Run(ctx)
	}()

	if a.Config.HTTP.Enabled {
		srv := httpapi.NewServer(httpapi.Options{
			ListenAddr:      a.Config.HTTP.ListenAddr,
			ShutdownTimeout: a.Config.HTTP.ShutdownTimeout,
		}, a.newCalculator(gateway, st), alertSvc, prices.New(st.prices, a.Logger), a.Logger)

		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- srv.Run(ctx)
		}()
	}

	a.Logger.Info().Str("build", version.String()).Msg("token price watcher started")
	err = <-errCh
	cancel()
	wg.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watcher terminated with error")
		return err
	}
	a.Logger.Info().Msg("token price watcher stopped")
	return nil
}

// ExportOptions hold parameters for exporting a chain's price history.
type ExportOptions struct {
	Chain     string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Chain string
	Limit int
}
