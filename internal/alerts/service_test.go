package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"token-price-watcher/internal/notify"
	"token-price-watcher/internal/storage"
	"token-price-watcher/internal/storage/memory"
)

type captureNotifier struct {
	sent []notify.Message
}

func (c *captureNotifier) Send(_ context.Context, msg notify.Message) error {
	c.sent = append(c.sent, msg)
	return nil
}

func seedPrice(t *testing.T, store *memory.Store, chain string, price float64, at time.Time) {
	t.Helper()
	_, err := store.InsertObservation(context.Background(), storage.PriceObservation{
		Chain:     chain,
		Symbol:    chain,
		Price:     decimal.NewFromFloat(price),
		Timestamp: at,
	})
	require.NoError(t, err)
}

func TestSetAlertCreatesSubscription(t *testing.T) {
	store := memory.NewStore()
	svc := New(store, store, nil, Options{}, zerolog.Nop())

	sub, err := svc.SetAlert(context.Background(), "Ethereum", decimal.NewFromInt(2500), "user@example.com")
	require.NoError(t, err)
	require.NotZero(t, sub.ID)
	require.False(t, sub.IsTriggered)

	subs, err := store.ListAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 1)
}

func TestSetAlertDuplicateIsConflict(t *testing.T) {
	store := memory.NewStore()
	svc := New(store, store, nil, Options{}, zerolog.Nop())

	_, err := svc.SetAlert(context.Background(), "Ethereum", decimal.NewFromInt(2500), "user@example.com")
	require.NoError(t, err)

	_, err = svc.SetAlert(context.Background(), "Ethereum", decimal.NewFromInt(3000), "user@example.com")
	require.ErrorIs(t, err, ErrDuplicate)

	// No duplicate row was created.
	subs, err := store.ListAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 1)

	// A different pair is fine.
	_, err = svc.SetAlert(context.Background(), "Bitcoin", decimal.NewFromInt(50000), "user@example.com")
	require.NoError(t, err)
}

func TestSetAlertValidation(t *testing.T) {
	store := memory.NewStore()
	svc := New(store, store, nil, Options{}, zerolog.Nop())

	_, err := svc.SetAlert(context.Background(), "", decimal.NewFromInt(1), "user@example.com")
	require.ErrorIs(t, err, ErrInvalid)

	_, err = svc.SetAlert(context.Background(), "Ethereum", decimal.NewFromInt(1), "")
	require.ErrorIs(t, err, ErrInvalid)

	_, err = svc.SetAlert(context.Background(), "Ethereum", decimal.Zero, "user@example.com")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestTickNotifiesUnconditionallyByDefault(t *testing.T) {
	store := memory.NewStore()
	sink := &captureNotifier{}
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	seedPrice(t, store, "Ethereum", 3000, now)

	svc := New(store, store, sink, Options{}, zerolog.Nop())
	_, err := svc.SetAlert(context.Background(), "Ethereum", decimal.NewFromInt(1), "user@example.com")
	require.NoError(t, err)

	// Latest price (3000) is far above the target (1); the default behaviour
	// still notifies.
	require.NoError(t, svc.Tick(context.Background(), now))
	require.Len(t, sink.sent, 1)
	require.Equal(t, "user@example.com", sink.sent[0].To)
	require.Contains(t, sink.sent[0].Body, "3000")
}

func TestTickEnforcesTargetWhenConfigured(t *testing.T) {
	store := memory.NewStore()
	sink := &captureNotifier{}
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	seedPrice(t, store, "Ethereum", 3000, now)

	svc := New(store, store, sink, Options{EnforceTarget: true}, zerolog.Nop())
	_, err := svc.SetAlert(context.Background(), "Ethereum", decimal.NewFromInt(2500), "above@example.com")
	require.NoError(t, err)
	_, err = svc.SetAlert(context.Background(), "Ethereum", decimal.NewFromInt(3500), "reached@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Tick(context.Background(), now))

	// Only the subscription whose target is at or above the latest price fires.
	require.Len(t, sink.sent, 1)
	require.Equal(t, "reached@example.com", sink.sent[0].To)
}

func TestTickMissingPriceSkipsAlertOnly(t *testing.T) {
	store := memory.NewStore()
	sink := &captureNotifier{}
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	seedPrice(t, store, "Bitcoin", 60000, now)

	svc := New(store, store, sink, Options{}, zerolog.Nop())
	// First subscription has no price rows at all; the second must still run.
	_, err := svc.SetAlert(context.Background(), "Dogecoin", decimal.NewFromInt(1), "a@example.com")
	require.NoError(t, err)
	_, err = svc.SetAlert(context.Background(), "Bitcoin", decimal.NewFromInt(1), "b@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Tick(context.Background(), now))
	require.Len(t, sink.sent, 1)
	require.Equal(t, "b@example.com", sink.sent[0].To)
}

func TestTickIsDeterministicForFixedState(t *testing.T) {
	store := memory.NewStore()
	sink := &captureNotifier{}
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	seedPrice(t, store, "Ethereum", 3000, now)

	svc := New(store, store, sink, Options{}, zerolog.Nop())
	_, err := svc.SetAlert(context.Background(), "Ethereum", decimal.NewFromInt(1), "user@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Tick(context.Background(), now))
	require.NoError(t, svc.Tick(context.Background(), now))

	// Same payload both times: not exactly-once delivery, but deterministic
	// for unchanged store state.
	require.Len(t, sink.sent, 2)
	require.Equal(t, sink.sent[0], sink.sent[1])
}

var _ notify.Notifier = (*captureNotifier)(nil)
