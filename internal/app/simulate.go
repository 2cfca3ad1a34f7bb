package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"token-price-watcher/internal/movement"
	"token-price-watcher/internal/notify"
	"token-price-watcher/internal/storage"
	"token-price-watcher/internal/storage/memory"
)

// SimulateMovement seeds an in-memory store with two observations and runs a
// single detection pass against them, so the threshold arithmetic and mail
// templates can be exercised without waiting an hour for real data. The
// configured SMTP account is used when enabled, otherwise the dispatched
// message is printed.
func (a *App) SimulateMovement(ctx context.Context, previous, current decimal.Decimal) error {
	now := time.Now().UTC()
	mem := memory.NewStore()

	observations := []storage.PriceObservation{
		{Chain: "Simulated", Symbol: "SIM", Price: previous, Timestamp: now.Add(-45 * time.Minute)},
		{Chain: "Simulated", Symbol: "SIM", Price: current, Timestamp: now.Add(-5 * time.Minute)},
	}
	for _, obs := range observations {
		if _, err := mem.InsertObservation(ctx, obs); err != nil {
			return err
		}
	}

	notifier, err := a.newNotifier()
	if err != nil {
		return err
	}
	recipient := a.Config.Movement.Recipient
	if notifier == nil {
		notifier = printNotifier{}
		if recipient == "" {
			recipient = "simulated@localhost"
		}
	}

	detector := movement.New(mem, notifier, movement.Options{
		Window:       a.Config.Movement.Window,
		ThresholdPct: decimal.NewFromFloat(a.Config.Movement.ThresholdPct),
		Recipient:    recipient,
	}, a.Logger)

	return detector.Tick(ctx, now)
}

// printNotifier writes dispatched messages to stdout instead of sending mail.
type printNotifier struct{}

func (printNotifier) Send(_ context.Context, msg notify.Message) error {
	fmt.Fprintf(os.Stdout, "To: %s\nSubject: %s\n\n%s\n", msg.To, msg.Subject, msg.Body)
	return nil
}

var _ notify.Notifier = printNotifier{}
