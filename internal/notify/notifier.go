package notify

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Message is one outbound notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier delivers notifications. Sends are best effort: callers log
// failures and move on, they never fail a tick over one.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// MovementAlert renders the notification for a threshold-crossing hourly move.
func MovementAlert(to, chain string, price, thresholdPct decimal.Decimal) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Price Alert: %s Price Increased", chain),
		Body: fmt.Sprintf(
			"The price of %s has increased by more than %s%% in the last hour. Current price: %s.",
			chain, thresholdPct.String(), price.String(),
		),
	}
}

// TargetAlert renders the notification for a standing subscription.
func TargetAlert(to, chain string, price decimal.Decimal) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Price Alert: %s has reached the target price", chain),
		Body: fmt.Sprintf(
			"The price of %s has reached your target price of %s USD.",
			chain, price.String(),
		),
	}
}
