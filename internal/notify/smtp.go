package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gomail "github.com/wneessen/go-mail"
)

// SMTPOptions describe the outbound mail account.
type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPNotifier sends plain-text email over SMTP.
type SMTPNotifier struct {
	opts   SMTPOptions
	client *gomail.Client
	logger zerolog.Logger
}

// NewSMTPNotifier constructs an email notifier.
func NewSMTPNotifier(opts SMTPOptions, logger zerolog.Logger) (*SMTPNotifier, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	port := opts.Port
	if port <= 0 {
		port = 465
	}

	clientOpts := []gomail.Option{
		gomail.WithPort(port),
		gomail.WithTimeout(timeout),
	}
	if port == 465 {
		clientOpts = append(clientOpts, gomail.WithSSL())
	}
	if opts.Username != "" {
		clientOpts = append(clientOpts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(opts.Username),
			gomail.WithPassword(opts.Password),
		)
	}

	client, err := gomail.NewClient(opts.Host, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &SMTPNotifier{
		opts:   opts,
		client: client,
		logger: logger.With().Str("component", "smtp_notifier").Logger(),
	}, nil
}

// Send delivers one email.
func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	mail := gomail.NewMsg()
	if err := mail.From(n.opts.From); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := mail.To(msg.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	mail.Subject(msg.Subject)
	mail.SetBodyString(gomail.TypeTextPlain, msg.Body)

	if err := n.client.DialAndSendWithContext(ctx, mail); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	n.logger.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("notification sent")
	return nil
}

var _ Notifier = (*SMTPNotifier)(nil)
