package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"token-price-watcher/internal/storage"
)

// Show prints recent price observations, optionally filtered to one chain.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	if a.Config.Database.DSN == "" {
		return errors.New("database not configured; cannot show observations")
	}

	st, closeStores, err := a.openStores(ctx)
	if err != nil {
		return err
	}
	defer closeStores()

	var observations []storage.PriceObservation
	if opts.Chain != "" {
		observations, err = st.prices.ListObservations(ctx, opts.Chain)
	} else {
		observations, err = st.prices.ListObservationsSince(ctx, time.Now().UTC().Add(-24*time.Hour))
	}
	if err != nil {
		return err
	}
	if len(observations) == 0 {
		fmt.Fprintln(os.Stdout, "no observations found")
		return nil
	}

	if opts.Limit > 0 && len(observations) > opts.Limit {
		observations = observations[len(observations)-opts.Limit:]
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tChain\tSymbol\tPrice (USD)\t1h%\t24h%")

	for _, obs := range observations {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\n",
			obs.Timestamp.UTC().Format(time.RFC3339),
			obs.Chain,
			obs.Symbol,
			formatDecimal(obs.Price, 2),
			formatDecimal(obs.PercentChange1h, 3),
			formatDecimal(obs.PercentChange24h, 3),
		)
	}

	writer.Flush()
	return nil
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
