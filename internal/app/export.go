package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"token-price-watcher/internal/storage"
)

// Export renders one chain's price history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.Chain == "" {
		return errors.New("--chain must be provided")
	}
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if a.Config.Database.DSN == "" {
		return errors.New("database not configured; cannot export")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	st, closeStores, err := a.openStores(ctx)
	if err != nil {
		return err
	}
	defer closeStores()

	observations, err := st.prices.ListObservations(ctx, opts.Chain)
	if err != nil {
		return err
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}
	from := to.Add(-time.Duration(opts.MaxPoints) * a.Config.Ingest.Interval)
	if opts.From != nil {
		from = opts.From.UTC()
	}
	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	observations = filterWindow(observations, from, to)
	if len(observations) == 0 {
		a.Logger.Info().Str("chain", opts.Chain).Msg("no observations found for export window")
		return nil
	}

	downsampled := downsampleObservations(observations, opts.MaxPoints)
	a.Logger.Info().Str("chain", opts.Chain).
		Int("total", len(observations)).Int("exported", len(downsampled)).
		Msg("exporting observations")

	if opts.CSVPath != "" {
		if err := writeObservationsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeObservationsPNG(opts.PNGPath, opts.Chain, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func filterWindow(observations []storage.PriceObservation, from, to time.Time) []storage.PriceObservation {
	result := make([]storage.PriceObservation, 0, len(observations))
	for _, obs := range observations {
		ts := obs.Timestamp.UTC()
		if ts.Before(from) || !ts.Before(to) {
			continue
		}
		result = append(result, obs)
	}
	return result
}

func downsampleObservations(observations []storage.PriceObservation, max int) []storage.PriceObservation {
	if max <= 0 || len(observations) <= max {
		return observations
	}

	result := make([]storage.PriceObservation, 0, max)
	step := float64(len(observations)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(observations) {
			idx = len(observations) - 1
		}
		result = append(result, observations[idx])
	}
	return result
}

func writeObservationsCSV(path string, observations []storage.PriceObservation) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"observed_at", "chain", "symbol", "price_usd", "percent_change_1h", "percent_change_24h"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, obs := range observations {
		record := []string{
			obs.Timestamp.UTC().Format(time.RFC3339),
			obs.Chain,
			obs.Symbol,
			obs.Price.String(),
			obs.PercentChange1h.String(),
			obs.PercentChange24h.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeObservationsPNG(path, chain string, observations []storage.PriceObservation) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(observations))
	price := make([]float64, len(observations))
	change1h := make([]float64, len(observations))

	for i, obs := range observations {
		x[i] = obs.Timestamp
		price[i] = obs.Price.InexactFloat64()
		change1h[i] = obs.PercentChange1h.InexactFloat64()
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price (USD)",
			ValueFormatter: priceFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "1h Change (%)",
			ValueFormatter: priceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    chain + " price",
				XValues: x,
				YValues: price,
			},
			chart.TimeSeries{
				Name:    "1h change %",
				XValues: x,
				YValues: change1h,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
