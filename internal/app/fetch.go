package app

import (
	"context"
	"time"

	"token-price-watcher/internal/ingest"
)

// Fetch runs a single ingestion pass and exits. Useful for cron-driven
// deployments and for verifying API credentials without starting the
// full watcher.
func (a *App) Fetch(ctx context.Context) error {
	st, closeStores, err := a.openStores(ctx)
	if err != nil {
		return err
	}
	defer closeStores()

	ingestor := ingest.New(a.newGateway(), st.prices, st.tokens, a.Config.Ingest.Tokens, a.Logger)
	return ingestor.Tick(ctx, time.Now().UTC())
}
