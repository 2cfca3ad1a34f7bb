package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"token-price-watcher/internal/version"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "tokenwatcher", cfg.Logging.Service)
	require.Equal(t, version.UserAgent(), cfg.MarketData.UserAgent)
	require.Equal(t, 10*time.Second, cfg.SMTP.Timeout)
	require.Equal(t, 5*time.Minute, cfg.Ingest.Interval)
	require.Equal(t, time.Hour, cfg.Movement.Interval)
	require.Equal(t, time.Hour, cfg.Movement.Window)
	require.Equal(t, 3.0, cfg.Movement.ThresholdPct)
	require.Equal(t, 10*time.Minute, cfg.Alerts.Interval)
	require.False(t, cfg.Alerts.EnforceTarget)
	require.Equal(t, 0.03, cfg.Swap.FeePct)
}

func TestValidateRejectsZeroSMTPTimeoutWhenEnabled(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.SMTP.Enabled = true
	cfg.SMTP.Host = "smtp.example.com"
	cfg.SMTP.From = "alerts@example.com"
	cfg.SMTP.Timeout = 0

	err = cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "smtp.timeout")
}
