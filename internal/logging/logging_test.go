package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerTagsServiceField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(Config{Level: "info", Service: "tokenwatcher"}, &buf)

	logger.Info().Msg("started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "tokenwatcher", entry["service"])
	require.Equal(t, "started", entry["message"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(Config{Level: "warn"}, &buf)

	logger.Info().Msg("suppressed")
	require.Zero(t, buf.Len())

	logger.Warn().Msg("kept")
	require.NotZero(t, buf.Len())
}

func TestLoggerFallsBackToInfoOnBadLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(Config{Level: "nonsense"}, &buf)

	logger.Info().Msg("visible")
	require.NotZero(t, buf.Len())

	buf.Reset()
	logger.Debug().Msg("suppressed")
	require.Zero(t, buf.Len())
}
