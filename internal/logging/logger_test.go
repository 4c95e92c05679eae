package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technosupport/cctv-console/internal/config"
	"github.com/technosupport/cctv-console/internal/logging"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewWithWriter(config.LoggingConfig{Level: "warn", Format: "json"}, "cctv-console", &buf)

	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.Warn().Str("component", "store").Msg("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "cctv-console", line["service"])
	assert.Equal(t, "store", line["component"])
	assert.Equal(t, "shown", line["message"])
	assert.Contains(t, line, "time")
}

func TestNew_UnknownLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewWithWriter(config.LoggingConfig{Level: "loud"}, "svc", &buf)

	log.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
	log.Info().Msg("shown")
	assert.NotZero(t, buf.Len())
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewWithWriter(config.LoggingConfig{Level: "info", Format: "console"}, "svc", &buf)

	log.Info().Msg("camera list refreshed")
	assert.Contains(t, buf.String(), "camera list refreshed")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewWithWriter(config.LoggingConfig{Level: "info"}, "svc", &buf)

	log.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())

	assert.Equal(t, zerolog.DebugLevel, logging.SetLevel("DEBUG"))
	log.Debug().Msg("shown")
	assert.NotZero(t, buf.Len())

	assert.Equal(t, zerolog.InfoLevel, logging.SetLevel(""))
}
