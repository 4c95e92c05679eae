package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technosupport/cctv-console/internal/config"
)

func TestWatch_ReloadsValidChanges(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "logging:\n  level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan config.Config, 4)
	require.NoError(t, config.Watch(ctx, path, zerolog.Nop(), func(c config.Config) { reloaded <- c }))

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: [broken\n"), 0o600))
	select {
	case c := <-reloaded:
		t.Fatalf("invalid config was applied: %+v", c.Logging)
	case <-time.After(500 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o600))
	select {
	case c := <-reloaded:
		assert.Equal(t, "debug", c.Logging.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := config.Watch(context.Background(), filepath.Join(t.TempDir(), "nope", "console.yaml"), zerolog.Nop(), func(config.Config) {})
	assert.Error(t, err)
}
