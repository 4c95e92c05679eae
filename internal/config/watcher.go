package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDebounce = 100 * time.Millisecond

// Watch reloads the config file at path whenever it changes and hands each
// valid result to onReload. Invalid edits are logged and skipped. The parent
// directory is watched so atomic renames by editors are seen. Watch returns
// once the watcher is running; it stops when ctx is done.
func Watch(ctx context.Context, path string, log zerolog.Logger, onReload func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	log = log.With().Str("component", "config").Str("path", path).Logger()
	target := filepath.Clean(path)

	go func() {
		defer watcher.Close()

		var debounce <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					debounce = time.After(reloadDebounce)
				}
			case <-debounce:
				debounce = nil
				cfg, err := Load(path)
				if err != nil {
					log.Warn().Err(err).Msg("config changed but is invalid, keeping current settings")
					continue
				}
				log.Info().Msg("config reloaded")
				onReload(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error().Err(err).Msg("config watcher error")
			}
		}
	}()
	return nil
}
