package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/soyeahso/sidekick/internal/logging"
)

const watchDebounce = 200 * time.Millisecond

// Watch blocks until ctx is cancelled, calling onChange with a freshly
// loaded Config each time the file at path is written, created or
// replaced. Rapid successive writes are coalesced. The parent directory is
// watched rather than the file so atomic rename saves are observed.
func Watch(ctx context.Context, path string, log *logging.Logger, onChange func(Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		return err
	}

	target := filepath.Clean(path)
	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	log.Debug().Str("path", target).Msg("watching config file")

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(watchDebounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("config watcher error")

		case <-timer.C:
			cfg, err := Load(path)
			if err != nil {
				log.Warn().Err(err).Msg("reloaded config is invalid, using defaults")
			}
			onChange(cfg)
		}
	}
}
