package clipboard

import (
	"context"
	"strings"
	"time"

	"github.com/soyeahso/sidekick/internal/logging"
)

// DefaultInterval is how often the Watcher polls the change token.
const DefaultInterval = time.Second

// Notifier receives clipboard text changes.
type Notifier interface {
	ClipboardChanged(text string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(text string)

func (f NotifierFunc) ClipboardChanged(text string) { f(text) }

// Watcher polls a Clipboard and reports new non-blank text. Its only state
// is the last change token it observed.
type Watcher struct {
	cb       Clipboard
	notify   Notifier
	interval time.Duration
	log      *logging.Logger
}

// NewWatcher creates a Watcher with the default interval.
func NewWatcher(cb Clipboard, n Notifier, log *logging.Logger) *Watcher {
	return &Watcher{
		cb:       cb,
		notify:   n,
		interval: DefaultInterval,
		log:      log.Sub("clipboard"),
	}
}

// WithInterval overrides the polling interval.
func (w *Watcher) WithInterval(d time.Duration) *Watcher {
	if d > 0 {
		w.interval = d
	}
	return w
}

// Run polls until ctx is cancelled. Content present when Run starts is not
// reported. Changes to non-text content, blank text and read errors are
// skipped. Run always returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	last, err := w.cb.ChangeCount()
	if err != nil {
		w.log.Debug().Err(err).Msg("initial change token unavailable")
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info().Dur("interval", w.interval).Msg("clipboard watcher started")
	defer w.log.Info().Msg("clipboard watcher stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		seq, err := w.cb.ChangeCount()
		if err != nil {
			w.log.Debug().Err(err).Msg("change token unavailable")
			continue
		}
		if seq == last {
			continue
		}
		last = seq

		text, err := w.cb.ReadText()
		if err != nil {
			w.log.Debug().Err(err).Msg("clipboard changed to non-text content")
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		w.log.Debug().Int("chars", len(text)).Msg("clipboard text changed")
		w.notify.ClipboardChanged(text)
	}
}
