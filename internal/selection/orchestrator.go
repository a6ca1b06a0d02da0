// Package selection captures the user's current text selection and pastes
// transformed text back into the application that had focus.
//
// Both directions go through the clipboard and synthesised keystrokes. The
// delays between steps are heuristics that give the OS and the target
// application time to react; they do not guarantee ordering.
package selection

import (
	"context"
	"sync"
	"time"

	"github.com/soyeahso/sidekick/internal/clipboard"
	"github.com/soyeahso/sidekick/internal/input"
	"github.com/soyeahso/sidekick/internal/logging"
	"github.com/soyeahso/sidekick/internal/window"
)

// ModeReplace is the only apply mode that pastes into the previous window.
const ModeReplace = "replace"

// Timing holds the delays used during capture and replace.
type Timing struct {
	CopyKeyHold     time.Duration // C held down during the copy shortcut
	CaptureSettle   time.Duration // wait for the clipboard after copying
	FocusSwitchWait time.Duration // wait for focus to return to the previous app
	PasteSettle     time.Duration // wait for the paste before reshowing
}

// DefaultTiming is tuned for interactive desktop use.
var DefaultTiming = Timing{
	CopyKeyHold:     50 * time.Millisecond,
	CaptureSettle:   100 * time.Millisecond,
	FocusSwitchWait: 150 * time.Millisecond,
	PasteSettle:     100 * time.Millisecond,
}

// Orchestrator runs capture and replace sequences one at a time.
type Orchestrator struct {
	mu     sync.Mutex
	keys   input.Injector
	cb     clipboard.Clipboard
	win    window.Controller
	timing Timing
	log    *logging.Logger
}

// New creates an Orchestrator with DefaultTiming.
func New(keys input.Injector, cb clipboard.Clipboard, win window.Controller, log *logging.Logger) *Orchestrator {
	return &Orchestrator{
		keys:   keys,
		cb:     cb,
		win:    win,
		timing: DefaultTiming,
		log:    log.Sub("selection"),
	}
}

// WithTiming overrides the step delays.
func (o *Orchestrator) WithTiming(t Timing) *Orchestrator {
	o.timing = t
	return o
}

// Capture copies the current selection and returns it. Failures of any
// kind yield "".
func (o *Orchestrator) Capture(ctx context.Context) string {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.keys.Copy(ctx, o.timing.CopyKeyHold); err != nil {
		o.log.Debug().Err(err).Msg("copy shortcut failed")
		return ""
	}
	if !sleep(ctx, o.timing.CaptureSettle) {
		return ""
	}

	text, err := o.cb.ReadText()
	if err != nil {
		o.log.Debug().Err(err).Msg("clipboard read failed")
		return ""
	}
	return text
}

// Replace pastes the clipboard into the window that had focus before
// Sidekick, then brings Sidekick back. It only acts when mode is
// ModeReplace, and the caller must already have written the text to the
// clipboard. OS and window failures are logged and skipped, and
// cancelling ctx does not cut the sequence short.
func (o *Orchestrator) Replace(ctx context.Context, mode string) {
	if mode != ModeReplace {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	// A started sequence runs to completion, including both waits.
	ctx = context.WithoutCancel(ctx)

	if err := o.win.Hide(); err != nil {
		o.log.Debug().Err(err).Msg("hide window failed")
	}
	sleep(ctx, o.timing.FocusSwitchWait)

	if err := o.keys.Paste(ctx); err != nil {
		o.log.Debug().Err(err).Msg("paste shortcut failed")
	}
	sleep(ctx, o.timing.PasteSettle)

	if err := o.win.Show(); err != nil {
		o.log.Debug().Err(err).Msg("show window failed")
	}
	if err := o.win.SetFocus(); err != nil {
		o.log.Debug().Err(err).Msg("focus window failed")
	}
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
