package cli

import (
	"github.com/soyeahso/sidekick/internal/assistant"
	"github.com/soyeahso/sidekick/internal/clipboard"
	"github.com/soyeahso/sidekick/internal/config"
	"github.com/soyeahso/sidekick/internal/input"
	"github.com/soyeahso/sidekick/internal/llm"
	"github.com/soyeahso/sidekick/internal/prompt"
	"github.com/soyeahso/sidekick/internal/selection"
	"github.com/soyeahso/sidekick/internal/store"
	"github.com/soyeahso/sidekick/internal/window"
)

// newService builds the command service shared by the daemon and the
// one-shot commands.
func newService() *assistant.Service {
	return assistant.New(
		config.NewStore(paths.Config, log),
		prompt.NewStore(paths.Prompts, log),
		llm.NewDefaultRegistry(log),
		log,
	)
}

// openStats opens the usage database. Stats are optional, so a failure is
// logged and yields nil.
func openStats() *store.DB {
	path := paths.StatsDB()
	db, err := store.Open(path, log)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("usage stats disabled")
		return nil
	}
	return db
}

// systemClipboard returns the OS clipboard, or an in-memory one when no
// clipboard can be opened (headless sessions, CI).
func systemClipboard() clipboard.Clipboard {
	sys := clipboard.NewSystem()
	if !sys.Available() {
		log.Warn().Msg("system clipboard unavailable, using in-memory clipboard")
		return clipboard.NewMemory()
	}
	return sys
}

// newSelection builds a selection orchestrator that drives the focused
// application with synthetic keystrokes.
func newSelection(cb clipboard.Clipboard, win window.Controller) *selection.Orchestrator {
	return selection.New(input.New(), cb, win, log)
}
