// Package plugin hosts daemon extensions that observe Sidekick through
// lifecycle hooks.
package plugin

import (
	"context"

	"github.com/soyeahso/sidekick/internal/hooks"
	"github.com/soyeahso/sidekick/internal/logging"
)

// Plugin is a daemon extension. Init registers hook handlers; Close
// releases whatever Init acquired.
type Plugin interface {
	// ID returns a unique identifier such as "activity".
	ID() string

	Init(ctx context.Context, api API) error
	Close() error
}

// API is what a plugin may use while it runs.
type API struct {
	Hooks *hooks.Manager
	Log   *logging.Logger
}
