// Package input synthesises the copy and paste keyboard shortcuts at the OS
// level so the focused application performs them.
package input

import (
	"context"
	"errors"
	"runtime"
	"time"
)

// ErrUnsupported is returned on platforms without an injector.
var ErrUnsupported = errors.New("keyboard injection is not supported on " + runtime.GOOS)

// Injector presses platform shortcuts in whatever window has focus.
type Injector interface {
	// Copy presses modifier+C, holding C down for hold before release.
	Copy(ctx context.Context, hold time.Duration) error
	// Paste presses modifier+V.
	Paste(ctx context.Context) error
}

// New returns the injector for the running platform.
func New() Injector {
	return newPlatform()
}
