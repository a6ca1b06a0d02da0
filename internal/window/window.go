// Package window abstracts the desktop shell's main window so the core can
// hide, show and resize it without depending on a GUI toolkit.
package window

import (
	"errors"
	"sync"
)

// Size is a logical window size.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Controller is the window surface the core drives.
type Controller interface {
	Hide() error
	Show() error
	SetFocus() error
	IsVisible() bool
	Resize(size Size) error
	SetResizable(resizable bool) error
	// SetSizeConstraints sets minimum and maximum sizes; nil clears a bound.
	SetSizeConstraints(minSize, maxSize *Size) error
}

// Compact and normal window geometry.
var (
	MiniSize   = Size{Width: 600, Height: 70}
	NormalSize = Size{Width: 600, Height: 400}
	NormalMin  = Size{Width: 400, Height: 200}
)

// ApplyMode switches between the compact single-line layout and the normal
// layout. Every step is attempted; the first error is returned.
func ApplyMode(c Controller, mini bool) error {
	var errs []error
	try := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	try(c.SetResizable(true))
	try(c.SetSizeConstraints(nil, nil))
	if mini {
		try(c.Resize(MiniSize))
		try(c.SetResizable(false))
	} else {
		try(c.Resize(NormalSize))
		minSize := NormalMin
		try(c.SetSizeConstraints(&minSize, nil))
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Toggle hides a visible window, or shows and focuses a hidden one. It
// returns the new visibility.
func Toggle(c Controller) (bool, error) {
	if c.IsVisible() {
		return false, c.Hide()
	}
	if err := c.Show(); err != nil {
		return false, err
	}
	return true, c.SetFocus()
}

// Noop is a Controller for headless use. It tracks visibility only.
type Noop struct {
	mu      sync.Mutex
	visible bool
}

func (n *Noop) Hide() error {
	n.mu.Lock()
	n.visible = false
	n.mu.Unlock()
	return nil
}

func (n *Noop) Show() error {
	n.mu.Lock()
	n.visible = true
	n.mu.Unlock()
	return nil
}

func (n *Noop) SetFocus() error { return nil }

func (n *Noop) IsVisible() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.visible
}

func (n *Noop) Resize(Size) error                   { return nil }
func (n *Noop) SetResizable(bool) error             { return nil }
func (n *Noop) SetSizeConstraints(_, _ *Size) error { return nil }

// ErrNoShell is returned by Remote when no shell is connected to receive a
// window command.
var ErrNoShell = errors.New("no shell connected")
