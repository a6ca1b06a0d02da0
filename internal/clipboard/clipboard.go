// Package clipboard reads and writes the OS clipboard and watches it for
// changes.
package clipboard

import (
	"errors"
	"sync"

	"golang.design/x/clipboard"
)

var (
	// ErrUnavailable is returned when the OS clipboard cannot be opened.
	ErrUnavailable = errors.New("clipboard unavailable")
	// ErrNotText is returned when the clipboard holds no text.
	ErrNotText = errors.New("clipboard does not contain text")
)

// Clipboard is the subset of clipboard operations Sidekick needs.
type Clipboard interface {
	ReadText() (string, error)
	WriteText(text string) error
	// ChangeCount returns a token that differs whenever the clipboard
	// contents change. Values are only comparable to each other.
	ChangeCount() (uint64, error)
}

// System is the OS clipboard.
type System struct {
	initOnce sync.Once
	initErr  error
}

// NewSystem returns the OS clipboard. Initialisation is deferred to first use.
func NewSystem() *System {
	return &System{}
}

func (s *System) init() error {
	s.initOnce.Do(func() {
		if err := clipboard.Init(); err != nil {
			s.initErr = errors.Join(ErrUnavailable, err)
		}
	})
	return s.initErr
}

// Available reports whether the OS clipboard could be opened.
func (s *System) Available() bool {
	return s.init() == nil
}

// ReadText returns the clipboard text.
func (s *System) ReadText() (string, error) {
	if err := s.init(); err != nil {
		return "", err
	}
	data := clipboard.Read(clipboard.FmtText)
	if data == nil {
		return "", ErrNotText
	}
	return string(data), nil
}

// WriteText replaces the clipboard contents with text.
func (s *System) WriteText(text string) error {
	if err := s.init(); err != nil {
		return err
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// ChangeCount returns the platform change token.
func (s *System) ChangeCount() (uint64, error) {
	if err := s.init(); err != nil {
		return 0, err
	}
	return changeCount()
}
