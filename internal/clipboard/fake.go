package clipboard

import "sync"

// Memory is an in-process Clipboard. Every WriteText bumps the change
// token. It backs headless runs and tests.
type Memory struct {
	mu   sync.Mutex
	text *string
	seq  uint64
}

// NewMemory returns an empty in-memory clipboard.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) ReadText() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.text == nil {
		return "", ErrNotText
	}
	return *m.text, nil
}

func (m *Memory) WriteText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = &text
	m.seq++
	return nil
}

// SetNonText simulates the clipboard switching to non-text content.
func (m *Memory) SetNonText() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = nil
	m.seq++
}

func (m *Memory) ChangeCount() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq, nil
}
