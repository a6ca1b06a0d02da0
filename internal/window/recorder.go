package window

import (
	"fmt"
	"sync"
)

// Recorder is a Controller test double that logs every call in order.
// Setting Fail makes every call return that error after being recorded.
type Recorder struct {
	mu      sync.Mutex
	calls   []string
	visible bool
	Fail    error
}

func (r *Recorder) record(call string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	return r.Fail
}

// Record appends an external event, such as a keystroke, to the call log so
// it can be ordered against window calls.
func (r *Recorder) Record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

// Calls returns a copy of the call log.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *Recorder) Hide() error {
	err := r.record("hide")
	r.mu.Lock()
	r.visible = false
	r.mu.Unlock()
	return err
}

func (r *Recorder) Show() error {
	err := r.record("show")
	r.mu.Lock()
	r.visible = true
	r.mu.Unlock()
	return err
}

func (r *Recorder) SetFocus() error { return r.record("set_focus") }

func (r *Recorder) IsVisible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visible
}

func (r *Recorder) Resize(s Size) error {
	return r.record(fmt.Sprintf("resize %dx%d", s.Width, s.Height))
}

func (r *Recorder) SetResizable(v bool) error {
	return r.record(fmt.Sprintf("resizable %t", v))
}

func (r *Recorder) SetSizeConstraints(minSize, maxSize *Size) error {
	return r.record(fmt.Sprintf("constraints %s %s", sizeString(minSize), sizeString(maxSize)))
}

func sizeString(s *Size) string {
	if s == nil {
		return "none"
	}
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}
