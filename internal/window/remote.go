package window

import "sync"

// Event names sent to the shell.
const (
	EventHide        = "window.hide"
	EventShow        = "window.show"
	EventFocus       = "window.focus"
	EventResize      = "window.resize"
	EventResizable   = "window.resizable"
	EventConstraints = "window.constraints"
)

// Emitter delivers an event to connected shells and reports how many
// received it.
type Emitter interface {
	Emit(event string, payload any) int
}

// ConstraintsPayload is the body of a window.constraints event.
type ConstraintsPayload struct {
	Min *Size `json:"min"`
	Max *Size `json:"max"`
}

// Remote forwards window commands to the desktop shell as events. The shell
// reports its real visibility back through SetVisible.
type Remote struct {
	emit    Emitter
	mu      sync.Mutex
	visible bool
}

// NewRemote creates a Remote that sends through e.
func NewRemote(e Emitter) *Remote {
	return &Remote{emit: e}
}

func (r *Remote) send(event string, payload any) error {
	if r.emit.Emit(event, payload) == 0 {
		return ErrNoShell
	}
	return nil
}

func (r *Remote) Hide() error {
	if err := r.send(EventHide, nil); err != nil {
		return err
	}
	r.SetVisible(false)
	return nil
}

func (r *Remote) Show() error {
	if err := r.send(EventShow, nil); err != nil {
		return err
	}
	r.SetVisible(true)
	return nil
}

func (r *Remote) SetFocus() error {
	return r.send(EventFocus, nil)
}

func (r *Remote) Resize(size Size) error {
	return r.send(EventResize, size)
}

func (r *Remote) SetResizable(resizable bool) error {
	return r.send(EventResizable, map[string]bool{"resizable": resizable})
}

func (r *Remote) SetSizeConstraints(minSize, maxSize *Size) error {
	return r.send(EventConstraints, ConstraintsPayload{Min: minSize, Max: maxSize})
}

func (r *Remote) IsVisible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visible
}

// SetVisible records the visibility the shell reports.
func (r *Remote) SetVisible(v bool) {
	r.mu.Lock()
	r.visible = v
	r.mu.Unlock()
}
