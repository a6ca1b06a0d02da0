package plugin

import (
	"context"
	"sync"
	"time"

	"github.com/soyeahso/sidekick/internal/hooks"
)

// DefaultActivitySize is how many events the activity log keeps.
const DefaultActivitySize = 100

// ActivityEntry is one recorded lifecycle event.
type ActivityEntry struct {
	At    time.Time      `json:"at"`
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// ActivityLog records recent lifecycle events in a ring buffer so the shell
// can show what the daemon has been doing. Hook payloads never carry text
// content, so neither does the log.
type ActivityLog struct {
	mu      sync.Mutex
	entries []ActivityEntry
	next    int
	full    bool
	api     API
	now     func() time.Time
}

// NewActivityLog creates an activity log holding up to size entries.
func NewActivityLog(size int) *ActivityLog {
	if size <= 0 {
		size = DefaultActivitySize
	}
	return &ActivityLog{entries: make([]ActivityEntry, size), now: time.Now}
}

func (a *ActivityLog) ID() string { return "activity" }

// Init subscribes to every lifecycle event.
func (a *ActivityLog) Init(_ context.Context, api API) error {
	a.api = api
	for _, event := range hooks.AllEvents {
		api.Hooks.On(event, a.ID(), a.record)
	}
	return nil
}

// Close unsubscribes from all events.
func (a *ActivityLog) Close() error {
	if a.api.Hooks == nil {
		return nil
	}
	for _, event := range hooks.AllEvents {
		a.api.Hooks.Off(event, a.ID())
	}
	return nil
}

func (a *ActivityLog) record(_ context.Context, p hooks.Payload) error {
	a.mu.Lock()
	a.entries[a.next] = ActivityEntry{At: a.now(), Event: p.Event, Data: p.Data}
	a.next = (a.next + 1) % len(a.entries)
	if a.next == 0 {
		a.full = true
	}
	a.mu.Unlock()

	a.api.Log.Debug().Str("event", p.Event).Interface("data", p.Data).Msg("activity")
	return nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns everything held.
func (a *ActivityLog) Recent(limit int) []ActivityEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := a.next
	if a.full {
		n = len(a.entries)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]ActivityEntry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (a.next - i + len(a.entries)) % len(a.entries)
		out = append(out, a.entries[idx])
	}
	return out
}
