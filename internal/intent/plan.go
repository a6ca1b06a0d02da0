// Package intent turns free-form requests into agent plans.
package intent

import (
	"encoding/json"
	"fmt"
)

// ActionType names an agent action.
type ActionType string

const (
	ActionOpenFolder ActionType = "open_folder"
	ActionOpenFile   ActionType = "open_file"
	ActionWebSearch  ActionType = "web_search"
)

// Valid reports whether t is one of the known action types.
func (t ActionType) Valid() bool {
	switch t {
	case ActionOpenFolder, ActionOpenFile, ActionWebSearch:
		return true
	}
	return false
}

// Action is a single thing the agent can do. Its JSON form is
// {"type":"open_folder","target":"Downloads"}.
type Action struct {
	Type   ActionType `json:"type"`
	Target string     `json:"target"`
}

func (a *Action) UnmarshalJSON(data []byte) error {
	type raw Action
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	if !ActionType(r.Type).Valid() {
		return fmt.Errorf("unknown action type %q", r.Type)
	}
	*a = Action(r)
	return nil
}

func OpenFolder(target string) Action { return Action{Type: ActionOpenFolder, Target: target} }
func OpenFile(target string) Action   { return Action{Type: ActionOpenFile, Target: target} }
func WebSearch(query string) Action   { return Action{Type: ActionWebSearch, Target: query} }

// Candidate is a possible match for a file or folder action.
type Candidate struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Icon string `json:"icon,omitempty"`
}

// Plan is the classifier's proposal for an input.
type Plan struct {
	ID         string      `json:"id"`
	Action     Action      `json:"action"`
	Candidates []Candidate `json:"candidates"`
	Confidence float64     `json:"confidence"`
}
