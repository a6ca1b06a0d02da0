package config

import (
	"fmt"
	"strings"
)

// KeyPath addresses a value in the raw settings document, for example
// "ollama.baseUrl" or "permissions.webSearch".
type KeyPath []string

// ParseKeyPath splits a dotted key. Segments must be non-empty and made of
// letters, digits, '_' or '-'.
func ParseKeyPath(raw string) (KeyPath, error) {
	if raw == "" {
		return nil, &ConfigError{Message: "empty config key"}
	}
	parts := strings.Split(raw, ".")
	for _, p := range parts {
		if p == "" {
			return nil, &ConfigError{Message: fmt.Sprintf("config key %q has an empty segment", raw)}
		}
		if !validSegment(p) {
			return nil, &ConfigError{Message: fmt.Sprintf("config key segment %q is not allowed", p)}
		}
	}
	return KeyPath(parts), nil
}

func validSegment(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

func (k KeyPath) String() string { return strings.Join(k, ".") }

// parent walks to the map holding the last segment. With create set,
// missing maps are added; an existing scalar in the way is an error.
func (k KeyPath) parent(root map[string]any, create bool) (map[string]any, error) {
	cur := root
	for i, key := range k[:len(k)-1] {
		next, ok := cur[key]
		if !ok {
			if !create {
				return nil, nil
			}
			m := map[string]any{}
			cur[key] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			if !create {
				return nil, nil
			}
			return nil, &ConfigError{Message: fmt.Sprintf("%s is a %T, not a section", k[:i+1], next)}
		}
		cur = m
	}
	return cur, nil
}

// Get returns the value at k.
func (k KeyPath) Get(root map[string]any) (any, bool) {
	if len(k) == 0 {
		return nil, false
	}
	m, _ := k.parent(root, false)
	if m == nil {
		return nil, false
	}
	v, ok := m[k[len(k)-1]]
	return v, ok
}

// Set stores v at k, creating intermediate sections.
func (k KeyPath) Set(root map[string]any, v any) error {
	if len(k) == 0 {
		return &ConfigError{Message: "empty config key"}
	}
	m, err := k.parent(root, true)
	if err != nil {
		return err
	}
	m[k[len(k)-1]] = v
	return nil
}

// Unset removes the value at k and reports whether it existed.
func (k KeyPath) Unset(root map[string]any) bool {
	if len(k) == 0 {
		return false
	}
	m, _ := k.parent(root, false)
	if m == nil {
		return false
	}
	last := k[len(k)-1]
	if _, ok := m[last]; !ok {
		return false
	}
	delete(m, last)
	return true
}
