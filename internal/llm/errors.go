package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	KindConfig      ErrorKind = "config"
	KindTransport   ErrorKind = "transport"
	KindFormat      ErrorKind = "format"
	KindUnsupported ErrorKind = "unsupported"
)

// ProviderError is returned when a transformation provider fails.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Message  string
	Code     int // HTTP status code, when the failure came from a response
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsKind reports whether err is a *ProviderError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// KindOf returns the kind of a provider error, or "" for any other error.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
