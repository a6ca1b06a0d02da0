// Package llm defines the text transformation client interface and the
// provider backends Sidekick can dispatch to.
//
// Only the local Ollama backend is implemented. Cloud providers are
// registered so configuration that selects them fails with a clean
// unsupported error instead of an unknown-provider error.
package llm

import (
	"context"
	"errors"
	"time"
)

// CompletionRequest is the input to a Complete call.
type CompletionRequest struct {
	Model  string `json:"model,omitempty"`
	System string `json:"system,omitempty"`
	Input  string `json:"input"`
}

// CompletionResponse is the result of a completion.
type CompletionResponse struct {
	Content  string        `json:"content"`
	Model    string        `json:"model,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Client is the interface all transformation providers must implement.
type Client interface {
	// Complete sends a request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name (e.g., "ollama").
	Name() string
}

// ModelLister is implemented by providers that can enumerate installed models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Transform runs one completion against c bounded by timeout. A timeout of
// zero leaves the call bounded only by ctx. The returned text is the raw
// model output; callers sanitize it.
func Transform(ctx context.Context, c Client, timeout time.Duration, system, input string) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := c.Complete(ctx, CompletionRequest{System: system, Input: input})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !IsKind(err, KindTransport) {
			return "", &ProviderError{
				Provider: c.Name(),
				Kind:     KindTransport,
				Message:  "request timed out",
				Err:      err,
			}
		}
		return "", err
	}
	return resp.Content, nil
}

// BuildPrompt joins a system prompt and the user's input the way the
// generate endpoint expects them.
func BuildPrompt(system, input string) string {
	return system + "\n\nInput:\n" + input
}
