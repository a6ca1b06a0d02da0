package llm

import (
	"context"
	"fmt"
)

// UnsupportedClient stands in for a cloud provider whose integration has not
// been verified. Every call fails immediately without touching the network.
type UnsupportedClient struct {
	provider string
}

// NewUnsupportedClient returns a client for the named provider that always
// fails with KindUnsupported.
func NewUnsupportedClient(provider string) *UnsupportedClient {
	return &UnsupportedClient{provider: provider}
}

func (u *UnsupportedClient) Name() string { return u.provider }

func (u *UnsupportedClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return nil, &ProviderError{
		Provider: u.provider,
		Kind:     KindUnsupported,
		Message:  fmt.Sprintf("%s support is not available yet; switch to ollama", u.provider),
	}
}
