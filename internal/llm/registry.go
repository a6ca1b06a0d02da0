package llm

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/soyeahso/sidekick/internal/config"
	"github.com/soyeahso/sidekick/internal/logging"
)

// Factory builds a Client from a settings snapshot.
type Factory func(cfg config.Config) Client

// Registry maps provider ids to client factories. Clients are built per
// call from the snapshot passed in, so settings edits apply on the next
// request without a restart.
type Registry struct {
	mu        sync.RWMutex
	factories map[config.ProviderID]Factory
	log       *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		factories: make(map[config.ProviderID]Factory),
		log:       log.Sub("llm.registry"),
	}
}

// NewDefaultRegistry registers the Ollama backend and the cloud stubs.
func NewDefaultRegistry(log *logging.Logger) *Registry {
	reg := NewRegistry(log)
	reg.Register(config.ProviderOllama, func(cfg config.Config) Client {
		return NewOllamaClient(cfg.Ollama.BaseURL, cfg.Ollama.Model).
			WithTimeout(cfg.Timeouts.Transform)
	})
	for _, id := range []config.ProviderID{config.ProviderOpenAI, config.ProviderGemini, config.ProviderDeepSeek} {
		name := string(id)
		reg.Register(id, func(config.Config) Client {
			return NewUnsupportedClient(name)
		})
	}
	return reg
}

// Register adds a factory under the given provider id.
func (r *Registry) Register(id config.ProviderID, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[id] = f
	r.log.Debug().Str("provider", string(id)).Msg("registered provider")
}

// Resolve returns a Client for the provider selected in cfg.
func (r *Registry) Resolve(cfg config.Config) (Client, error) {
	r.mu.RLock()
	f, ok := r.factories[cfg.Provider]
	r.mu.RUnlock()

	if !ok {
		return nil, &ProviderError{
			Provider: string(cfg.Provider),
			Kind:     KindConfig,
			Message:  fmt.Sprintf("unknown provider %q", cfg.Provider),
		}
	}
	return f(cfg), nil
}

// Transform resolves the configured provider and runs one completion with
// the configured timeout.
func (r *Registry) Transform(ctx context.Context, cfg config.Config, system, input string) (string, error) {
	c, err := r.Resolve(cfg)
	if err != nil {
		return "", err
	}
	return Transform(ctx, c, cfg.Timeouts.Transform, system, input)
}

// ListModels queries the local Ollama server for installed models. It is
// independent of the selected provider.
func (r *Registry) ListModels(ctx context.Context, cfg config.Config) ([]string, error) {
	timeout := cfg.Timeouts.ListModels
	if timeout <= 0 {
		timeout = config.DefaultListModelsTimeout
	}
	c := NewOllamaClient(cfg.Ollama.BaseURL, cfg.Ollama.Model).
		WithHTTPClient(&http.Client{Timeout: timeout})
	return c.ListModels(ctx)
}

// List returns all registered provider ids, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for id := range r.factories {
		names = append(names, string(id))
	}
	sort.Strings(names)
	return names
}
