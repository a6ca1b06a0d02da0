package config

import (
	"fmt"
	"net/url"
	"slices"
	"time"

	"github.com/soyeahso/sidekick/internal/logging"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return v.Path + ": " + v.Message
}

type issues []ValidationIssue

func (is *issues) add(path, format string, args ...any) {
	*is = append(*is, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...)})
}

// oneOf flags a non-empty value outside allowed.
func oneOf[T ~string](is *issues, path string, got T, allowed ...T) {
	if got != "" && !slices.Contains(allowed, got) {
		is.add(path, "must be one of %v, got %q", allowed, got)
	}
}

func nonNegative(is *issues, path string, d time.Duration) {
	if d < 0 {
		is.add(path, "must not be negative")
	}
}

// Validate reports every problem in cfg. A valid config yields nil.
func Validate(cfg *Config) []ValidationIssue {
	var is issues

	if !slices.Contains(KnownProviders, cfg.Provider) {
		is.add("provider", "must be one of %v, got %q", KnownProviders, cfg.Provider)
	}
	if cfg.Provider == ProviderOllama {
		if cfg.Ollama.Model == "" {
			is.add("ollama.model", "required when provider is ollama")
		}
		if u, err := url.Parse(cfg.Ollama.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			is.add("ollama.baseUrl", "must be an absolute URL, got %q", cfg.Ollama.BaseURL)
		}
	}

	oneOf(&is, "theme", cfg.Theme, "dark", "light")

	if p := cfg.Gateway.Port; p < 0 || p > 65535 {
		is.add("gateway.port", "port must be 0-65535, got %d", p)
	}
	oneOf(&is, "gateway.bind", cfg.Gateway.Bind, "loopback", "lan", "custom")
	oneOf(&is, "gateway.auth.mode", cfg.Gateway.Auth.Mode, "token", "password")

	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		is.add("logging.level", "must be one of %v, got %q", logging.Levels, cfg.Logging.Level)
	}

	nonNegative(&is, "timeouts.transform", cfg.Timeouts.Transform)
	nonNegative(&is, "timeouts.listModels", cfg.Timeouts.ListModels)

	return is
}
