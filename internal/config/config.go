package config

import (
	"fmt"
	"time"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

const (
	DefaultGatewayPort       = 18790
	DefaultOllamaBaseURL     = "http://localhost:11434"
	DefaultOllamaModel       = "llama3.1"
	DefaultTransformTimeout  = 120 * time.Second
	DefaultListModelsTimeout = 2 * time.Second
)

// Defaults returns a Config with sensible defaults applied.
// Local inference is the default provider so nothing leaves the machine
// until the user opts into a cloud backend.
func Defaults() Config {
	return Config{
		Provider: ProviderOllama,
		Ollama: OllamaConfig{
			Model:   DefaultOllamaModel,
			BaseURL: DefaultOllamaBaseURL,
		},
		Theme:  "dark",
		Hotkey: "Ctrl+Alt+Space",
		Permissions: Permissions{
			OpenFiles:   true,
			OpenFolders: true,
			WebSearch:   true,
		},
		SearchRoots:      []string{},
		ClipboardWatcher: true,
		Gateway: GatewayConfig{
			Port: DefaultGatewayPort,
			Bind: "loopback",
			Auth: GatewayAuth{
				Mode: "token",
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Timeouts: TimeoutsConfig{
			Transform:  DefaultTransformTimeout,
			ListModels: DefaultListModelsTimeout,
		},
	}
}
