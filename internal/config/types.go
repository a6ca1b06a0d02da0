package config

import "time"

// ProviderID names a transformation backend. The set is closed: every value
// in KnownProviders has exactly one handler in the llm package.
type ProviderID string

const (
	ProviderOllama   ProviderID = "ollama"
	ProviderOpenAI   ProviderID = "openai"
	ProviderGemini   ProviderID = "gemini"
	ProviderDeepSeek ProviderID = "deepseek"
)

// KnownProviders lists every provider the configuration may select.
var KnownProviders = []ProviderID{ProviderOllama, ProviderOpenAI, ProviderGemini, ProviderDeepSeek}

// IsLocal reports whether the provider runs on the user's machine.
func (p ProviderID) IsLocal() bool { return p == ProviderOllama }

// Config is the root settings record for Sidekick.
// A fresh snapshot is loaded for every command, so edits made by the settings
// UI take effect on the next invocation.
type Config struct {
	Provider       ProviderID `yaml:"provider" json:"provider"`
	OpenAIAPIKey   string     `yaml:"openaiApiKey,omitempty" json:"openaiApiKey,omitempty"`
	GeminiAPIKey   string     `yaml:"geminiApiKey,omitempty" json:"geminiApiKey,omitempty"`
	DeepSeekAPIKey string     `yaml:"deepseekApiKey,omitempty" json:"deepseekApiKey,omitempty"`

	Ollama OllamaConfig `yaml:"ollama" json:"ollama"`

	Theme  string `yaml:"theme,omitempty" json:"theme,omitempty"`   // "dark" | "light"
	Hotkey string `yaml:"hotkey,omitempty" json:"hotkey,omitempty"` // e.g. "Ctrl+Alt+Space"; registered by the shell

	Permissions      Permissions `yaml:"permissions" json:"permissions"`
	SearchRoots      []string    `yaml:"searchRoots,omitempty" json:"searchRoots,omitempty"`
	ClipboardWatcher bool        `yaml:"clipboardWatcher" json:"clipboardWatcher"`

	Gateway  GatewayConfig  `yaml:"gateway,omitempty" json:"gateway,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty" json:"logging,omitempty"`
	Timeouts TimeoutsConfig `yaml:"timeouts,omitempty" json:"timeouts,omitempty"`
}

// OllamaConfig points at the local model server.
type OllamaConfig struct {
	Model   string `yaml:"model" json:"model"`
	BaseURL string `yaml:"baseUrl" json:"baseUrl"`
}

// Permissions gate the actions an agent plan may perform.
type Permissions struct {
	OpenFiles   bool `yaml:"openFiles" json:"openFiles"`
	OpenFolders bool `yaml:"openFolders" json:"openFolders"`
	WebSearch   bool `yaml:"webSearch" json:"webSearch"`
}

// GatewayConfig controls the local HTTP/WebSocket bridge to the desktop shell.
type GatewayConfig struct {
	Port           int         `yaml:"port,omitempty" json:"port,omitempty"`
	Bind           string      `yaml:"bind,omitempty" json:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string      `yaml:"customBindHost,omitempty" json:"customBindHost,omitempty"`
	Auth           GatewayAuth `yaml:"auth,omitempty" json:"auth,omitempty"`
	AllowedOrigins []string    `yaml:"allowedOrigins,omitempty" json:"allowedOrigins,omitempty"`
}

// GatewayAuth configures gateway authentication.
type GatewayAuth struct {
	Mode     string `yaml:"mode,omitempty" json:"mode,omitempty"` // "token" | "password"
	Token    string `yaml:"token,omitempty" json:"token,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
}

// LoggingConfig controls log verbosity and the daemon's log file.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty" json:"level,omitempty"`
	File  bool   `yaml:"file,omitempty" json:"file,omitempty"`
}

// TimeoutsConfig bounds provider calls.
type TimeoutsConfig struct {
	Transform  time.Duration `yaml:"transform,omitempty" json:"transform,omitempty"`
	ListModels time.Duration `yaml:"listModels,omitempty" json:"listModels,omitempty"`
}

// APIKey returns the credential configured for a cloud provider.
func (c Config) APIKey(p ProviderID) string {
	switch p {
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderGemini:
		return c.GeminiAPIKey
	case ProviderDeepSeek:
		return c.DeepSeekAPIKey
	default:
		return ""
	}
}
