package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/soyeahso/sidekick/internal/logging"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so API keys and tokens can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.OpenAIAPIKey = expandEnvVars(cfg.OpenAIAPIKey)
	cfg.GeminiAPIKey = expandEnvVars(cfg.GeminiAPIKey)
	cfg.DeepSeekAPIKey = expandEnvVars(cfg.DeepSeekAPIKey)
	cfg.Gateway.Auth.Token = expandEnvVars(cfg.Gateway.Auth.Token)
	cfg.Gateway.Auth.Password = expandEnvVars(cfg.Gateway.Auth.Password)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only. A malformed file
// returns defaults together with a *ConfigError.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		applyEnvOverrides(&cfg)
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		cfg = Defaults()
		applyEnvOverrides(&cfg)
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// Save writes cfg as YAML, replacing the file atomically. Values that Load
// derived from ${VAR} references or SIDEKICK_* overrides are written back as
// the file had them, so saving a loaded Config never persists a secret or a
// temporary override.
func Save(path string, cfg Config) error {
	keepStored(&cfg, readStored(path))
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// readStored reads the file as written: no defaults, no overrides, no
// expansion. Missing or malformed files yield a zero Config.
func readStored(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var stored Config
	if err := yaml.Unmarshal(data, &stored); err != nil {
		return Config{}
	}
	return stored
}

// keepStored reverses the layers Load adds on top of stored. A field is put
// back only while it still holds the value Load derived; anything the
// caller changed is kept.
func keepStored(cfg *Config, stored Config) {
	refs := []struct {
		field  *string
		stored string
	}{
		{&cfg.OpenAIAPIKey, stored.OpenAIAPIKey},
		{&cfg.GeminiAPIKey, stored.GeminiAPIKey},
		{&cfg.DeepSeekAPIKey, stored.DeepSeekAPIKey},
		{&cfg.Gateway.Auth.Token, stored.Gateway.Auth.Token},
		{&cfg.Gateway.Auth.Password, stored.Gateway.Auth.Password},
	}
	for _, r := range refs {
		if envVarPattern.MatchString(r.stored) && *r.field == expandEnvVars(r.stored) {
			*r.field = r.stored
		}
	}

	if v := os.Getenv("SIDEKICK_PROVIDER"); v != "" && cfg.Provider == ProviderID(strings.ToLower(v)) {
		cfg.Provider = stored.Provider
	}
	if v := os.Getenv("SIDEKICK_OLLAMA_URL"); v != "" && cfg.Ollama.BaseURL == strings.TrimSuffix(v, "/") {
		cfg.Ollama.BaseURL = stored.Ollama.BaseURL
	}
	if v := os.Getenv("SIDEKICK_OLLAMA_MODEL"); v != "" && cfg.Ollama.Model == v {
		cfg.Ollama.Model = stored.Ollama.Model
	}
	if v := os.Getenv("SIDEKICK_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && cfg.Gateway.Port == port {
			cfg.Gateway.Port = stored.Gateway.Port
		}
	}
	if v := os.Getenv("SIDEKICK_LOG_LEVEL"); v != "" && cfg.Logging.Level == strings.ToLower(v) {
		cfg.Logging.Level = stored.Logging.Level
	}
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Provider == "" {
		cfg.Provider = ProviderOllama
	}
	if cfg.Ollama.BaseURL == "" {
		cfg.Ollama.BaseURL = DefaultOllamaBaseURL
	}
	cfg.Ollama.BaseURL = strings.TrimSuffix(cfg.Ollama.BaseURL, "/")
	if cfg.Ollama.Model == "" {
		cfg.Ollama.Model = DefaultOllamaModel
	}
	if cfg.Theme == "" {
		cfg.Theme = "dark"
	}
	if cfg.Hotkey == "" {
		cfg.Hotkey = "Ctrl+Alt+Space"
	}
	if cfg.SearchRoots == nil {
		cfg.SearchRoots = []string{}
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = DefaultGatewayPort
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = "loopback"
	}
	if cfg.Gateway.Auth.Mode == "" {
		cfg.Gateway.Auth.Mode = "token"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Timeouts.Transform <= 0 {
		cfg.Timeouts.Transform = DefaultTransformTimeout
	}
	if cfg.Timeouts.ListModels <= 0 {
		cfg.Timeouts.ListModels = DefaultListModelsTimeout
	}
}

// applyEnvOverrides reads SIDEKICK_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SIDEKICK_PROVIDER"); v != "" {
		cfg.Provider = ProviderID(strings.ToLower(v))
	}
	if v := os.Getenv("SIDEKICK_OLLAMA_URL"); v != "" {
		cfg.Ollama.BaseURL = strings.TrimSuffix(v, "/")
	}
	if v := os.Getenv("SIDEKICK_OLLAMA_MODEL"); v != "" {
		cfg.Ollama.Model = v
	}
	if v := os.Getenv("SIDEKICK_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("SIDEKICK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}

// Store is the settings collaborator used by command handlers. It never
// caches: every Load reads the file again.
type Store struct {
	path string
	log  *logging.Logger
}

// NewStore creates a Store backed by the YAML file at path.
func NewStore(path string, log *logging.Logger) *Store {
	return &Store{path: path, log: log.Sub("config")}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load returns the current settings. Read or parse failures are logged and
// yield defaults; they are never returned to the caller.
func (s *Store) Load() Config {
	cfg, err := Load(s.path)
	if err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("using default settings")
	}
	return cfg
}

// Save persists cfg after validating it.
func (s *Store) Save(cfg Config) error {
	if issues := Validate(&cfg); len(issues) > 0 {
		return &ConfigError{Message: issues[0].String()}
	}
	if err := Save(s.path, cfg); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("failed to save settings")
		return err
	}
	s.log.Info().Str("path", s.path).Msg("settings saved")
	return nil
}
