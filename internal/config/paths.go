package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides the base directory.
const HomeEnv = "SIDEKICK_HOME"

const (
	defaultBaseDir = ".sidekick"
	dirMode        = 0o700
)

// Paths holds the on-disk layout under one base directory.
type Paths struct {
	Base        string
	Config      string
	Prompts     string
	Credentials string
	Data        string
	Logs        string
}

// ResolvePaths returns the layout under $SIDEKICK_HOME, or ~/.sidekick when
// the variable is unset.
func ResolvePaths() (Paths, error) {
	if base := os.Getenv(HomeEnv); base != "" {
		return PathsAt(base), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, fmt.Errorf("locating home directory: %w", err)
	}
	return PathsAt(filepath.Join(home, defaultBaseDir)), nil
}

// PathsAt returns the layout rooted at base.
func PathsAt(base string) Paths {
	return Paths{
		Base:        base,
		Config:      filepath.Join(base, "config.yaml"),
		Prompts:     filepath.Join(base, "prompts"),
		Credentials: filepath.Join(base, "credentials"),
		Data:        filepath.Join(base, "data"),
		Logs:        filepath.Join(base, "logs"),
	}
}

// Dirs lists every directory in the layout, parents first.
func (p Paths) Dirs() []string {
	return []string{p.Base, p.Prompts, p.Credentials, p.Data, p.Logs}
}

// EnsureDirs creates the layout's directories, owner-only.
func (p Paths) EnsureDirs() error {
	for _, d := range p.Dirs() {
		if err := os.MkdirAll(d, dirMode); err != nil {
			return fmt.Errorf("creating %s: %w", d, err)
		}
	}
	return nil
}

// TokenFile is where the daemon keeps its generated gateway token.
func (p Paths) TokenFile() string {
	return filepath.Join(p.Credentials, "gateway.token")
}

// StatsDB is the usage statistics database.
func (p Paths) StatsDB() string {
	return filepath.Join(p.Data, "sidekick.db")
}

// LogFile is the daemon's rotating log file.
func (p Paths) LogFile() string {
	return filepath.Join(p.Logs, "sidekick.log")
}
