// Package version reports the build identity of the sidekick binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Release builds stamp these with -ldflags "-X <pkg>.Version=... -X <pkg>.Commit=...
// -X <pkg>.Date=...". Binaries from `go install` leave them unset and fall back
// to the module and VCS data embedded by the toolchain.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Build describes the running binary.
type Build struct {
	Version  string `json:"version"`
	Commit   string `json:"commit"`
	Date     string `json:"date"`
	Modified bool   `json:"modified,omitempty"`
	Go       string `json:"go"`
	Platform string `json:"platform"`
}

var (
	readBuildInfo = debug.ReadBuildInfo
	once          sync.Once
	current       Build
)

// Current returns the resolved build identity. It is computed once.
func Current() Build {
	once.Do(func() { current = resolve() })
	return current
}

func resolve() Build {
	b := Build{
		Version:  Version,
		Commit:   Commit,
		Date:     Date,
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}

	info, ok := readBuildInfo()
	if !ok {
		return b
	}
	if b.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		b.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "unknown" {
				b.Commit = s.Value
			}
		case "vcs.time":
			if b.Date == "unknown" {
				b.Date = s.Value
			}
		case "vcs.modified":
			b.Modified = s.Value == "true"
		}
	}
	return b
}

// ShortCommit is the commit hash cut to seven characters.
func (b Build) ShortCommit() string {
	if len(b.Commit) > 7 {
		return b.Commit[:7]
	}
	return b.Commit
}

func (b Build) String() string {
	commit := b.ShortCommit()
	if b.Modified {
		commit += "+dirty"
	}
	return fmt.Sprintf("sidekick %s (commit: %s, built: %s, %s, %s)",
		b.Version, commit, b.Date, b.Go, b.Platform)
}

// Info returns a one-line version string.
func Info() string {
	return Current().String()
}
