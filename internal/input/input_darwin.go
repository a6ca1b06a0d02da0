//go:build darwin

package input

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

type osascriptInjector struct{}

func newPlatform() Injector { return osascriptInjector{} }

func keystroke(ctx context.Context, k string) error {
	script := fmt.Sprintf(`tell application "System Events" to keystroke %q using command down`, k)
	out, err := exec.CommandContext(ctx, "osascript", "-e", script).CombinedOutput()
	if err != nil {
		return fmt.Errorf("osascript keystroke %s: %w: %s", k, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Copy ignores hold: System Events sends the key down and up as one stroke.
func (osascriptInjector) Copy(ctx context.Context, hold time.Duration) error {
	return keystroke(ctx, "c")
}

func (osascriptInjector) Paste(ctx context.Context) error {
	return keystroke(ctx, "v")
}
