//go:build linux

package input

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// xdotoolInjector drives X11 through the xdotool binary.
type xdotoolInjector struct {
	bin string
}

func newPlatform() Injector { return xdotoolInjector{bin: "xdotool"} }

func (x xdotoolInjector) run(ctx context.Context, args ...string) error {
	out, err := exec.CommandContext(ctx, x.bin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", x.bin, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (x xdotoolInjector) Copy(ctx context.Context, hold time.Duration) error {
	if err := x.run(ctx, "keydown", "ctrl", "keydown", "c"); err != nil {
		return err
	}
	t := time.NewTimer(hold)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
	// Release with a fresh context so keys are never left held down.
	return x.run(context.Background(), "keyup", "c", "keyup", "ctrl")
}

func (x xdotoolInjector) Paste(ctx context.Context) error {
	return x.run(ctx, "keydown", "ctrl", "keydown", "v", "keyup", "v", "keyup", "ctrl")
}
