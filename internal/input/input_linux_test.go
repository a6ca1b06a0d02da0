//go:build linux

package input

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeXdotool writes a shell script that appends its arguments to a log file.
func fakeXdotool(t *testing.T, exitCode int) (bin, log string) {
	t.Helper()
	dir := t.TempDir()
	log = filepath.Join(dir, "calls.log")
	bin = filepath.Join(dir, "xdotool")
	script := fmt.Sprintf("#!/bin/sh\necho \"$@\" >> %s\nexit %d\n", log, exitCode)
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	return bin, log
}

func readCalls(t *testing.T, log string) []string {
	t.Helper()
	data, err := os.ReadFile(log)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestXdotoolCopyHoldsThenReleases(t *testing.T) {
	bin, log := fakeXdotool(t, 0)
	x := xdotoolInjector{bin: bin}

	start := time.Now()
	require.NoError(t, x.Copy(context.Background(), 30*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	assert.Equal(t, []string{
		"keydown ctrl keydown c",
		"keyup c keyup ctrl",
	}, readCalls(t, log))
}

func TestXdotoolCopyReleasesWhenCancelled(t *testing.T) {
	bin, log := fakeXdotool(t, 0)
	x := xdotoolInjector{bin: bin}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	require.NoError(t, x.Copy(ctx, time.Minute))
	assert.Equal(t, "keyup c keyup ctrl", readCalls(t, log)[1])
}

func TestXdotoolPaste(t *testing.T) {
	bin, log := fakeXdotool(t, 0)
	x := xdotoolInjector{bin: bin}

	require.NoError(t, x.Paste(context.Background()))
	assert.Equal(t, []string{"keydown ctrl keydown v keyup v keyup ctrl"}, readCalls(t, log))
}

func TestXdotoolFailure(t *testing.T) {
	bin, _ := fakeXdotool(t, 1)
	err := xdotoolInjector{bin: bin}.Paste(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keydown ctrl")
}

func TestXdotoolMissingBinary(t *testing.T) {
	x := xdotoolInjector{bin: filepath.Join(t.TempDir(), "missing")}
	assert.Error(t, x.Copy(context.Background(), time.Millisecond))
}
