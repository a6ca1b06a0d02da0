package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info").Sub("clipboard").Info().Int("chars", 12).Msg("copied")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "copied", line["message"])
	assert.Equal(t, "clipboard", line["subsystem"])
	assert.Equal(t, "info", line["level"])
	assert.EqualValues(t, 12, line["chars"])
	assert.NotEmpty(t, line["time"])
}

func TestNestedSubKeepsInnermost(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "debug").Sub("gateway").Sub("clients").Debug().Msg("tick")
	assert.Contains(t, buf.String(), `"subsystem":"clients"`)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn")

	log.Debug().Msg("debug msg")
	log.Info().Msg("info msg")
	assert.Empty(t, buf.String())

	log.Warn().Msg("warn msg")
	log.Error().Msg("error msg")
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))
	assert.Equal(t, zerolog.WarnLevel, log.Level())
}

func TestSilentWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "silent")
	log.Error().Msg("should not appear")
	assert.Empty(t, buf.String())
}

func TestParseLevel(t *testing.T) {
	for _, name := range Levels {
		_, err := ParseLevel(name)
		assert.NoError(t, err, name)
	}

	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)

	lvl, err = ParseLevel("loud")
	assert.ErrorContains(t, err, `unknown log level "loud"`)
	assert.Equal(t, zerolog.InfoLevel, lvl)
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "verbose")
	log.Debug().Msg("hidden")
	log.Info().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sidekick.log")
	log := NewWithFile("info", FileOptions{Path: path})
	t.Cleanup(func() { log.Close() })

	log.Sub("transform").Info().Str("op", "summarize").Msg("file message")
	log.Debug().Msg("below level")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"file message"`)
	assert.Contains(t, string(data), `"op":"summarize"`)
	assert.NotContains(t, string(data), "below level")
}

func TestFileOptionsDefaults(t *testing.T) {
	r := FileOptions{Path: "x.log"}.rotator()
	assert.Equal(t, DefaultMaxSizeMB, r.MaxSize)
	assert.Equal(t, DefaultMaxBackups, r.MaxBackups)
	assert.Equal(t, DefaultMaxAgeDays, r.MaxAge)

	r = FileOptions{Path: "x.log", MaxSizeMB: 1, MaxBackups: 7, MaxAgeDays: 2}.rotator()
	assert.Equal(t, 1, r.MaxSize)
	assert.Equal(t, 7, r.MaxBackups)
	assert.Equal(t, 2, r.MaxAge)
}

func TestCloseWithoutFile(t *testing.T) {
	assert.NoError(t, New(&bytes.Buffer{}, "info").Close())
	assert.NoError(t, NewWithFile("info", FileOptions{}).Close())
}
