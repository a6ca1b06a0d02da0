package prompt

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/sidekick/internal/logging"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

func TestGetOrCreateWritesDefault(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")
	s := NewStore(dir, silentLog())

	got := s.GetOrCreate("x", "D")
	assert.Equal(t, "D", got)

	data, err := os.ReadFile(filepath.Join(dir, "x.txt"))
	require.NoError(t, err)
	assert.Equal(t, "D", string(data))
}

func TestGetOrCreateFileIsAuthoritative(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, silentLog())

	assert.Equal(t, "D", s.GetOrCreate("x", "D"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.txt"), []byte("E"), 0o600))

	assert.Equal(t, "E", s.GetOrCreate("x", "D"))
	assert.Equal(t, "E", s.GetOrCreate("x", "other default"))
}

func TestGetOrCreateEmptyFileIsKept(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "summarize.txt"), nil, 0o600))

	s := NewStore(dir, silentLog())
	assert.Equal(t, "", s.GetOrCreate("summarize", Summarize))
}

func TestGetOrCreateInvalidName(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, silentLog())

	for _, name := range []string{"../escape", "Upper", "a b", "", "a/b"} {
		assert.Equal(t, "D", s.GetOrCreate(name, "D"), name)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGetOrCreateUnwritableDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits not enforced")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	parent := t.TempDir()
	require.NoError(t, os.Chmod(parent, 0o500))
	t.Cleanup(func() { os.Chmod(parent, 0o700) })

	s := NewStore(filepath.Join(parent, "prompts"), silentLog())
	assert.Equal(t, "D", s.GetOrCreate("x", "D"))
}

func TestDefault(t *testing.T) {
	tests := []struct {
		op   string
		want string
	}{
		{"summarize", Summarize},
		{"fix_grammar", FixGrammar},
		{"beautify", Beautify},
		{"expand", Expand},
		{"translate", Generic},
		{"", Generic},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			assert.Equal(t, tt.want, Default(tt.op))
		})
	}
}

func TestResolveUsesBuiltInDefault(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, silentLog())

	assert.Equal(t, FixGrammar, s.Resolve("fix_grammar"))
	assert.Equal(t, Generic, s.Resolve("custom-op"))

	_, err := os.Stat(filepath.Join(dir, "custom-op.txt"))
	assert.NoError(t, err)
}

func TestOperationsHaveDefaults(t *testing.T) {
	for _, op := range Operations() {
		assert.NotEqual(t, Generic, Default(op), op)
		assert.True(t, ValidName(op))
	}
}
