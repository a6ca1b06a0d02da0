// Package logging builds the zerolog loggers used across Sidekick.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Levels lists the accepted level names, quietest first.
var Levels = []string{"silent", "error", "warn", "info", "debug", "trace"}

// Rotation defaults for the daemon log file.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 14
)

// Logger is a zerolog logger scoped to a subsystem.
type Logger struct {
	zl     zerolog.Logger
	closer io.Closer
}

// ParseLevel maps a level name to zerolog. Names are case-insensitive and
// an empty name means info.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(s) {
	case "":
		return zerolog.InfoLevel, nil
	case "silent":
		return zerolog.Disabled, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "trace":
		return zerolog.TraceLevel, nil
	}
	return zerolog.InfoLevel, fmt.Errorf("unknown log level %q (want one of %s)", s, strings.Join(Levels, ", "))
}

// console writes human-readable lines to f, colored only on a terminal.
func console(f *os.File) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        f,
		TimeFormat: time.RFC3339,
		NoColor:    !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()),
	}
}

// New returns a root logger on w. A nil w means console output on stderr.
// Unknown levels fall back to info.
func New(w io.Writer, level string) *Logger {
	if w == nil {
		w = console(os.Stderr)
	}
	lvl, _ := ParseLevel(level)
	return &Logger{zl: zerolog.New(w).Level(lvl).With().Timestamp().Logger()}
}

// FileOptions controls the rotating JSON log file used by the daemon.
// Zero sizes take the Default* values.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func (o FileOptions) rotator() *lumberjack.Logger {
	orDefault := func(v, d int) int {
		if v > 0 {
			return v
		}
		return d
	}
	return &lumberjack.Logger{
		Filename:   o.Path,
		MaxSize:    orDefault(o.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: orDefault(o.MaxBackups, DefaultMaxBackups),
		MaxAge:     orDefault(o.MaxAgeDays, DefaultMaxAgeDays),
	}
}

// NewWithFile logs to the stderr console and, as JSON lines, to a
// size-rotated file. An empty Path is the same as New(nil, level). Call
// Close to release the file.
func NewWithFile(level string, opts FileOptions) *Logger {
	if opts.Path == "" {
		return New(nil, level)
	}
	_ = os.MkdirAll(filepath.Dir(opts.Path), 0o700)

	file := opts.rotator()
	l := New(zerolog.MultiLevelWriter(console(os.Stderr), file), level)
	l.closer = file
	return l
}

// Close releases the log file, if any. Child loggers share it.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Sub returns a child logger tagged with a subsystem name.
func (l *Logger) Sub(subsystem string) *Logger {
	return &Logger{zl: l.zl.With().Str("subsystem", subsystem).Logger(), closer: l.closer}
}

func (l *Logger) Trace() *zerolog.Event { return l.zl.Trace() }
func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }

// Level reports the minimum level that is written.
func (l *Logger) Level() zerolog.Level { return l.zl.GetLevel() }
