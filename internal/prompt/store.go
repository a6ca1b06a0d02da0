// Package prompt resolves the system prompt used for each text operation.
//
// Prompts live as <operation>.txt files in a directory the user may edit.
// A missing file is created from the built-in default on first use; after
// that the file is authoritative.
package prompt

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/soyeahso/sidekick/internal/logging"
)

// Built-in system prompts.
const (
	Summarize  = "You are a precise summarizer. Summarize the following text concisely."
	FixGrammar = "You are a copy editor. Fix the grammar and spelling of the following text. Output ONLY the fixed text."
	Beautify   = "You are a text polisher. Improve the flow and tone of the text to be more professional and engaging. Output ONLY the improved text."
	Expand     = "You are a helpful assistant. Complete the user's thought or define the term provided in the input(Include the input in the output). Provide relevant details, context, and elaboration that directly follows the input. Do not start a new story; continue or explain the existing text."
	Generic    = "You are a helpful assistant."
)

var defaults = map[string]string{
	"summarize":   Summarize,
	"fix_grammar": FixGrammar,
	"beautify":    Beautify,
	"expand":      Expand,
}

var validName = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Default returns the built-in prompt for operation, or the generic
// assistant prompt for operations without one.
func Default(operation string) string {
	if p, ok := defaults[operation]; ok {
		return p
	}
	return Generic
}

// Operations lists the operations that have a dedicated built-in prompt.
func Operations() []string {
	return []string{"summarize", "fix_grammar", "beautify", "expand"}
}

// ValidName reports whether operation can be used as a prompt file name.
func ValidName(operation string) bool {
	return validName.MatchString(operation)
}

// Store reads and lazily creates prompt files.
type Store struct {
	dir string
	log *logging.Logger
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string, log *logging.Logger) *Store {
	return &Store{dir: dir, log: log.Sub("prompt")}
}

// Dir returns the prompts directory.
func (s *Store) Dir() string { return s.dir }

// GetOrCreate returns the stored prompt for operation, writing defaultText
// to the store first if no file exists. I/O failures are logged and
// defaultText is returned.
func (s *Store) GetOrCreate(operation, defaultText string) string {
	if !ValidName(operation) {
		s.log.Warn().Str("op", operation).Msg("invalid operation name, using default prompt")
		return defaultText
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		s.log.Warn().Err(err).Str("dir", s.dir).Msg("cannot create prompts directory")
		return defaultText
	}

	path := filepath.Join(s.dir, operation+".txt")
	data, err := os.ReadFile(path)
	if err == nil {
		return string(data)
	}
	if !os.IsNotExist(err) {
		s.log.Warn().Err(err).Str("path", path).Msg("cannot read prompt")
		return defaultText
	}

	if err := os.WriteFile(path, []byte(defaultText), 0o600); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("cannot write default prompt")
		return defaultText
	}
	s.log.Debug().Str("op", operation).Msg("created default prompt")
	return defaultText
}

// Resolve is GetOrCreate with the built-in default for operation.
func (s *Store) Resolve(operation string) string {
	return s.GetOrCreate(operation, Default(operation))
}
