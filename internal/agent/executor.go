// Package agent carries out agent plans: opening folders and files and
// running web searches, each gated by a user permission.
package agent

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/browser"
	"github.com/sahilm/fuzzy"

	"github.com/soyeahso/sidekick/internal/config"
	"github.com/soyeahso/sidekick/internal/intent"
	"github.com/soyeahso/sidekick/internal/logging"
)

const (
	searchURL      = "https://www.google.com/search?q="
	maxSearchDepth = 2
	maxCandidates  = 10
)

// Result statuses.
const (
	StatusOpened    = "opened"
	StatusAmbiguous = "ambiguous"
	StatusNotFound  = "not_found"
)

// ErrPermissionDenied is wrapped by every *PermissionError.
var ErrPermissionDenied = errors.New("permission denied")

// PermissionError reports an action blocked by a permission setting.
type PermissionError struct {
	Action  intent.ActionType
	Setting string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s is disabled (permissions.%s)", e.Action, e.Setting)
}

func (e *PermissionError) Unwrap() error { return ErrPermissionDenied }

// Result describes what Execute did.
type Result struct {
	Status     string             `json:"status"`
	Opened     string             `json:"opened,omitempty"`
	Candidates []intent.Candidate `json:"candidates,omitempty"`
}

// Opener launches URLs and paths with the desktop's default handler.
type Opener interface {
	OpenURL(u string) error
	OpenFile(path string) error
}

type browserOpener struct{}

func (browserOpener) OpenURL(u string) error     { return browser.OpenURL(u) }
func (browserOpener) OpenFile(path string) error { return browser.OpenFile(path) }

// Executor resolves and runs agent plans.
type Executor struct {
	opener Opener
	home   string
	log    *logging.Logger
}

// NewExecutor creates an Executor that opens things with the system browser
// helpers. The user's home directory is always searched one level deep in
// addition to the configured search roots.
func NewExecutor(log *logging.Logger) *Executor {
	home, _ := os.UserHomeDir()
	return &Executor{
		opener: browserOpener{},
		home:   home,
		log:    log.Sub("agent"),
	}
}

// WithOpener replaces the launcher.
func (e *Executor) WithOpener(o Opener) *Executor {
	e.opener = o
	return e
}

// WithHome overrides the home directory searched for well-known folders.
// An empty home disables that search.
func (e *Executor) WithHome(home string) *Executor {
	e.home = home
	return e
}

// Resolve returns the filesystem entries that could satisfy a folder or
// file action, best match first. Web searches have no candidates.
func (e *Executor) Resolve(plan intent.Plan, cfg config.Config) []intent.Candidate {
	var wantDir bool
	switch plan.Action.Type {
	case intent.ActionOpenFolder:
		wantDir = true
	case intent.ActionOpenFile:
		wantDir = false
	default:
		return nil
	}

	target := strings.TrimSpace(plan.Action.Target)
	if target == "" {
		return nil
	}

	if filepath.IsAbs(target) {
		if info, err := os.Stat(target); err == nil && info.IsDir() == wantDir {
			return []intent.Candidate{candidate(target, wantDir)}
		}
		return nil
	}

	entries := e.collect(cfg.SearchRoots, wantDir)
	if len(entries) == 0 {
		return nil
	}

	// Exact name matches win over fuzzy ones.
	var exact []intent.Candidate
	for _, p := range entries {
		if strings.EqualFold(filepath.Base(p), target) {
			exact = append(exact, candidate(p, wantDir))
		}
	}
	if len(exact) > 0 {
		return limit(exact)
	}

	names := make([]string, len(entries))
	for i, p := range entries {
		names[i] = filepath.Base(p)
	}
	matches := fuzzy.Find(target, names)

	out := make([]intent.Candidate, 0, len(matches))
	for _, m := range matches {
		out = append(out, candidate(entries[m.Index], wantDir))
	}
	return limit(out)
}

// Execute performs the plan's action if its permission allows it. Folder
// and file actions open the single resolved match; several matches are
// returned as candidates without opening anything. A plan that already
// carries exactly one candidate opens that candidate, provided it is an
// entry Resolve could have returned for the plan.
func (e *Executor) Execute(ctx context.Context, plan intent.Plan, cfg config.Config) (*Result, error) {
	if err := checkPermission(plan.Action.Type, cfg.Permissions); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if plan.Action.Type == intent.ActionWebSearch {
		u := searchURL + url.QueryEscape(plan.Action.Target)
		if err := e.opener.OpenURL(u); err != nil {
			return nil, fmt.Errorf("open search: %w", err)
		}
		e.log.Info().Str("action", string(plan.Action.Type)).Msg("opened web search")
		return &Result{Status: StatusOpened, Opened: u}, nil
	}

	candidates := plan.Candidates
	if len(candidates) == 1 && !e.reachable(candidates[0].Path, plan, cfg) {
		e.log.Warn().Str("path", candidates[0].Path).Msg("rejected candidate outside the search locations")
		return &Result{Status: StatusNotFound}, nil
	}
	if len(candidates) != 1 {
		candidates = e.Resolve(plan, cfg)
	}

	switch len(candidates) {
	case 0:
		e.log.Debug().Str("target", plan.Action.Target).Msg("no match")
		return &Result{Status: StatusNotFound}, nil
	case 1:
		path := candidates[0].Path
		if err := e.opener.OpenFile(path); err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		e.log.Info().Str("action", string(plan.Action.Type)).Str("path", path).Msg("opened")
		return &Result{Status: StatusOpened, Opened: path}, nil
	default:
		return &Result{Status: StatusAmbiguous, Candidates: candidates}, nil
	}
}

func checkPermission(action intent.ActionType, p config.Permissions) error {
	switch action {
	case intent.ActionOpenFolder:
		if !p.OpenFolders {
			return &PermissionError{Action: action, Setting: "openFolders"}
		}
	case intent.ActionOpenFile:
		if !p.OpenFiles {
			return &PermissionError{Action: action, Setting: "openFiles"}
		}
	case intent.ActionWebSearch:
		if !p.WebSearch {
			return &PermissionError{Action: action, Setting: "webSearch"}
		}
	default:
		return fmt.Errorf("unknown action type %q", action)
	}
	return nil
}

// collect lists directories (or files) under each root, up to
// maxSearchDepth levels deep, plus the top level of the home directory.
// Hidden entries are skipped.
func (e *Executor) collect(roots []string, wantDir bool) []string {
	seen := make(map[string]bool)
	var out []string

	var walk func(dir string, depth, maxDepth int)
	walk = func(dir string, depth, maxDepth int) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			e.log.Debug().Err(err).Str("dir", dir).Msg("skipping unreadable directory")
			return
		}
		for _, ent := range entries {
			if strings.HasPrefix(ent.Name(), ".") {
				continue
			}
			p := filepath.Join(dir, ent.Name())
			if ent.IsDir() == wantDir && !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
			if ent.IsDir() && depth < maxDepth {
				walk(p, depth+1, maxDepth)
			}
		}
	}

	for _, root := range roots {
		walk(filepath.Clean(root), 1, maxSearchDepth)
	}
	if e.home != "" {
		walk(e.home, 1, 1)
	}
	return out
}

// reachable reports whether path exists with the kind the plan asks for and
// lies where Resolve searches: within maxSearchDepth of a search root,
// directly in home, or at the plan's own absolute target.
func (e *Executor) reachable(path string, plan intent.Plan, cfg config.Config) bool {
	wantDir := plan.Action.Type == intent.ActionOpenFolder
	p := filepath.Clean(path)
	if !filepath.IsAbs(p) {
		return false
	}
	info, err := os.Stat(p)
	if err != nil || info.IsDir() != wantDir {
		return false
	}

	if t := strings.TrimSpace(plan.Action.Target); filepath.IsAbs(t) && filepath.Clean(t) == p {
		return true
	}
	for _, root := range cfg.SearchRoots {
		if within(filepath.Clean(root), p, maxSearchDepth) {
			return true
		}
	}
	return e.home != "" && within(filepath.Clean(e.home), p, 1)
}

// within reports whether p sits below root, at most depth levels down, with
// no hidden segment on the way.
func within(root, p string, depth int) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) > depth {
		return false
	}
	for _, part := range parts {
		if strings.HasPrefix(part, ".") {
			return false
		}
	}
	return true
}

func candidate(path string, dir bool) intent.Candidate {
	icon := "file"
	if dir {
		icon = "folder"
	}
	return intent.Candidate{Name: filepath.Base(path), Path: path, Icon: icon}
}

func limit(c []intent.Candidate) []intent.Candidate {
	if len(c) > maxCandidates {
		return c[:maxCandidates]
	}
	return c
}
