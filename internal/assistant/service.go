// Package assistant implements the commands the desktop shell invokes:
// capturing the selection, transforming text, pasting it back, classifying
// and executing intents, and reading or saving settings.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/sidekick/internal/agent"
	"github.com/soyeahso/sidekick/internal/clipboard"
	"github.com/soyeahso/sidekick/internal/config"
	"github.com/soyeahso/sidekick/internal/hooks"
	"github.com/soyeahso/sidekick/internal/intent"
	"github.com/soyeahso/sidekick/internal/llm"
	"github.com/soyeahso/sidekick/internal/logging"
	"github.com/soyeahso/sidekick/internal/metrics"
	"github.com/soyeahso/sidekick/internal/prompt"
	"github.com/soyeahso/sidekick/internal/selection"
	"github.com/soyeahso/sidekick/internal/store"
	"github.com/soyeahso/sidekick/internal/window"
)

// ErrNoStats is returned by Stats when no stats database is attached.
var ErrNoStats = errors.New("stats are not enabled")

// TransformResult is the outcome of a text transform.
type TransformResult struct {
	Output    string        `json:"output"`
	Operation string        `json:"operation"`
	Provider  string        `json:"provider"`
	Model     string        `json:"model,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Service backs every UI command. Each command loads the configuration
// fresh, so settings edits apply to the next command without a restart.
type Service struct {
	cfg       *config.Store
	prompts   *prompt.Store
	providers *llm.Registry
	sel       *selection.Orchestrator
	cb        clipboard.Clipboard
	win       window.Controller
	exec      *agent.Executor
	hooks     *hooks.Manager
	stats     *store.DB
	metrics   *metrics.Metrics
	log       *logging.Logger
}

// New creates a Service. Selection, clipboard and window default to inert
// implementations until set with the With* methods.
func New(cfg *config.Store, prompts *prompt.Store, providers *llm.Registry, log *logging.Logger) *Service {
	return &Service{
		cfg:       cfg,
		prompts:   prompts,
		providers: providers,
		win:       &window.Noop{},
		exec:      agent.NewExecutor(log),
		hooks:     hooks.NewManager(log),
		log:       log.Sub("assistant"),
	}
}

// WithSelection attaches the capture/replace orchestrator and the clipboard
// it reads from.
func (s *Service) WithSelection(sel *selection.Orchestrator, cb clipboard.Clipboard) *Service {
	s.sel = sel
	s.cb = cb
	return s
}

// WithWindow sets the window controller.
func (s *Service) WithWindow(w window.Controller) *Service {
	s.win = w
	return s
}

// WithExecutor replaces the plan executor.
func (s *Service) WithExecutor(e *agent.Executor) *Service {
	s.exec = e
	return s
}

// WithHooks replaces the hook manager.
func (s *Service) WithHooks(h *hooks.Manager) *Service {
	s.hooks = h
	return s
}

// WithStats records transform and plan stats to db.
func (s *Service) WithStats(db *store.DB) *Service {
	s.stats = db
	return s
}

// WithMetrics records Prometheus metrics to m.
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// Hooks returns the hook manager.
func (s *Service) Hooks() *hooks.Manager { return s.hooks }

// Window returns the window controller.
func (s *Service) Window() window.Controller { return s.win }

// CaptureSelection copies the focused application's selection and returns
// it, or "" when nothing could be captured.
func (s *Service) CaptureSelection(ctx context.Context) string {
	if s.sel == nil {
		return ""
	}
	return s.sel.Capture(ctx)
}

// ApplyText puts text on the clipboard and, in replace mode, pastes it into
// the previously focused application. An empty text leaves the clipboard as
// the shell wrote it.
func (s *Service) ApplyText(ctx context.Context, text, mode string) error {
	if text != "" && s.cb != nil {
		if err := s.cb.WriteText(text); err != nil {
			return fmt.Errorf("writing clipboard: %w", err)
		}
	}
	if s.sel != nil {
		s.sel.Replace(ctx, mode)
	}
	return nil
}

// RunTextTransform runs operation over input with the configured provider
// and returns the sanitized output.
func (s *Service) RunTextTransform(ctx context.Context, operation, input string) (*TransformResult, error) {
	cfg := s.cfg.Load()
	start := time.Now()

	res := &TransformResult{
		Operation: operation,
		Provider:  string(cfg.Provider),
	}
	if cfg.Provider.IsLocal() {
		res.Model = cfg.Ollama.Model
	}

	s.hooks.Emit(ctx, hooks.EventBeforeTransform, map[string]any{
		"operation":  operation,
		"provider":   res.Provider,
		"inputChars": len(input),
	})

	system := s.prompts.Resolve(operation)
	raw, err := s.providers.Transform(ctx, cfg, system, input)
	res.Duration = time.Since(start)

	stat := store.TransformStat{
		Operation:  operation,
		Provider:   res.Provider,
		Model:      res.Model,
		InputChars: len(input),
		Duration:   res.Duration,
	}
	result := "ok"

	if err != nil {
		result = errorKind(err)
		stat.ErrorKind = result
		s.log.Warn().
			Err(err).
			Str("op", operation).
			Str("provider", res.Provider).
			Dur("duration", res.Duration).
			Msg("transform failed")
	} else {
		res.Output = llm.Sanitize(raw)
		stat.OutputChars = len(res.Output)
		s.log.Info().
			Str("op", operation).
			Str("provider", res.Provider).
			Int("inputChars", len(input)).
			Int("outputChars", len(res.Output)).
			Dur("duration", res.Duration).
			Msg("transform complete")
	}

	s.metrics.ObserveTransform(operation, res.Provider, result, res.Duration)
	s.recordTransform(ctx, stat)
	s.hooks.Emit(ctx, hooks.EventAfterTransform, map[string]any{
		"operation":   operation,
		"provider":    res.Provider,
		"result":      result,
		"outputChars": stat.OutputChars,
		"durationMs":  res.Duration.Milliseconds(),
	})

	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) recordTransform(ctx context.Context, stat store.TransformStat) {
	if s.stats == nil {
		return
	}
	// Stats must not outlive or fail the request that produced them.
	if err := s.stats.RecordTransform(context.WithoutCancel(ctx), stat); err != nil {
		s.log.Warn().Err(err).Msg("failed to record transform stat")
	}
}

// errorKind names an error for stats and metrics.
func errorKind(err error) string {
	if k := llm.KindOf(err); k != "" {
		return string(k)
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "error"
}

// ClassifyIntent maps free text to an agent plan.
func (s *Service) ClassifyIntent(input string) intent.Plan {
	return intent.Classify(strings.TrimSpace(input))
}

// ExecutePlan carries out plan under the current permission settings.
func (s *Service) ExecutePlan(ctx context.Context, plan intent.Plan) (*agent.Result, error) {
	cfg := s.cfg.Load()

	res, err := s.exec.Execute(ctx, plan, cfg)
	status := "error"
	switch {
	case err == nil:
		status = res.Status
	case errors.Is(err, agent.ErrPermissionDenied):
		status = "denied"
	}

	action := string(plan.Action.Type)
	s.metrics.ObservePlan(action, status)
	if s.stats != nil {
		if rerr := s.stats.RecordPlan(context.WithoutCancel(ctx), action, status); rerr != nil {
			s.log.Warn().Err(rerr).Msg("failed to record plan stat")
		}
	}
	s.hooks.Emit(ctx, hooks.EventPlanExecuted, map[string]any{
		"action": action,
		"status": status,
	})
	return res, err
}

// ListLocalModels returns the models installed on the local Ollama server.
func (s *Service) ListLocalModels(ctx context.Context) ([]string, error) {
	return s.providers.ListModels(ctx, s.cfg.Load())
}

// GetConfig returns the current settings.
func (s *Service) GetConfig() config.Config {
	return s.cfg.Load()
}

// SaveConfig validates and persists cfg.
func (s *Service) SaveConfig(ctx context.Context, cfg config.Config) error {
	if err := s.cfg.Save(cfg); err != nil {
		return err
	}
	s.log.Info().Str("provider", string(cfg.Provider)).Msg("settings saved")
	s.hooks.Emit(ctx, hooks.EventSettingsChanged, map[string]any{
		"provider": string(cfg.Provider),
	})
	return nil
}

// SetWindowMode switches between the compact and normal window layouts.
func (s *Service) SetWindowMode(mini bool) error {
	return window.ApplyMode(s.win, mini)
}

// ToggleWindow hides or shows the window and returns the new visibility.
func (s *Service) ToggleWindow() (bool, error) {
	return window.Toggle(s.win)
}

// Stats summarizes usage recorded since the given time.
func (s *Service) Stats(ctx context.Context, since time.Time) (*store.Summary, error) {
	if s.stats == nil {
		return nil, ErrNoStats
	}
	return s.stats.Summary(ctx, since)
}
