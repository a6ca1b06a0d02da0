package gateway

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/soyeahso/sidekick/internal/config"
	"github.com/soyeahso/sidekick/internal/intent"
)

// defaultStatsWindow is the stats.summary window when none is given.
const defaultStatsWindow = 7 * 24 * time.Hour

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.HandleFunc("/", handleNotFound)
}

// registerRPCHandlers sets up all JSON-RPC method handlers.
func (s *Server) registerRPCHandlers() {
	s.Handle(MethodHealth, s.rpcHealth)
	s.Handle(MethodConfigGet, s.requireService(s.rpcConfigGet))
	s.Handle(MethodConfigSave, s.requireService(s.rpcConfigSave))
	s.Handle(MethodSelectionCapture, s.requireService(s.rpcSelectionCapture))
	s.Handle(MethodTextApply, s.requireService(s.rpcTextApply))
	s.Handle(MethodTextTransform, s.requireService(s.rpcTextTransform))
	s.Handle(MethodIntentClassify, s.requireService(s.rpcIntentClassify))
	s.Handle(MethodIntentExecute, s.requireService(s.rpcIntentExecute))
	s.Handle(MethodModelsList, s.requireService(s.rpcModelsList))
	s.Handle(MethodStatsSummary, s.requireService(s.rpcStatsSummary))
	s.Handle(MethodWindowMode, s.requireService(s.rpcWindowMode))
	s.Handle(MethodWindowToggle, s.requireService(s.rpcWindowToggle))
	s.Handle(MethodWindowState, s.requireService(s.rpcWindowState))
}

func (s *Server) requireService(h RequestHandler) RequestHandler {
	return func(rc *RequestContext) {
		if s.svc == nil {
			rc.RespondError("unavailable", ErrNoService.Error())
			return
		}
		h(rc)
	}
}

func (s *Server) rpcHealth(rc *RequestContext) {
	rc.Respond(HealthResponse{
		Status:   "ok",
		Version:  s.version,
		Clients:  s.clients.Count(),
		UptimeMs: s.Uptime().Milliseconds(),
	})
}

// redact hides credentials from settings sent to a shell.
func redact(cfg config.Config) config.Config {
	for _, f := range secretFields(&cfg) {
		*f = ""
	}
	return cfg
}

func secretFields(cfg *config.Config) []*string {
	return []*string{
		&cfg.OpenAIAPIKey,
		&cfg.GeminiAPIKey,
		&cfg.DeepSeekAPIKey,
		&cfg.Gateway.Auth.Token,
		&cfg.Gateway.Auth.Password,
	}
}

func (s *Server) rpcConfigGet(rc *RequestContext) {
	var p ConfigGetParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	cfg := redact(s.svc.GetConfig())
	if p.Key == "" {
		rc.Respond(cfg)
		return
	}

	key, err := config.ParseKeyPath(p.Key)
	if err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	raw, err := toMap(cfg)
	if err != nil {
		rc.Fail(err)
		return
	}
	val, ok := key.Get(raw)
	if !ok {
		rc.RespondError("not_found", "key not found: "+p.Key)
		return
	}
	rc.Respond(ConfigValue{Key: p.Key, Value: val})
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	return m, json.Unmarshal(data, &m)
}

func (s *Server) rpcConfigSave(rc *RequestContext) {
	var cfg config.Config
	if err := rc.Params(&cfg); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	// Settings read through config.get have their credentials blanked;
	// keep the stored ones rather than erasing them. config.Save turns
	// values that came from ${VAR} references back into the references.
	current := s.svc.GetConfig()
	kept := secretFields(&current)
	for i, f := range secretFields(&cfg) {
		if *f == "" {
			*f = *kept[i]
		}
	}

	if err := s.svc.SaveConfig(rc.Context(), cfg); err != nil {
		rc.Fail(err)
		return
	}
	s.Emit(EventSettingsChanged, SettingsChanged{Provider: cfg.Provider})
	rc.Respond(map[string]any{"saved": true})
}

func (s *Server) rpcSelectionCapture(rc *RequestContext) {
	rc.Respond(CaptureResult{Text: s.svc.CaptureSelection(rc.Context())})
}

func (s *Server) rpcTextApply(rc *RequestContext) {
	var p ApplyParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if err := s.svc.ApplyText(rc.Context(), p.Text, p.Mode); err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(map[string]any{"applied": true})
}

func (s *Server) rpcTextTransform(rc *RequestContext) {
	var p TransformParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if strings.TrimSpace(p.Operation) == "" {
		rc.RespondError("invalid_params", "operation is required")
		return
	}

	res, err := s.svc.RunTextTransform(rc.Context(), p.Operation, p.Input)
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(TransformResult{
		Output:     res.Output,
		Operation:  res.Operation,
		Provider:   res.Provider,
		Model:      res.Model,
		DurationMs: res.Duration.Milliseconds(),
	})
}

func (s *Server) rpcIntentClassify(rc *RequestContext) {
	var p ClassifyParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	rc.Respond(s.svc.ClassifyIntent(p.Input))
}

func (s *Server) rpcIntentExecute(rc *RequestContext) {
	var plan intent.Plan
	if err := rc.Params(&plan); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if !plan.Action.Type.Valid() {
		rc.RespondError("invalid_params", "plan action is required")
		return
	}

	res, err := s.svc.ExecutePlan(rc.Context(), plan)
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(res)
}

func (s *Server) rpcModelsList(rc *RequestContext) {
	models, err := s.svc.ListLocalModels(rc.Context())
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(map[string]any{"models": models})
}

func (s *Server) rpcStatsSummary(rc *RequestContext) {
	var p StatsParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	window := defaultStatsWindow
	if p.Days > 0 {
		window = time.Duration(p.Days) * 24 * time.Hour
	}

	sum, err := s.svc.Stats(rc.Context(), time.Now().Add(-window))
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(sum)
}

func (s *Server) rpcWindowMode(rc *RequestContext) {
	var p WindowModeParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if err := s.svc.SetWindowMode(p.Mini); err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(map[string]any{"mini": p.Mini})
}

func (s *Server) rpcWindowToggle(rc *RequestContext) {
	visible, err := s.svc.ToggleWindow()
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(map[string]any{"visible": visible})
}

// visibilityTracker is implemented by window controllers that rely on the
// shell to report visibility.
type visibilityTracker interface {
	SetVisible(bool)
}

func (s *Server) rpcWindowState(rc *RequestContext) {
	var p WindowStateParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if vt, ok := s.svc.Window().(visibilityTracker); ok {
		vt.SetVisible(p.Visible)
	}
	rc.Respond(map[string]any{"visible": s.svc.Window().IsVisible()})
}
