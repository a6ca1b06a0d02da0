package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/soyeahso/sidekick/internal/agent"
	"github.com/soyeahso/sidekick/internal/assistant"
	"github.com/soyeahso/sidekick/internal/config"
	"github.com/soyeahso/sidekick/internal/llm"
	"github.com/soyeahso/sidekick/internal/window"
)

// HealthResponse is returned by health endpoints. The public HTTP endpoint
// only populates Status; the authenticated RPC handler populates all fields.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Clients  int    `json:"clients,omitempty"`
	UptimeMs int64  `json:"uptimeMs,omitempty"`
}

// handleHealth returns the server health status. Only status is exposed
// publicly; detailed info is available via the authenticated RPC health method.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// handleNotFound returns a 404 for unknown routes.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]string{
		"error": "not found",
		"path":  r.URL.Path,
	})
}

// RequestHandler processes an incoming RPC request frame from a client.
type RequestHandler func(rc *RequestContext)

// RequestContext carries everything a handler needs.
type RequestContext struct {
	Client *Client
	Frame  Frame
	Server *Server

	ctx    context.Context
	status string
}

// Context is cancelled when the client disconnects or the server stops.
func (rc *RequestContext) Context() context.Context {
	if rc.ctx == nil {
		return context.Background()
	}
	return rc.ctx
}

// Respond sends a success response.
func (rc *RequestContext) Respond(payload any) {
	rc.status = "ok"
	if err := rc.Client.Respond(rc.Frame.ID, payload); err != nil {
		rc.Server.log.Warn().Err(err).Str("method", rc.Frame.Method).Msg("failed to send response")
	}
}

// RespondError sends an error response.
func (rc *RequestContext) RespondError(code, message string) {
	rc.status = code
	rc.Client.RespondError(rc.Frame.ID, ErrorShape{
		Code:    code,
		Message: message,
	})
}

// Fail sends err as an error response with a code derived from its type.
func (rc *RequestContext) Fail(err error) {
	code := ErrorCode(err)
	rc.status = code
	rc.Client.RespondError(rc.Frame.ID, ErrorShape{
		Code:      code,
		Message:   err.Error(),
		Retryable: code == "transport_error",
	})
}

// Params unmarshals the request params into the given target.
func (rc *RequestContext) Params(target any) error {
	if rc.Frame.Params == nil {
		return nil
	}
	return json.Unmarshal(rc.Frame.Params, target)
}

// ErrorCode maps an error to the code carried in an error frame.
func ErrorCode(err error) string {
	switch llm.KindOf(err) {
	case llm.KindConfig:
		return "config_error"
	case llm.KindTransport:
		return "transport_error"
	case llm.KindFormat:
		return "format_error"
	case llm.KindUnsupported:
		return "unsupported"
	}

	var cfgErr *config.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		return "config_error"
	case errors.Is(err, agent.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, window.ErrNoShell), errors.Is(err, assistant.ErrNoStats):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal_error"
	}
}
