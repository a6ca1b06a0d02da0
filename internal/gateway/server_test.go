package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/sidekick/internal/agent"
	"github.com/soyeahso/sidekick/internal/assistant"
	"github.com/soyeahso/sidekick/internal/config"
	"github.com/soyeahso/sidekick/internal/intent"
	"github.com/soyeahso/sidekick/internal/llm"
	"github.com/soyeahso/sidekick/internal/logging"
	"github.com/soyeahso/sidekick/internal/metrics"
	"github.com/soyeahso/sidekick/internal/prompt"
	"github.com/soyeahso/sidekick/internal/window"
)

const testToken = "test-token-123"

type harness struct {
	srv     *Server
	ts      *httptest.Server
	svc     *assistant.Service
	cfg     *config.Store
	mock    *llm.MockClient
	metrics *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logging.New(nil, "silent")
	dir := t.TempDir()

	h := &harness{
		cfg:     config.NewStore(filepath.Join(dir, "config.yaml"), log),
		mock:    &llm.MockClient{ProviderName: "ollama"},
		metrics: metrics.New(),
	}

	reg := llm.NewDefaultRegistry(log)
	reg.Register(config.ProviderOllama, func(config.Config) llm.Client { return h.mock })

	h.svc = assistant.New(h.cfg, prompt.NewStore(filepath.Join(dir, "prompts"), log), reg, log).
		WithExecutor(agent.NewExecutor(log).WithOpener(nopOpener{}).WithHome("")).
		WithMetrics(h.metrics)

	cfg := config.Defaults()
	cfg.Gateway.Auth.Mode = "token"
	cfg.Gateway.Auth.Token = testToken

	h.srv = New(cfg, log, WithService(h.svc), WithMetrics(h.metrics))
	h.svc.WithWindow(window.NewRemote(h.srv))

	mux := http.NewServeMux()
	h.srv.registerHTTPRoutes(mux)
	h.ts = httptest.NewServer(mux)
	t.Cleanup(h.ts.Close)
	return h
}

type nopOpener struct{}

func (nopOpener) OpenURL(string) error  { return nil }
func (nopOpener) OpenFile(string) error { return nil }

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func connect(t *testing.T, ts *httptest.Server, token string) (*websocket.Conn, Frame) {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var challenge Frame
	require.NoError(t, conn.ReadJSON(&challenge))
	require.Equal(t, EventConnectChallenge, challenge.Event)

	req, err := NewRequest("connect-1", "connect", ConnectParams{
		MinProtocol: 1,
		MaxProtocol: 1,
		Client:      ClientInfo{ID: "test-shell", Version: "1.0.0", Platform: "linux", Mode: "shell"},
		Auth:        &ConnectAuth{Token: token},
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(req))

	var resp Frame
	require.NoError(t, conn.ReadJSON(&resp))
	return conn, resp
}

func authenticatedConn(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, resp := connect(t, ts, testToken)
	require.NotNil(t, resp.OK)
	require.True(t, *resp.OK)
	return conn
}

// readUntil reads frames, skipping those that do not match.
func readUntil(t *testing.T, conn *websocket.Conn, match func(Frame) bool) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var f Frame
		require.NoError(t, conn.ReadJSON(&f))
		if match(f) {
			return f
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, id, method string, params any) {
	t.Helper()
	req, err := NewRequest(id, method, params)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(req))
}

func response(t *testing.T, conn *websocket.Conn, id string) Frame {
	t.Helper()
	return readUntil(t, conn, func(f Frame) bool {
		return f.Type == FrameTypeResponse && f.ID == id
	})
}

// call sends a request and waits for its response. Events arriving in
// between are discarded; use send, waitEvent and response to observe them.
func call(t *testing.T, conn *websocket.Conn, id, method string, params any) Frame {
	t.Helper()
	send(t, conn, id, method, params)
	return response(t, conn, id)
}

func waitEvent(t *testing.T, conn *websocket.Conn, event string) Frame {
	t.Helper()
	return readUntil(t, conn, func(f Frame) bool {
		return f.Type == FrameTypeEvent && f.Event == event
	})
}

func requireOK(t *testing.T, f Frame, target any) {
	t.Helper()
	require.NotNil(t, f.OK)
	require.True(t, *f.OK, "error: %+v", f.Error)
	if target != nil {
		require.NoError(t, json.Unmarshal(f.Payload, target))
	}
}

func requireErrCode(t *testing.T, f Frame, code string) {
	t.Helper()
	require.NotNil(t, f.OK)
	require.False(t, *f.OK)
	require.NotNil(t, f.Error)
	assert.Equal(t, code, f.Error.Code, f.Error.Message)
}

// --- HTTP ---

func TestHealthEndpoint(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Empty(t, health.Version)
}

func TestNotFoundEndpoint(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.ts.URL + "/nonexistent")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	h.srv.ClipboardChanged("hello")

	resp, err := http.Get(h.ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "sidekick_clipboard_updates_total 1")
}

// --- Handshake ---

func TestWebSocketHandshakeSuccess(t *testing.T) {
	h := newHarness(t)
	_, resp := connect(t, h.ts, testToken)

	requireOK(t, resp, nil)
	var hello HelloOK
	require.NoError(t, json.Unmarshal(resp.Payload, &hello))
	assert.Equal(t, ProtocolVersion, hello.Protocol)
	assert.NotEmpty(t, hello.Server.ConnID)
	assert.Contains(t, hello.Features.Methods, "text.transform")
	assert.Contains(t, hello.Features.Events, EventClipboardUpdate)
	assert.Equal(t, maxPayload, hello.Policy.MaxPayload)
}

func TestWebSocketHandshakeWrongToken(t *testing.T) {
	h := newHarness(t)
	_, resp := connect(t, h.ts, "wrong")

	requireErrCode(t, resp, "unauthorized")
	assert.Equal(t, 0, h.srv.clients.Count())
}

func TestWebSocketRateLimitedAfterFailures(t *testing.T) {
	h := newHarness(t)
	h.srv.limiter.max = 1

	_, resp := connect(t, h.ts, "wrong")
	requireErrCode(t, resp, "unauthorized")
	require.Eventually(t, func() bool { return !h.srv.limiter.Allow("127.0.0.1:1") },
		2*time.Second, 10*time.Millisecond)

	_, httpResp, err := websocket.DefaultDialer.Dial(wsURL(h.ts), nil)
	require.Error(t, err)
	require.NotNil(t, httpResp)
	assert.Equal(t, http.StatusTooManyRequests, httpResp.StatusCode)
}

func TestWebSocketHandshakeRequiresConnect(t *testing.T) {
	h := newHarness(t)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(h.ts), nil)
	require.NoError(t, err)
	defer conn.Close()

	var challenge Frame
	require.NoError(t, conn.ReadJSON(&challenge))

	req, _ := NewRequest("r1", "health", nil)
	require.NoError(t, conn.WriteJSON(req))

	var resp Frame
	require.NoError(t, conn.ReadJSON(&resp))
	requireErrCode(t, resp, "protocol_error")
}

// --- RPC ---

func TestRPCHealth(t *testing.T) {
	h := newHarness(t)
	conn := authenticatedConn(t, h.ts)

	var health HealthResponse
	requireOK(t, call(t, conn, "r1", "health", nil), &health)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.Clients)
}

func TestRPCUnknownMethod(t *testing.T) {
	h := newHarness(t)
	conn := authenticatedConn(t, h.ts)
	requireErrCode(t, call(t, conn, "r1", "chat.send", nil), "method_not_found")
}

func TestRPCWithoutService(t *testing.T) {
	cfg := config.Defaults()
	cfg.Gateway.Auth.Token = testToken
	srv := New(cfg, logging.New(nil, "silent"))
	mux := http.NewServeMux()
	srv.registerHTTPRoutes(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	conn := authenticatedConn(t, ts)
	requireErrCode(t, call(t, conn, "r1", "config.get", nil), "unavailable")
}

func TestRPCTextTransform(t *testing.T) {
	h := newHarness(t)
	h.mock.CompleteFunc = func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{Content: "Here is the summary:\n" + strings.ToUpper(req.Input)}, nil
	}
	conn := authenticatedConn(t, h.ts)

	var out struct {
		Output   string `json:"output"`
		Provider string `json:"provider"`
	}
	requireOK(t, call(t, conn, "r1", "text.transform", TransformParams{Operation: "summarize", Input: "abc"}), &out)
	assert.Equal(t, "ABC", out.Output)
	assert.Equal(t, "ollama", out.Provider)
}

func TestRPCTextTransformErrors(t *testing.T) {
	h := newHarness(t)
	conn := authenticatedConn(t, h.ts)

	requireErrCode(t, call(t, conn, "r1", "text.transform", TransformParams{Input: "abc"}), "invalid_params")

	h.mock.CompleteFunc = func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, &llm.ProviderError{Provider: "ollama", Kind: llm.KindFormat, Message: "invalid response format"}
	}
	requireErrCode(t, call(t, conn, "r2", "text.transform", TransformParams{Operation: "expand", Input: "x"}), "format_error")

	cfg := config.Defaults()
	cfg.Provider = config.ProviderDeepSeek
	require.NoError(t, h.cfg.Save(cfg))
	f := call(t, conn, "r3", "text.transform", TransformParams{Operation: "expand", Input: "x"})
	requireErrCode(t, f, "unsupported")
	assert.Contains(t, f.Error.Message, "deepseek support is not available yet")
}

func TestRPCRequestsRunConcurrently(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	h.mock.CompleteFunc = func(ctx context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return &llm.CompletionResponse{Content: "slow"}, nil
	}
	conn := authenticatedConn(t, h.ts)

	slow, err := NewRequest("slow", "text.transform", TransformParams{Operation: "expand", Input: "x"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(slow))

	// health answers while the transform is still blocked
	requireOK(t, call(t, conn, "fast", "health", nil), nil)

	close(release)
	resp := readUntil(t, conn, func(f Frame) bool { return f.ID == "slow" })
	requireOK(t, resp, nil)
}

func TestRPCConfigGet(t *testing.T) {
	h := newHarness(t)
	cfg := config.Defaults()
	cfg.Gateway.Auth.Token = "stored-secret"
	require.NoError(t, config.Save(h.cfg.Path(), cfg))
	conn := authenticatedConn(t, h.ts)

	var full config.Config
	requireOK(t, call(t, conn, "r1", "config.get", nil), &full)
	assert.Equal(t, config.ProviderOllama, full.Provider)
	assert.Empty(t, full.Gateway.Auth.Token)

	var kv struct {
		Key   string `json:"key"`
		Value any    `json:"value"`
	}
	requireOK(t, call(t, conn, "r2", "config.get", ConfigGetParams{Key: "ollama.model"}), &kv)
	assert.Equal(t, config.DefaultOllamaModel, kv.Value)

	requireErrCode(t, call(t, conn, "r3", "config.get", ConfigGetParams{Key: "nope.missing"}), "not_found")
	requireErrCode(t, call(t, conn, "r4", "config.get", ConfigGetParams{Key: "a..b"}), "invalid_params")
}

func TestRPCConfigSave(t *testing.T) {
	h := newHarness(t)
	stored := config.Defaults()
	stored.Gateway.Auth.Token = "stored-secret"
	require.NoError(t, config.Save(h.cfg.Path(), stored))
	conn := authenticatedConn(t, h.ts)

	var cfg config.Config
	requireOK(t, call(t, conn, "r1", "config.get", nil), &cfg)
	cfg.Theme = "light"
	cfg.SearchRoots = []string{"/tmp"}

	send(t, conn, "r2", "config.save", cfg)
	waitEvent(t, conn, EventSettingsChanged)
	requireOK(t, response(t, conn, "r2"), nil)

	saved := h.cfg.Load()
	assert.Equal(t, "light", saved.Theme)
	assert.Equal(t, []string{"/tmp"}, saved.SearchRoots)
	assert.Equal(t, "stored-secret", saved.Gateway.Auth.Token)

	cfg.Theme = "neon"
	requireErrCode(t, call(t, conn, "r3", "config.save", cfg), "config_error")
}

func TestRPCConfigSaveKeepsSecretReferences(t *testing.T) {
	t.Setenv("MY_OPENAI_KEY", "sk-secret")
	h := newHarness(t)
	require.NoError(t, os.WriteFile(h.cfg.Path(),
		[]byte("openaiApiKey: ${MY_OPENAI_KEY}\ngateway:\n  auth:\n    token: ${MY_OPENAI_KEY}\n"), 0o600))
	conn := authenticatedConn(t, h.ts)

	var cfg config.Config
	requireOK(t, call(t, conn, "r1", "config.get", nil), &cfg)
	assert.Empty(t, cfg.OpenAIAPIKey)
	cfg.Theme = "light"

	send(t, conn, "r2", "config.save", cfg)
	waitEvent(t, conn, EventSettingsChanged)
	requireOK(t, response(t, conn, "r2"), nil)

	data, err := os.ReadFile(h.cfg.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-secret")
	assert.Contains(t, string(data), "${MY_OPENAI_KEY}")
	assert.Equal(t, "sk-secret", h.cfg.Load().OpenAIAPIKey)
	assert.Equal(t, "light", h.cfg.Load().Theme)
}

func TestRPCIntent(t *testing.T) {
	h := newHarness(t)
	conn := authenticatedConn(t, h.ts)

	var plan intent.Plan
	requireOK(t, call(t, conn, "r1", "intent.classify", ClassifyParams{Input: "open my folder"}), &plan)
	assert.Equal(t, intent.ActionOpenFolder, plan.Action.Type)
	assert.Equal(t, "Downloads", plan.Action.Target)

	search := intent.Classify("golang")
	var res agent.Result
	requireOK(t, call(t, conn, "r2", "intent.execute", search), &res)
	assert.Equal(t, agent.StatusOpened, res.Status)

	cfg := config.Defaults()
	cfg.Permissions.WebSearch = false
	require.NoError(t, h.cfg.Save(cfg))
	requireErrCode(t, call(t, conn, "r3", "intent.execute", search), "permission_denied")

	requireErrCode(t, call(t, conn, "r4", "intent.execute", map[string]any{"id": "x"}), "invalid_params")
	requireErrCode(t, call(t, conn, "r5", "intent.execute",
		json.RawMessage(`{"action":{"type":"launch_rocket","target":"x"}}`)), "invalid_params")
}

func TestRPCModelsList(t *testing.T) {
	ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		fmt.Fprint(w, `{"models":[{"name":"llama3.1:latest"},{"name":"mistral:7b"}]}`)
	}))
	defer ollama.Close()

	h := newHarness(t)
	cfg := config.Defaults()
	cfg.Ollama.BaseURL = ollama.URL
	require.NoError(t, h.cfg.Save(cfg))
	conn := authenticatedConn(t, h.ts)

	var out struct {
		Models []string `json:"models"`
	}
	requireOK(t, call(t, conn, "r1", "models.list", nil), &out)
	assert.Equal(t, []string{"llama3.1:latest", "mistral:7b"}, out.Models)

	ollama.Close()
	requireErrCode(t, call(t, conn, "r2", "models.list", nil), "transport_error")
}

func TestRPCStatsDisabled(t *testing.T) {
	h := newHarness(t)
	conn := authenticatedConn(t, h.ts)
	requireErrCode(t, call(t, conn, "r1", "stats.summary", nil), "unavailable")
}

func TestRPCWindowCommands(t *testing.T) {
	h := newHarness(t)
	conn := authenticatedConn(t, h.ts)

	send(t, conn, "r1", "window.mode", WindowModeParams{Mini: true})
	resize := waitEvent(t, conn, window.EventResize)
	assert.JSONEq(t, `{"width":600,"height":70}`, string(resize.Payload))
	requireOK(t, response(t, conn, "r1"), nil)

	requireOK(t, call(t, conn, "r2", "window.state", WindowStateParams{Visible: true}), nil)

	var toggled struct {
		Visible bool `json:"visible"`
	}
	send(t, conn, "r3", "window.toggle", nil)
	waitEvent(t, conn, window.EventHide)
	requireOK(t, response(t, conn, "r3"), &toggled)
	assert.False(t, toggled.Visible)
}

func TestClipboardChangedBroadcasts(t *testing.T) {
	h := newHarness(t)
	conn := authenticatedConn(t, h.ts)
	// The registry is updated before the read loop starts; a round trip
	// guarantees the client is registered.
	requireOK(t, call(t, conn, "r1", "health", nil), nil)

	h.srv.ClipboardChanged("copied text")

	ev := waitEvent(t, conn, EventClipboardUpdate)
	assert.JSONEq(t, `{"text":"copied text"}`, string(ev.Payload))
	assert.Positive(t, ev.Seq)
}

func TestEmitWithoutClients(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, 0, h.srv.Emit(EventClipboardUpdate, nil))
	assert.ErrorIs(t, h.svc.SetWindowMode(false), window.ErrNoShell)
}

// --- Lifecycle ---

func TestServerStart(t *testing.T) {
	cfg := config.Defaults()
	cfg.Gateway.Port = 0
	cfg.Gateway.Bind = "loopback"
	cfg.Gateway.Auth.Token = testToken

	srv := New(cfg, logging.New(nil, "silent"))
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		t.Fatalf("start failed: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server not ready")
	}
	require.NotEmpty(t, srv.Addr())

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServerStartTokenFile(t *testing.T) {
	t.Setenv("SIDEKICK_GATEWAY_TOKEN", "")
	path := filepath.Join(t.TempDir(), "gateway.token")
	require.NoError(t, os.WriteFile(path, []byte("from-file"), 0o600))

	srv := New(config.Defaults(), logging.New(nil, "silent"), WithTokenFile(path))
	assert.Equal(t, "from-file", srv.creds.Token)
}
