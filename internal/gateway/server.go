package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soyeahso/sidekick/internal/assistant"
	"github.com/soyeahso/sidekick/internal/config"
	"github.com/soyeahso/sidekick/internal/hooks"
	"github.com/soyeahso/sidekick/internal/logging"
	"github.com/soyeahso/sidekick/internal/metrics"
	"github.com/soyeahso/sidekick/internal/version"
	"github.com/soyeahso/sidekick/internal/window"
)

var (
	ErrClientClosed = errors.New("client connection closed")
	ErrNoService    = errors.New("no command service attached")
)

const maxPayload = 4 * 1024 * 1024

// Server is the Sidekick gateway HTTP + WebSocket server. The desktop
// shell connects to it to invoke commands and receive events.
type Server struct {
	cfg       config.Config
	creds     Credentials
	tokenFile string
	log       *logging.Logger
	clients   *ClientRegistry
	handlers  map[string]RequestHandler
	version   string
	eventSeq  atomic.Int64

	svc     *assistant.Service
	hooks   *hooks.Manager
	metrics *metrics.Metrics

	mu         sync.RWMutex
	addr       string
	ready      chan struct{}
	startedAt  time.Time
	httpServer *http.Server
	upgrader   websocket.Upgrader
	limiter    *authLimiter
}

// ServerOption configures the gateway server.
type ServerOption func(*Server)

// WithService attaches the command service backing the RPC methods.
func WithService(svc *assistant.Service) ServerOption {
	return func(s *Server) {
		s.svc = svc
		if s.hooks == nil {
			s.hooks = svc.Hooks()
		}
	}
}

// WithHooks sets the hook manager for lifecycle events.
func WithHooks(hm *hooks.Manager) ServerOption {
	return func(s *Server) {
		s.hooks = hm
	}
}

// WithMetrics exposes m on /metrics and records RPC and client metrics.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithTokenFile names the file holding the gateway token, used when neither
// the config nor the environment provides one.
func WithTokenFile(path string) ServerOption {
	return func(s *Server) {
		s.tokenFile = path
	}
}

// New creates a new gateway server.
func New(cfg config.Config, log *logging.Logger, opts ...ServerOption) *Server {
	s := &Server{
		cfg:      cfg,
		log:      log.Sub("gateway"),
		clients:  NewClientRegistry(log.Sub("clients")),
		handlers: make(map[string]RequestHandler),
		version:  version.Current().Version,
		ready:    make(chan struct{}),
		limiter:  newAuthLimiter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkWebSocketOrigin(cfg.Gateway.AllowedOrigins),
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	s.creds = LoadCredentials(cfg.Gateway.Auth, s.tokenFile)
	s.registerRPCHandlers()
	return s
}

// checkWebSocketOrigin accepts requests without an Origin header (native
// shells) and browser origins listed in allowed.
func checkWebSocketOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || isOriginAllowed(origin, allowed)
	}
}

// Handle registers an RPC method handler.
func (s *Server) Handle(method string, handler RequestHandler) {
	s.handlers[method] = handler
}

// Methods returns the list of registered RPC method names.
func (s *Server) Methods() []string {
	methods := make([]string, 0, len(s.handlers))
	for m := range s.handlers {
		methods = append(methods, m)
	}
	return methods
}

// Events lists the events a shell may receive.
func Events() []string {
	return []string{
		EventClipboardUpdate,
		EventSettingsChanged,
		window.EventHide,
		window.EventShow,
		window.EventFocus,
		window.EventResize,
		window.EventResizable,
		window.EventConstraints,
	}
}

// Emit broadcasts an event to every connected shell and returns how many
// received it.
func (s *Server) Emit(event string, payload any) int {
	return s.clients.Broadcast(event, payload, s.eventSeq.Add(1))
}

// ClipboardChanged pushes a clipboard-update event carrying text.
func (s *Server) ClipboardChanged(text string) {
	n := s.Emit(EventClipboardUpdate, ClipboardUpdate{Text: text})
	s.metrics.ClipboardUpdate()
	if s.hooks != nil {
		s.hooks.Emit(context.Background(), hooks.EventClipboardUpdate, map[string]any{
			"chars":      len(text),
			"recipients": n,
		})
	}
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.GatewayConfig) string {
	switch cfg.Bind {
	case "loopback":
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	case "lan":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return net.JoinHostPort(host, fmt.Sprint(cfg.Port))
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Start begins listening for HTTP and WebSocket connections.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg.Gateway)

	mux := http.NewServeMux()
	s.registerHTTPRoutes(mux)

	handler := withMiddleware(mux, s.log, s.cfg.Gateway.AllowedOrigins, s.metrics)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if s.cfg.Gateway.Bind != "" && s.cfg.Gateway.Bind != "loopback" {
		s.log.Warn().Msg("gateway is reachable beyond loopback; credentials are sent in cleartext")
	}
	if !s.creds.Configured() {
		s.log.Warn().Str("mode", s.creds.Mode).Msg("no gateway secret configured; all connections will be rejected")
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.startedAt = time.Now()
	s.mu.Unlock()
	close(s.ready)

	go s.limiter.run(ctx)

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Gateway.Bind).
		Str("auth", s.creds.Mode).
		Int("methods", len(s.handlers)).
		Msg("gateway server ready")

	if s.hooks != nil {
		s.hooks.Emit(ctx, hooks.EventGatewayStart, map[string]any{
			"addr": ln.Addr().String(),
		})
	}

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway server")
		if s.hooks != nil {
			s.hooks.Emit(context.Background(), hooks.EventGatewayStop, nil)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.clients.CloseAll()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Ready is closed once the server is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the address the server listens on, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Uptime reports how long the server has been listening.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}

// handleWebSocket upgrades HTTP to WebSocket and runs the connection loop.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(r.RemoteAddr) {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("rate limited after failed auth attempts")
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxPayload)

	s.log.Debug().Str("remote", r.RemoteAddr).Msg("new websocket connection")

	client, err := s.handshake(conn)
	if err != nil {
		s.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("handshake failed")
		s.limiter.Fail(r.RemoteAddr)
		conn.Close()
		return
	}
	s.limiter.Reset(r.RemoteAddr)

	s.clients.Add(client)
	if s.metrics != nil {
		s.metrics.ActiveClients.Inc()
	}
	defer func() {
		s.clients.Remove(client.ConnID)
		client.Close()
		if s.metrics != nil {
			s.metrics.ActiveClients.Dec()
		}
	}()

	s.readLoop(r.Context(), client)
}

// readLoop processes incoming frames from an authenticated client. Each
// request runs on its own goroutine so a slow transform does not hold up
// other requests or event delivery; the loop waits for them before
// returning.
func (s *Server) readLoop(ctx context.Context, client *Client) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		frame, err := client.ReadFrame()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Str("connId", client.ConnID).Msg("client closed connection")
			} else {
				s.log.Debug().Err(err).Str("connId", client.ConnID).Msg("read error")
			}
			return
		}

		if frame.Type != FrameTypeRequest {
			s.log.Debug().Str("type", frame.Type).Msg("ignoring non-request frame")
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.dispatch(ctx, client, frame)
		}()
	}
}

// dispatch routes a request frame to the appropriate handler.
func (s *Server) dispatch(ctx context.Context, client *Client, frame Frame) {
	handler, ok := s.handlers[frame.Method]
	if !ok {
		client.RespondError(frame.ID, ErrorShape{
			Code:    "method_not_found",
			Message: "unknown method: " + frame.Method,
		})
		s.metrics.ObserveRPC("unknown", "method_not_found")
		return
	}

	rc := &RequestContext{
		Client: client,
		Frame:  frame,
		Server: s,
		ctx:    ctx,
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("method", frame.Method).Msg("rpc handler panic")
			rc.RespondError("internal_error", "internal error")
		}
		s.metrics.ObserveRPC(frame.Method, rc.status)
	}()

	handler(rc)
}
