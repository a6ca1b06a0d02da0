package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/soyeahso/sidekick/internal/version"
)

const (
	handshakeTimeout = 10 * time.Second
	tickInterval     = 30 * time.Second
)

// rejection is a handshake failure the shell is told about before the
// socket closes.
type rejection struct {
	code   string
	reason string
}

func (r *rejection) Error() string { return r.code + ": " + r.reason }

// handshake runs challenge, connect, hello-ok. On failure the shell has
// already received an error frame and a close message.
func (s *Server) handshake(conn *websocket.Conn) (*Client, error) {
	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))

	challenge, err := NewEvent(EventConnectChallenge, map[string]any{
		"nonce": uuid.NewString(),
		"ts":    time.Now().UnixMilli(),
	}, 0)
	if err != nil {
		return nil, fmt.Errorf("creating challenge: %w", err)
	}
	if err := conn.WriteJSON(challenge); err != nil {
		return nil, fmt.Errorf("sending challenge: %w", err)
	}

	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("reading connect: %w", err)
	}

	var frame Frame
	if err := json.Unmarshal(msg, &frame); err != nil {
		return nil, fmt.Errorf("parsing connect frame: %w", err)
	}

	params, rej := s.checkConnect(frame)
	if rej != nil {
		sendErrorAndClose(conn, frame.ID, rej.code, rej.reason)
		return nil, rej
	}

	conn.SetReadDeadline(time.Time{})
	client := NewClient(conn, params.Client, AuthResult{OK: true, Method: s.creds.Mode})

	resp, err := NewResponse(frame.ID, s.hello(client.ConnID))
	if err != nil {
		return nil, fmt.Errorf("creating hello response: %w", err)
	}
	if err := conn.WriteJSON(resp); err != nil {
		return nil, fmt.Errorf("sending hello: %w", err)
	}

	s.log.Info().
		Str("connId", client.ConnID).
		Str("clientId", params.Client.ID).
		Str("clientVersion", params.Client.Version).
		Str("authMethod", client.AuthResult.Method).
		Msg("client authenticated")

	return client, nil
}

// checkConnect validates the connect request: its shape, protocol version
// and credentials.
func (s *Server) checkConnect(frame Frame) (ConnectParams, *rejection) {
	var params ConnectParams
	if frame.Type != FrameTypeRequest || frame.Method != MethodConnect {
		return params, &rejection{"protocol_error", "expected connect request"}
	}
	if err := json.Unmarshal(frame.Params, &params); err != nil {
		return params, &rejection{"invalid_params", "invalid connect params"}
	}
	if params.MaxProtocol != 0 && params.MaxProtocol < ProtocolVersion {
		return params, &rejection{"protocol_error", "unsupported protocol version"}
	}
	if res := s.creds.Verify(params.Auth); !res.OK {
		return params, &rejection{"unauthorized", res.Reason}
	}
	return params, nil
}

func (s *Server) hello(connID string) HelloOK {
	build := version.Current()
	return HelloOK{
		Protocol: ProtocolVersion,
		Server: ServerInfo{
			Version: build.Version,
			Commit:  build.ShortCommit(),
			ConnID:  connID,
		},
		Features: Features{
			Methods: s.Methods(),
			Events:  Events(),
		},
		Policy: ServerPolicy{
			MaxPayload:     maxPayload,
			TickIntervalMs: int(tickInterval.Milliseconds()),
		},
	}
}

func sendErrorAndClose(conn *websocket.Conn, reqID, code, message string) {
	conn.WriteJSON(NewErrorResponse(reqID, ErrorShape{Code: code, Message: message}))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message))
}
