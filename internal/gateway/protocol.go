package gateway

import (
	"encoding/json"

	"github.com/soyeahso/sidekick/internal/config"
)

// ProtocolVersion is the wire protocol spoken by this server. A shell
// advertising a lower MaxProtocol is refused.
const ProtocolVersion = 1

// Frame types for the WebSocket protocol.
const (
	FrameTypeRequest  = "req"
	FrameTypeResponse = "res"
	FrameTypeEvent    = "event"
)

// RPC methods served to shells.
const (
	MethodConnect          = "connect"
	MethodHealth           = "health"
	MethodConfigGet        = "config.get"
	MethodConfigSave       = "config.save"
	MethodSelectionCapture = "selection.capture"
	MethodTextApply        = "text.apply"
	MethodTextTransform    = "text.transform"
	MethodIntentClassify   = "intent.classify"
	MethodIntentExecute    = "intent.execute"
	MethodModelsList       = "models.list"
	MethodStatsSummary     = "stats.summary"
	MethodWindowMode       = "window.mode"
	MethodWindowToggle     = "window.toggle"
	MethodWindowState      = "window.state"
)

// Events pushed to connected shells. Window events are defined by the
// window package.
const (
	EventConnectChallenge = "connect.challenge"
	EventClipboardUpdate  = "clipboard-update"
	EventSettingsChanged  = "settings-changed"
)

// Frame is the envelope of every WebSocket message; Type selects which of
// the other fields are meaningful.
type Frame struct {
	Type string `json:"type"`

	// req
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`

	// res
	OK      *bool           `json:"ok,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *ErrorShape     `json:"error,omitempty"`

	// event
	Event string `json:"event,omitempty"`
	Seq   int64  `json:"seq,omitempty"`
}

// ErrorShape is the body of a failed response. Code is one of the values
// returned by ErrorCode or a request validation code such as
// "invalid_params".
type ErrorShape struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// ConnectParams are sent by the shell in its first request.
type ConnectParams struct {
	MinProtocol int          `json:"minProtocol"`
	MaxProtocol int          `json:"maxProtocol"`
	Client      ClientInfo   `json:"client"`
	Auth        *ConnectAuth `json:"auth,omitempty"`
}

// ClientInfo identifies the connecting shell.
type ClientInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version"`
	Platform    string `json:"platform"`
	Mode        string `json:"mode"` // "shell" | "cli"
}

// ConnectAuth carries credentials in the connect request.
type ConnectAuth struct {
	Token    string `json:"token,omitempty"`
	Password string `json:"password,omitempty"`
}

// HelloOK answers a successful connect.
type HelloOK struct {
	Protocol int          `json:"protocol"`
	Server   ServerInfo   `json:"server"`
	Features Features     `json:"features"`
	Policy   ServerPolicy `json:"policy"`
}

// ServerInfo identifies the daemon and the connection.
type ServerInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	ConnID  string `json:"connId"`
}

// Features lists the methods and events the shell may use.
type Features struct {
	Methods []string `json:"methods"`
	Events  []string `json:"events"`
}

// ServerPolicy communicates protocol limits to the shell.
type ServerPolicy struct {
	MaxPayload     int `json:"maxPayload"`
	TickIntervalMs int `json:"tickIntervalMs"`
}

// ClipboardUpdate is the payload of a clipboard-update event.
type ClipboardUpdate struct {
	Text string `json:"text"`
}

// SettingsChanged is the payload of a settings-changed event.
type SettingsChanged struct {
	Provider config.ProviderID `json:"provider"`
}

// ConfigGetParams selects one dotted key; empty returns all settings.
type ConfigGetParams struct {
	Key string `json:"key,omitempty"`
}

// ConfigValue answers config.get for a single key.
type ConfigValue struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// CaptureResult answers selection.capture. Text is empty when nothing
// could be copied.
type CaptureResult struct {
	Text string `json:"text"`
}

// ApplyParams asks the daemon to put Text on the clipboard and, in
// "replace" mode, paste it into the previously focused application.
type ApplyParams struct {
	Text string `json:"text,omitempty"`
	Mode string `json:"mode"`
}

// TransformParams runs Operation over Input.
type TransformParams struct {
	Operation string `json:"operation"`
	Input     string `json:"input"`
}

// TransformResult answers text.transform.
type TransformResult struct {
	Output     string `json:"output"`
	Operation  string `json:"operation"`
	Provider   string `json:"provider"`
	Model      string `json:"model,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// ClassifyParams carries free text for intent.classify.
type ClassifyParams struct {
	Input string `json:"input"`
}

// StatsParams selects the stats.summary window in days.
type StatsParams struct {
	Days int `json:"days,omitempty"`
}

// WindowModeParams switches between the compact and normal layouts.
type WindowModeParams struct {
	Mini bool `json:"mini"`
}

// WindowStateParams reports the shell's real window visibility.
type WindowStateParams struct {
	Visible bool `json:"visible"`
}

func newFrame(frameType string, payload any) (Frame, error) {
	f := Frame{Type: frameType}
	if payload == nil {
		return f, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	if frameType == FrameTypeRequest {
		f.Params = raw
	} else {
		f.Payload = raw
	}
	return f, nil
}

// NewRequest creates a request frame.
func NewRequest(id, method string, params any) (Frame, error) {
	f, err := newFrame(FrameTypeRequest, params)
	f.ID, f.Method = id, method
	return f, err
}

// NewResponse creates a success response frame.
func NewResponse(id string, payload any) (Frame, error) {
	f, err := newFrame(FrameTypeResponse, payload)
	ok := true
	f.ID, f.OK = id, &ok
	return f, err
}

// NewErrorResponse creates an error response frame.
func NewErrorResponse(id string, errShape ErrorShape) Frame {
	ok := false
	return Frame{Type: FrameTypeResponse, ID: id, OK: &ok, Error: &errShape}
}

// NewEvent creates an event frame with sequence number seq.
func NewEvent(event string, payload any, seq int64) (Frame, error) {
	f, err := newFrame(FrameTypeEvent, payload)
	f.Event, f.Seq = event, seq
	return f, err
}
