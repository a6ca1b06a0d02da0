package gateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/sidekick/internal/config"
	"github.com/soyeahso/sidekick/internal/logging"
)

func testLog() *logging.Logger {
	return logging.New(nil, "silent")
}

// wsPair returns a server-side Client and the peer connection reading from it.
func wsPair(t *testing.T) (*Client, *websocket.Conn) {
	t.Helper()
	serverSide := make(chan *websocket.Conn, 1)
	up := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverSide <- conn
	}))
	t.Cleanup(ts.Close)

	peer, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { peer.Close() })

	c := NewClient(<-serverSide, ClientInfo{ID: "shell", Mode: "shell"}, AuthResult{OK: true, Method: "token"})
	t.Cleanup(func() { c.Close() })
	return c, peer
}

func readEvent(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestClientRegistryAddRemove(t *testing.T) {
	reg := NewClientRegistry(testLog())
	assert.Equal(t, 0, reg.Count())

	reg.Add(&Client{ConnID: "b"})
	reg.Add(&Client{ConnID: "a"})
	assert.Equal(t, 2, reg.Count())
	assert.Equal(t, []string{"a", "b"}, reg.IDs())

	reg.Remove("a")
	reg.Remove("nonexistent")
	assert.Equal(t, []string{"b"}, reg.IDs())
}

func TestClientRegistryCloseAll(t *testing.T) {
	reg := NewClientRegistry(testLog())
	a := &Client{ConnID: "conn-1"}
	b := &Client{ConnID: "conn-2", closed: true}
	reg.Add(a)
	reg.Add(b)

	reg.CloseAll()
	assert.Equal(t, 0, reg.Count())
	assert.ErrorIs(t, a.Send(Frame{}), ErrClientClosed)
}

func TestBroadcastNoClients(t *testing.T) {
	reg := NewClientRegistry(testLog())
	assert.Equal(t, 0, reg.Broadcast(EventClipboardUpdate, ClipboardUpdate{Text: "x"}, 1))
}

func TestBroadcastSkipsClosed(t *testing.T) {
	reg := NewClientRegistry(testLog())
	reg.Add(&Client{ConnID: "conn-1", closed: true})
	assert.Equal(t, 0, reg.Broadcast(EventClipboardUpdate, nil, 1))
}

func TestBroadcastUnencodablePayload(t *testing.T) {
	reg := NewClientRegistry(testLog())
	reg.Add(&Client{ConnID: "conn-1", closed: true})
	assert.Equal(t, 0, reg.Broadcast(EventClipboardUpdate, make(chan int), 1))
}

func TestBroadcastDeliversToEveryClient(t *testing.T) {
	reg := NewClientRegistry(testLog())
	c1, peer1 := wsPair(t)
	c2, peer2 := wsPair(t)
	reg.Add(c1)
	reg.Add(c2)
	reg.Add(&Client{ConnID: "gone", closed: true})

	n := reg.Broadcast(EventClipboardUpdate, ClipboardUpdate{Text: "copied"}, 9)
	assert.Equal(t, 2, n)

	for _, peer := range []*websocket.Conn{peer1, peer2} {
		f := readEvent(t, peer)
		assert.Equal(t, FrameTypeEvent, f.Type)
		assert.Equal(t, EventClipboardUpdate, f.Event)
		assert.Equal(t, int64(9), f.Seq)
		assert.JSONEq(t, `{"text":"copied"}`, string(f.Payload))
	}
}

func TestClientRespond(t *testing.T) {
	c, peer := wsPair(t)
	assert.NotEmpty(t, c.ConnID)
	assert.True(t, c.AuthResult.OK)

	require.NoError(t, c.Respond("r1", CaptureResult{Text: "sel"}))
	f := readEvent(t, peer)
	assert.Equal(t, "r1", f.ID)
	require.NotNil(t, f.OK)
	assert.True(t, *f.OK)

	require.NoError(t, c.RespondError("r2", ErrorShape{Code: "unavailable", Message: "no shell"}))
	f = readEvent(t, peer)
	require.NotNil(t, f.Error)
	assert.Equal(t, "unavailable", f.Error.Code)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Respond("r3", nil), ErrClientClosed)
}

func TestResolveBindAddr(t *testing.T) {
	tests := []struct {
		name string
		bind string
		port int
		host string
		want string
	}{
		{"loopback", "loopback", 18790, "", "127.0.0.1:18790"},
		{"lan", "lan", 9999, "", "0.0.0.0:9999"},
		{"custom_ipv6", "custom", 3000, "::1", "[::1]:3000"},
		{"custom_default", "custom", 3000, "", "0.0.0.0:3000"},
		{"custom_host", "custom", 3000, "10.0.0.1", "10.0.0.1:3000"},
		{"unknown_fallback", "whatever", 5000, "", "127.0.0.1:5000"},
		{"empty_fallback", "", 5000, "", "127.0.0.1:5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.GatewayConfig{Bind: tt.bind, Port: tt.port, CustomBindHost: tt.host}
			assert.Equal(t, tt.want, resolveBindAddr(cfg))
		})
	}
}
