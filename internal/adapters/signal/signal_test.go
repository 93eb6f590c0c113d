package signal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/voicesignal/internal/app"
	"github.com/dkeye/voicesignal/internal/app/orch"
	"github.com/dkeye/voicesignal/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

const testSDP = "v=0\r\no=- 4215775240449105457 2 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\n"

type testServer struct {
	url      string
	registry *app.Registry
	hub      *core.GroupHub
}

func newTestServer(t *testing.T, limiter *RoomRateLimiter, opts Options) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	registry := app.NewRegistry()
	hub := core.NewGroupHub()
	o := &orch.Orchestrator{Registry: registry, Groups: hub, Policy: app.SimplePolicy{}}
	ctl := NewSignalWSController(o, hub, limiter, opts)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		c.Set("client_token", "test")
		ctl.HandleSignal(ctx, c)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testServer{
		url:      "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		registry: registry,
		hub:      hub,
	}
}

func defaultOptions() Options {
	return Options{
		ReadLimit:  1 << 15,
		PingPeriod: time.Second,
		PongWait:   5 * time.Second,
		WriteWait:  time.Second,
		SendBuffer: 16,
	}
}

func dial(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, msg string) {
	t.Helper()
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(msg)))
}

func recv(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	var m map[string]any
	require.NoError(t, ws.ReadJSON(&m))
	return m
}

func TestSignal_JoinAckAndBroadcast(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t, nil, defaultOptions())
	alice := dial(t, ts.url, nil)
	bob := dial(t, ts.url, nil)

	// Given alice is in room X
	send(t, alice, `{"type":"join","ackId":1,"roomId":"x","userId":"u1","displayName":"Alice","signalAddress":"p1"}`)
	ack := recv(t, alice)
	req.Equal("ack", ack["type"])
	req.Equal(float64(1), ack["ackId"])
	req.Equal(true, ack["ok"])
	req.Len(ack["peers"], 1)

	// When bob joins with a string ack id
	send(t, bob, `{"type":"join","ackId":"j-1","roomId":"X","userId":"u2","signalAddress":"p2"}`)

	// Then bob sees both members and alice is told about bob
	ack = recv(t, bob)
	req.Equal("j-1", ack["ackId"])
	req.Equal([]any{
		map[string]any{"userId": "u1", "displayName": "Alice", "signalAddress": "p1"},
		map[string]any{"userId": "u2", "displayName": "Guest", "signalAddress": "p2"},
	}, ack["peers"])

	joined := recv(t, alice)
	req.Equal(map[string]any{
		"type":          "user-joined",
		"userId":        "u2",
		"displayName":   "Guest",
		"signalAddress": "p2",
	}, joined)
}

func TestSignal_InvalidJoinAck(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t, nil, defaultOptions())
	ws := dial(t, ts.url, nil)

	send(t, ws, `{"type":"join","ackId":7,"roomId":"X","userId":42,"signalAddress":"p1"}`)

	ack := recv(t, ws)
	req.Equal(false, ack["ok"])
	req.Equal(orch.ErrCodeBadRequest, ack["error"])
	req.NotContains(ack, "peers")
	req.Equal(0, ts.registry.RoomCount())
}

func TestSignal_JoinWithoutAckIDStillJoins(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t, nil, defaultOptions())
	ws := dial(t, ts.url, nil)

	send(t, ws, `{"type":"join","ackId":null,"roomId":"X","userId":"u1","signalAddress":"p1"}`)
	send(t, ws, `{"type":"ping"}`)

	// The first reply is the pong: no ack was sent for the join
	req.Equal("pong", recv(t, ws)["type"])
	req.Len(ts.registry.Snapshot("X"), 1)
}

func TestSignal_DisconnectBroadcastsUserLeft(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t, nil, defaultOptions())
	alice := dial(t, ts.url, nil)
	bob := dial(t, ts.url, nil)

	send(t, alice, `{"type":"join","ackId":1,"roomId":"X","userId":"u1","signalAddress":"p1"}`)
	recv(t, alice)
	send(t, bob, `{"type":"join","ackId":2,"roomId":"X","userId":"u2","signalAddress":"p2"}`)
	recv(t, bob)
	recv(t, alice)

	// When bob's socket closes
	req.NoError(bob.Close())

	// Then alice hears about it and the registry drops bob
	left := recv(t, alice)
	req.Equal(map[string]any{"type": "user-left", "userId": "u2"}, left)
	req.Eventually(func() bool { return len(ts.registry.Snapshot("X")) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestSignal_LeaveKeepsConnectionOpen(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t, nil, defaultOptions())
	ws := dial(t, ts.url, nil)

	send(t, ws, `{"type":"join","ackId":1,"roomId":"X","userId":"u1","signalAddress":"p1"}`)
	recv(t, ws)
	send(t, ws, `{"type":"leave","roomId":"x","userId":"u1"}`)
	send(t, ws, `{"type":"whoami"}`)

	me := recv(t, ws)
	req.Equal("whoami", me["type"])
	req.NotContains(me, "room")
	req.Equal(0, ts.registry.RoomCount())
}

func TestSignal_WhoAmIAfterJoin(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t, nil, defaultOptions())
	ws := dial(t, ts.url, nil)

	send(t, ws, `{"type":"join","ackId":1,"roomId":"x","userId":"u1","displayName":"Alice","signalAddress":"p1"}`)
	recv(t, ws)
	send(t, ws, `{"type":"whoami"}`)

	me := recv(t, ws)
	req.Equal("X", me["room"])
	req.Equal("u1", me["userId"])
	req.Equal("Alice", me["displayName"])
	req.True(strings.HasPrefix(me["session"].(string), "test/"))
}

func TestSignal_RelayOffer(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t, nil, defaultOptions())
	alice := dial(t, ts.url, nil)
	bob := dial(t, ts.url, nil)

	send(t, alice, `{"type":"join","ackId":1,"roomId":"X","userId":"u1","signalAddress":"p1"}`)
	recv(t, alice)
	send(t, bob, `{"type":"join","ackId":2,"roomId":"X","userId":"u2","signalAddress":"p2"}`)
	recv(t, bob)
	recv(t, alice)

	offer := `{"type":"signal","to":"u2","description":{"type":"offer","sdp":` + quote(testSDP) + `}}`
	send(t, alice, offer)

	got := recv(t, bob)
	req.Equal("signal", got["type"])
	req.Equal("u1", got["from"])
	desc := got["description"].(map[string]any)
	req.Equal("offer", desc["type"])
	req.Equal(testSDP, desc["sdp"])
}

func TestSignal_RelayErrors(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t, nil, defaultOptions())
	ws := dial(t, ts.url, nil)

	send(t, ws, `{"type":"signal","to":"u2","candidate":{"candidate":"candidate:1 1 UDP 1 127.0.0.1 5000 typ host"}}`)
	req.Equal(map[string]any{"type": "error", "error": "not_in_room"}, recv(t, ws))

	send(t, ws, `{"type":"join","ackId":1,"roomId":"X","userId":"u1","signalAddress":"p1"}`)
	recv(t, ws)

	send(t, ws, `{"type":"signal","to":"ghost","candidate":{"candidate":"candidate:1 1 UDP 1 127.0.0.1 5000 typ host"}}`)
	req.Equal("peer_not_found", recv(t, ws)["error"])

	send(t, ws, `{"type":"signal","to":"ghost"}`)
	req.Equal("invalid_signal", recv(t, ws)["error"])

	send(t, ws, `{"type":"signal","to":"ghost","description":"nope"}`)
	req.Equal("bad_payload", recv(t, ws)["error"])
}

func TestSignal_JoinRateLimited(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t, NewRoomRateLimiter(1, time.Hour), defaultOptions())
	ws := dial(t, ts.url, nil)

	send(t, ws, `{"type":"join","ackId":1,"roomId":"X","userId":"u1","signalAddress":"p1"}`)
	req.Equal(true, recv(t, ws)["ok"])

	send(t, ws, `{"type":"join","ackId":2,"roomId":"Y","userId":"u1","signalAddress":"p1"}`)
	ack := recv(t, ws)
	req.Equal(false, ack["ok"])
	req.Equal(ErrCodeRateLimited, ack["error"])
	req.Equal(1, ts.registry.RoomCount())
}

func TestSignal_GarbageIsIgnored(t *testing.T) {
	ts := newTestServer(t, nil, defaultOptions())
	ws := dial(t, ts.url, nil)

	send(t, ws, `not json`)
	send(t, ws, `{"type":"mystery"}`)
	send(t, ws, `{"type":"ping"}`)

	require.Equal(t, "pong", recv(t, ws)["type"])
}

func TestSignal_OriginCheck(t *testing.T) {
	opts := defaultOptions()
	opts.AllowedOrigins = []string{"https://voice.example/"}
	ts := newTestServer(t, nil, opts)

	_, resp, err := websocket.DefaultDialer.Dial(ts.url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	ws := dial(t, ts.url, http.Header{"Origin": {"https://voice.example"}})
	send(t, ws, `{"type":"ping"}`)
	require.Equal(t, "pong", recv(t, ws)["type"])
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r", `\r`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

func TestSignal_LeaveNamingAnotherMember(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t, nil, defaultOptions())
	alice := dial(t, ts.url, nil)
	bob := dial(t, ts.url, nil)

	send(t, alice, `{"type":"join","ackId":1,"roomId":"X","userId":"u1","signalAddress":"p1"}`)
	recv(t, alice)
	send(t, bob, `{"type":"join","ackId":2,"roomId":"X","userId":"u2","signalAddress":"p2"}`)
	recv(t, bob)
	recv(t, alice)

	// When alice removes u2
	send(t, alice, `{"type":"leave","roomId":"X","userId":"u2"}`)

	// Then alice hears it and bob is no longer in the room
	req.Equal(map[string]any{"type": "user-left", "userId": "u2"}, recv(t, alice))
	send(t, bob, `{"type":"whoami"}`)
	me := recv(t, bob)
	req.Equal("whoami", me["type"])
	req.NotContains(me, "room")
	req.Equal(1, ts.hub.GroupSize("X"))
}
