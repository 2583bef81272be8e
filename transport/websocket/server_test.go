package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/mcp-training/gridshare/game/grid"
	"github.com/wricardo/mcp-training/gridshare/game/hub"
	"github.com/wricardo/mcp-training/gridshare/game/protocol"
	"github.com/wricardo/mcp-training/gridshare/logging"
)

type wireMessage struct {
	Type  string `json:"type"`
	State []int  `json:"state"`
	Index int    `json:"index"`
	Value int    `json:"value"`
}

func startServer(t *testing.T, opts Options) (*hub.Hub, *Server, string) {
	t.Helper()

	h := hub.New(grid.NewDefault(), hub.WithLogger(logging.Discard()))
	ws := NewServer(h, opts, logging.Discard())
	srv := httptest.NewServer(ws)
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})

	return h, ws, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, mt)

	var m wireMessage
	require.NoError(t, json.Unmarshal(data, &m), "frame %s", data)
	return m
}

// dialJoined connects and consumes the init frame.
func dialJoined(t *testing.T, url string) (*websocket.Conn, wireMessage) {
	t.Helper()
	conn := dial(t, url)
	init := readMessage(t, conn)
	require.Equal(t, "init", init.Type)
	return conn, init
}

func assertNoMessage(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, data, err := conn.ReadMessage()
	assert.Error(t, err, "unexpected frame %s", data)
}

func waitForConnections(t *testing.T, h *hub.Hub, n int) {
	t.Helper()
	assert.Eventually(t, func() bool {
		return h.Stats().Connections == n
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_InitSnapshot(t *testing.T) {
	h, _, url := startServer(t, Options{})

	_, init := dialJoined(t, url)
	assert.Len(t, init.State, 2500)
	for _, v := range init.State {
		assert.Equal(t, 0, v)
	}
	waitForConnections(t, h, 1)
}

func TestServer_UpdateFanOut(t *testing.T) {
	h, _, url := startServer(t, Options{})

	a, _ := dialJoined(t, url)
	b, _ := dialJoined(t, url)
	c, _ := dialJoined(t, url)
	waitForConnections(t, h, 3)

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"type":"update","index":7,"value":1}`)))

	for _, peer := range []*websocket.Conn{b, c} {
		m := readMessage(t, peer)
		assert.Equal(t, "update", m.Type)
		assert.Equal(t, 7, m.Index)
		assert.Equal(t, 1, m.Value)
	}
	assertNoMessage(t, a)

	// a late joiner sees the update in its snapshot
	_, init := dialJoined(t, url)
	assert.Equal(t, 1, init.State[7])
}

func TestServer_ResetReachesSender(t *testing.T) {
	h, _, url := startServer(t, Options{})

	a, _ := dialJoined(t, url)
	b, _ := dialJoined(t, url)
	waitForConnections(t, h, 2)

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"type":"reset"}`)))

	assert.Equal(t, "reset", readMessage(t, a).Type)
	assert.Equal(t, "reset", readMessage(t, b).Type)
}

func TestServer_MalformedFramesKeepConnection(t *testing.T) {
	h, _, url := startServer(t, Options{})

	a, _ := dialJoined(t, url)
	b, _ := dialJoined(t, url)
	waitForConnections(t, h, 2)

	for _, frame := range []string{
		`not json`,
		`{"index":1,"value":1}`,
		`{"type":"bogus"}`,
		`{"type":"update","index":"3","value":1}`,
		`{"type":"update","index":99999,"value":1}`,
	} {
		require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(frame)))
	}
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"type":"update","index":3,"value":1}`)))

	m := readMessage(t, b)
	assert.Equal(t, "update", m.Type)
	assert.Equal(t, 3, m.Index)
	assert.Equal(t, 2, h.Stats().Connections)
}

func TestServer_DisconnectCleansUp(t *testing.T) {
	h, _, url := startServer(t, Options{})

	a, _ := dialJoined(t, url)
	b, _ := dialJoined(t, url)
	waitForConnections(t, h, 2)

	require.NoError(t, a.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	a.Close()
	waitForConnections(t, h, 1)

	// broadcasts keep reaching the survivor
	h.Apply(nil, protocol.Reset{})
	assert.Equal(t, "reset", readMessage(t, b).Type)
}

func TestServer_AbruptDisconnect(t *testing.T) {
	h, _, url := startServer(t, Options{})

	a, _ := dialJoined(t, url)
	waitForConnections(t, h, 1)

	a.UnderlyingConn().Close()
	waitForConnections(t, h, 0)
}

func TestServer_OversizedFrameDropsClient(t *testing.T) {
	h, _, url := startServer(t, Options{ReadLimit: 64})

	a, _ := dialJoined(t, url)
	waitForConnections(t, h, 1)

	big := `{"type":"update","index":1,"value":1,"pad":"` + strings.Repeat("x", 200) + `"}`
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(big)))
	waitForConnections(t, h, 0)
}

func TestServer_HubCloseDisconnectsClients(t *testing.T) {
	h, ws, url := startServer(t, Options{})

	a, _ := dialJoined(t, url)
	waitForConnections(t, h, 1)

	h.Close()

	require.NoError(t, a.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := a.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	done := make(chan struct{})
	go func() {
		ws.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("client goroutines did not exit")
	}
}

func TestServer_RejectsAfterHubClosed(t *testing.T) {
	h, _, url := startServer(t, Options{})
	h.Close()

	conn := dial(t, url)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, h.Stats().Connections)
}

func TestServer_PingKeepsAlive(t *testing.T) {
	h, _, url := startServer(t, Options{PongWait: 200 * time.Millisecond, PingPeriod: 50 * time.Millisecond})

	a, _ := dialJoined(t, url)

	// The default ping handler answers with a pong, but only while reading.
	go func() {
		for {
			if _, _, err := a.ReadMessage(); err != nil {
				return
			}
		}
	}()

	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, 1, h.Stats().Connections)
}

func TestServer_PongCountsAsActivity(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h := hub.New(grid.NewDefault(), hub.WithLogger(logging.Discard()), hub.WithClock(clock))
	srv := httptest.NewServer(NewServer(h, Options{PongWait: 400 * time.Millisecond, PingPeriod: 50 * time.Millisecond}, logging.Discard()))
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})

	// A watcher that never sends grid messages, only answers pings.
	a, _ := dialJoined(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	go func() {
		for {
			if _, _, err := a.ReadMessage(); err != nil {
				return
			}
		}
	}()
	waitForConnections(t, h, 1)

	clock.Advance(time.Minute)
	assert.Eventually(t, func() bool {
		conns := h.Connections()
		return len(conns) == 1 && conns[0].LastActiveAt.Equal(clock.Now())
	}, 2*time.Second, 10*time.Millisecond, "pong should refresh last activity")

	assert.Equal(t, 0, h.ReapIdle(30*time.Second))
	assert.Equal(t, 1, h.Stats().Connections)
}

func TestServer_MissingPongDropsClient(t *testing.T) {
	h, _, url := startServer(t, Options{PongWait: 150 * time.Millisecond, PingPeriod: 50 * time.Millisecond})

	// Never reading means pings are never answered.
	dialJoined(t, url)
	waitForConnections(t, h, 0)
}

func TestServer_OriginPolicy(t *testing.T) {
	_, _, url := startServer(t, Options{AllowedOrigins: []string{"https://grid.example.com"}})

	header := http.Header{}
	header.Set("Origin", "https://evil.example.com")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://grid.example.com")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}

func TestClient_SendAfterClose(t *testing.T) {
	c := &Client{id: "x", send: make(chan []byte, 1)}

	require.NoError(t, c.Send([]byte("a")))
	assert.ErrorIs(t, c.Send([]byte("b")), ErrSendBufferFull)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Send([]byte("c")), ErrClientClosed)
}

func TestOptions_WithDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, int64(512), o.ReadLimit)
	assert.Equal(t, 256, o.SendBuffer)
	assert.Equal(t, 60*time.Second, o.PongWait)
	assert.Equal(t, 54*time.Second, o.PingPeriod)

	o = Options{PongWait: time.Second, PingPeriod: 2 * time.Second}.withDefaults()
	assert.Less(t, o.PingPeriod, o.PongWait)
}
