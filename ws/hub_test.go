package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/withmystar/chatrelay/logstore"
)

type frame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	OK      bool            `json:"ok"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Error   *RPCError       `json:"error"`
}

func startHub(t *testing.T, router func(*Client, RPCRequest)) (*Hub, string, func()) {
	t.Helper()
	hub := NewHub()
	hub.RPCRouter = router
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	srv := httptest.NewServer(hub)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	stop := func() {
		cancel()
		<-done
		srv.Close()
	}
	return hub, url, stop
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHubConnectReady(t *testing.T) {
	defer goleak.VerifyNone(t)
	_, url, stop := startHub(t, nil)
	defer stop()

	conn := dial(t, url)
	defer conn.Close()

	f := readFrame(t, conn)
	assert.Equal(t, "event", f.Type)
	assert.Equal(t, "connect.ready", f.Event)
	assert.JSONEq(t, `{"protocol":1}`, string(f.Payload))
}

func TestHubBroadcastsPublishedEntries(t *testing.T) {
	defer goleak.VerifyNone(t)
	hub, url, stop := startHub(t, nil)
	defer stop()

	a := dial(t, url)
	defer a.Close()
	b := dial(t, url)
	defer b.Close()
	readFrame(t, a)
	readFrame(t, b)
	waitForClients(t, hub, 2)

	hub.Publish(logstore.Entry{ID: 7, Message: "hello", Role: "admin", CallerID: "127.0.0.1"})

	for _, conn := range []*websocket.Conn{a, b} {
		f := readFrame(t, conn)
		assert.Equal(t, "chat.log", f.Event)
		var e logstore.Entry
		require.NoError(t, json.Unmarshal(f.Payload, &e))
		assert.Equal(t, int64(7), e.ID)
		assert.Equal(t, "hello", e.Message)
	}
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	defer goleak.VerifyNone(t)
	hub, url, stop := startHub(t, nil)
	defer stop()

	conn := dial(t, url)
	readFrame(t, conn)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHubRoutesRequests(t *testing.T) {
	defer goleak.VerifyNone(t)
	echo := func(client *Client, req RPCRequest) {
		var n int
		json.Unmarshal(req.Params["n"], &n)
		client.SendJSON(NewResponse(req.ID, map[string]any{"method": req.Method, "n": n, "caller": client.CallerID()}))
	}
	_, url, stop := startHub(t, echo)
	defer stop()

	conn := dial(t, url)
	defer conn.Close()
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "req", "id": "r1", "method": "echo", "params": map[string]any{"n": 3}}))
	f := readFrame(t, conn)
	assert.Equal(t, "res", f.Type)
	assert.Equal(t, "r1", f.ID)
	assert.True(t, f.OK)
	assert.JSONEq(t, `{"method":"echo","n":3,"caller":"127.0.0.1"}`, string(f.Payload))
}

func TestHubUnknownMethodWithoutRouter(t *testing.T) {
	defer goleak.VerifyNone(t)
	_, url, stop := startHub(t, nil)
	defer stop()

	conn := dial(t, url)
	defer conn.Close()
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "req", "id": "r2", "method": "nope"}))
	f := readFrame(t, conn)
	assert.False(t, f.OK)
	require.NotNil(t, f.Error)
	assert.Equal(t, CodeUnknownMethod, f.Error.Code)
}

func TestHubShutdownClosesClients(t *testing.T) {
	defer goleak.VerifyNone(t)
	hub, url, stop := startHub(t, nil)

	conn := dial(t, url)
	defer conn.Close()
	readFrame(t, conn)
	waitForClients(t, hub, 1)

	stop()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "expected the server to close the socket")
	assert.Equal(t, 0, hub.ClientCount())
}

func TestPublishNeverBlocks(t *testing.T) {
	hub := NewHub() // not running
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Publish(logstore.Entry{ID: int64(i)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked with no hub running")
	}
}
