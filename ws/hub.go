package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/withmystar/chatrelay/logstore"
)

const protocolVersion = 1

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub owns the set of live-feed subscribers. Every stored log entry is
// pushed to all of them as a "chat.log" event.
type Hub struct {
	clients    map[*Client]bool
	mu         sync.RWMutex
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	quit       chan struct{}

	RPCRouter func(client *Client, req RPCRequest)
	// CallerID names the peer of an upgraded request; defaults to the
	// remote host.
	CallerID func(r *http.Request) string
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		quit:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.quit)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			client.SendJSON(NewEvent("connect.ready", map[string]interface{}{
				"protocol": protocolVersion,
			}))
			slog.Info("live feed client connected", "caller", client.CallerID())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
				slog.Info("live feed client unregistered", "caller", client.CallerID())
			}
			h.mu.Unlock()

		case data := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				client.sendRaw(data)
			}
			h.mu.RUnlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.close()
			}
			h.mu.Unlock()
			slog.Info("live feed hub stopped")
			return nil
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Publish queues e for every subscriber. It never blocks the caller; if the
// queue is full the event is dropped.
func (h *Hub) Publish(e logstore.Entry) {
	data := mustJSON(NewEvent("chat.log", e))
	select {
	case h.broadcast <- data:
	default:
		slog.Warn("live feed queue full, dropping entry", "id", e.ID)
	}
}

// ClientCount reports how many subscribers are connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and attaches the socket to the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("upgrade failed", "err", err)
		return
	}
	client := NewClient(h, conn, h.callerID(r))
	h.Register(client)
	go client.WritePump()
	go client.ReadPump()
}

func (h *Hub) callerID(r *http.Request) string {
	if h.CallerID != nil {
		return h.CallerID(r)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Hub) handleMessage(client *Client, data []byte) {
	var msg RPCMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Warn("invalid message", "err", err)
		return
	}

	switch msg.Type {
	case "req":
		var params map[string]json.RawMessage
		if msg.Params != nil {
			json.Unmarshal(msg.Params, &params)
		}
		if params == nil {
			params = make(map[string]json.RawMessage)
		}

		req := RPCRequest{ID: msg.ID, Method: msg.Method, Params: params}
		if h.RPCRouter != nil {
			h.RPCRouter(client, req)
		} else {
			client.SendJSON(NewErrorResponse(msg.ID, CodeUnknownMethod, "Unknown method: "+msg.Method))
		}

	default:
		slog.Warn("unknown message type", "type", msg.Type)
	}
}

func mustJSON(v interface{}) []byte {
	data, _ := json.Marshal(v)
	return data
}
