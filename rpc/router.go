package rpc

import (
	"log/slog"

	"github.com/withmystar/chatrelay/relay"
	"github.com/withmystar/chatrelay/ws"
)

type Router struct {
	Hub   *ws.Hub
	Relay *relay.Relay
}

func NewRouter(hub *ws.Hub, r *relay.Relay) *Router {
	rt := &Router{Hub: hub, Relay: r}
	hub.RPCRouter = rt.Handle
	return rt
}

func (r *Router) Handle(client *ws.Client, req ws.RPCRequest) {
	slog.Info("RPC", "method", req.Method, "caller", client.CallerID())

	switch req.Method {
	case "chat.send":
		r.handleChatSend(client, req)
	case "chat.log":
		r.handleChatLog(client, req)
	case "chat.crashLog":
		r.handleCrashLog(client, req)
	default:
		client.SendJSON(ws.NewErrorResponse(req.ID, ws.CodeUnknownMethod, "Unknown method: "+req.Method))
	}
}
