package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/withmystar/chatrelay/logstore"
	"github.com/withmystar/chatrelay/relay"
	"github.com/withmystar/chatrelay/ws"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// handleChatSend runs the same pipeline as POST /send-chat, with the socket
// peer as the caller.
func (r *Router) handleChatSend(client *ws.Client, req ws.RPCRequest) {
	out, err := r.Relay.Send(context.Background(), relay.Request{
		Message:    jsonString(req.Params["message"]),
		WebhookURL: jsonString(req.Params["webhookUrl"]),
		AgentType:  jsonString(req.Params["agentType"]),
		CallerID:   client.CallerID(),
	})
	status, payload := relay.Respond(out, err)
	if status == http.StatusOK {
		client.SendJSON(ws.NewResponse(req.ID, payload))
		return
	}

	resp := ws.NewErrorResponse(req.ID, errorCode(err), err.Error())
	resp.Error.Status = status
	resp.Error.Details = payload
	client.SendJSON(resp)
}

func (r *Router) handleChatLog(client *ws.Client, req ws.RPCRequest) {
	entries, err := r.Relay.Store.Recent(context.Background(), limitParam(req))
	if err != nil {
		client.SendJSON(ws.NewErrorResponse(req.ID, ws.CodeStore, err.Error()))
		return
	}
	client.SendJSON(ws.NewResponse(req.ID, map[string][]logstore.Entry{"log": entries}))
}

func (r *Router) handleCrashLog(client *ws.Client, req ws.RPCRequest) {
	entries, err := r.Relay.Store.RecentErrors(context.Background(), limitParam(req))
	if err != nil {
		client.SendJSON(ws.NewErrorResponse(req.ID, ws.CodeStore, err.Error()))
		return
	}
	client.SendJSON(ws.NewResponse(req.ID, map[string][]logstore.Entry{"crashLog": entries}))
}

func errorCode(err error) string {
	var (
		validation *relay.ValidationError
		denied     *relay.AuthorizationError
		blocked    *relay.ContentBlockedError
		delivery   *relay.DeliveryError
	)
	switch {
	case errors.As(err, &validation):
		return ws.CodeInvalidParams
	case errors.As(err, &denied):
		return ws.CodeForbidden
	case errors.As(err, &blocked):
		return ws.CodeBlocked
	case errors.As(err, &delivery):
		return ws.CodeDelivery
	default:
		return ws.CodeStore
	}
}

func limitParam(req ws.RPCRequest) int {
	limit := jsonInt(req.Params["limit"])
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func jsonString(raw json.RawMessage) string {
	var s string
	if raw != nil {
		json.Unmarshal(raw, &s)
	}
	return s
}

func jsonInt(raw json.RawMessage) int {
	var i int
	if raw != nil {
		json.Unmarshal(raw, &i)
	}
	return i
}
