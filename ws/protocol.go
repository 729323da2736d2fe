package ws

import "encoding/json"

// Error codes carried in RPCError.Code.
const (
	CodeUnknownMethod = "UNKNOWN_METHOD"
	CodeInvalidParams = "INVALID_PARAMS"
	CodeForbidden     = "FORBIDDEN"
	CodeBlocked       = "BLOCKED"
	CodeDelivery      = "DELIVERY_FAILED"
	CodeStore         = "STORE_ERROR"
)

// RPCMessage is the type-peek for incoming frames
type RPCMessage struct {
	Type   string          `json:"type"`
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

type RPCRequest struct {
	ID     string
	Method string
	Params map[string]json.RawMessage
}

type RPCResponse struct {
	Type    string    `json:"type"`
	ID      string    `json:"id"`
	OK      bool      `json:"ok"`
	Payload any       `json:"payload,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

type RPCError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Status mirrors the HTTP status the same failure gets on the REST surface.
	Status  int    `json:"status,omitempty"`
	Details any    `json:"details,omitempty"`
}

// RPCEvent is pushed without a request: "connect.ready", "chat.log".
type RPCEvent struct {
	Type    string `json:"type"`
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

func NewResponse(id string, payload any) RPCResponse {
	return RPCResponse{Type: "res", ID: id, OK: true, Payload: payload}
}

func NewErrorResponse(id, code, message string) RPCResponse {
	return RPCResponse{
		Type:  "res",
		ID:    id,
		OK:    false,
		Error: &RPCError{Code: code, Message: message},
	}
}

func NewEvent(event string, payload any) RPCEvent {
	return RPCEvent{Type: "event", Event: event, Payload: payload}
}
