package relay

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/withmystar/chatrelay/logstore"
)

const (
	historyLimit = 20
	maxBodySize  = 10 << 20 // 10MB
)

// SendChatBody is the JSON body of POST /send-chat (and the chat.send RPC).
type SendChatBody struct {
	Message    string `json:"message"`
	WebhookURL string `json:"webhookUrl,omitempty"`
	AgentType  string `json:"agentType,omitempty"`
}

type sendChatResponse struct {
	Success       bool              `json:"success"`
	ChatData      json.RawMessage   `json:"chatData"`
	AutoReply     *string           `json:"autoReply"`
	ComplianceLog *ComplianceRecord `json:"complianceLog"`
}

type deliveryFailedResponse struct {
	Error         string            `json:"error"`
	AutoReply     *string           `json:"autoReply"`
	ComplianceLog *ComplianceRecord `json:"complianceLog"`
}

// Routes registers the relay endpoints on mux. Paths are relative; the
// caller mounts them under its base path.
func (r *Relay) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /send-chat", r.handleSendChat)
	mux.HandleFunc("GET /chat-log", r.handleChatLog)
	mux.HandleFunc("GET /crash-log", r.handleCrashLog)
}

func (r *Relay) handleSendChat(w http.ResponseWriter, req *http.Request) {
	var body SendChatBody
	req.Body = http.MaxBytesReader(w, req.Body, maxBodySize)
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	out, err := r.Send(req.Context(), Request{
		Message:    body.Message,
		WebhookURL: body.WebhookURL,
		AgentType:  body.AgentType,
		CallerID:   CallerID(req),
	})
	status, payload := Respond(out, err)
	writeJSON(w, status, payload)
}

// Respond maps the result of Send to an HTTP status and JSON body.
func Respond(out *Outcome, err error) (int, any) {
	if err == nil {
		return http.StatusOK, sendChatResponse{
			Success:       true,
			ChatData:      out.ChatData,
			AutoReply:     out.AutoReply,
			ComplianceLog: out.ComplianceLog,
		}
	}

	var (
		validation *ValidationError
		denied     *AuthorizationError
		blocked    *ContentBlockedError
		delivery   *DeliveryError
	)
	switch {
	case errors.As(err, &validation):
		return validation.Status, map[string]string{"error": validation.Message}
	case errors.As(err, &denied):
		return http.StatusForbidden, map[string]string{"error": denied.Error()}
	case errors.As(err, &blocked):
		return http.StatusForbidden, map[string]string{"error": blocked.Error()}
	case errors.As(err, &delivery):
		resp := deliveryFailedResponse{Error: delivery.Error()}
		if out != nil {
			resp.AutoReply = out.AutoReply
			resp.ComplianceLog = out.ComplianceLog
		}
		return http.StatusInternalServerError, resp
	default:
		return http.StatusInternalServerError, map[string]string{"error": err.Error()}
	}
}

func (r *Relay) handleChatLog(w http.ResponseWriter, req *http.Request) {
	entries, err := r.Store.Recent(req.Context(), historyLimit)
	if err != nil {
		slog.Error("chat-log query failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]logstore.Entry{"log": entries})
}

func (r *Relay) handleCrashLog(w http.ResponseWriter, req *http.Request) {
	entries, err := r.Store.RecentErrors(req.Context(), historyLimit)
	if err != nil {
		slog.Error("crash-log query failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]logstore.Entry{"crashLog": entries})
}

// CallerID identifies the caller by the transport peer address.
func CallerID(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	if host == "" {
		return "frontend"
	}
	return host
}

// HealthHandler reports liveness for deploy checks.
func HealthHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "healthy",
			"service":   "WithMyStar Backend",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   version,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response failed", "err", err)
	}
}
