// Package relay forwards chat messages to a webhook after role and content
// checks, and records every attempt.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/withmystar/chatrelay/agent"
	"github.com/withmystar/chatrelay/guardrail"
	"github.com/withmystar/chatrelay/logstore"
	"github.com/withmystar/chatrelay/roles"
	"github.com/withmystar/chatrelay/webhook"
)

// Sender performs the outbound call. *webhook.Client implements it.
type Sender interface {
	Send(ctx context.Context, url, text string) (*webhook.Result, error)
}

// Notifier is told about every entry after it has been stored.
type Notifier interface {
	Publish(e logstore.Entry)
}

type Relay struct {
	Policy *roles.Policy
	Store  logstore.Store
	Sender Sender
	Notify Notifier

	// DefaultWebhook is used when a request names no target.
	DefaultWebhook string
	// LogDenials also records role denials, which are otherwise only
	// returned to the caller.
	LogDenials bool

	now func() time.Time
}

func New(policy *roles.Policy, store logstore.Store, sender Sender) *Relay {
	return &Relay{Policy: policy, Store: store, Sender: sender, now: time.Now}
}

type Request struct {
	Message    string
	WebhookURL string
	AgentType  string
	CallerID   string
}

// ComplianceRecord is produced for every request addressed to the
// compliance agent.
type ComplianceRecord struct {
	Event     string `json:"event"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Sender    string `json:"sender"`
	Status    string `json:"status"`
}

// Outcome carries what the caller sees. It is returned alongside a
// ContentBlockedError or DeliveryError too, since the auto-reply and
// compliance record are computed before delivery.
type Outcome struct {
	ChatData      json.RawMessage
	AutoReply     *string
	ComplianceLog *ComplianceRecord
	Entry         *logstore.Entry
}

// Send runs one request through validation, authorization, guard rails,
// the agent responder and delivery. Exactly one log entry is written for
// every request that gets past validation and authorization.
func (r *Relay) Send(ctx context.Context, req Request) (*Outcome, error) {
	ts := r.now().UnixMilli()
	target := strings.TrimSpace(req.WebhookURL)
	if target == "" {
		target = r.DefaultWebhook
	}
	agentType := agent.Normalize(req.AgentType)
	role := r.Policy.ResolveRole(req.CallerID)

	slog.Info("relay: incoming message", "caller", req.CallerID, "role", role, "agent", agentType)

	if req.Message == "" {
		slog.Warn("relay: missing message", "caller", req.CallerID)
		return nil, errMissingMessage
	}
	if target == "" {
		slog.Error("relay: webhook URL not configured")
		return nil, errNoWebhook
	}

	base := logstore.Entry{
		Message:   req.Message,
		Timestamp: ts,
		CallerID:  req.CallerID,
		AgentType: string(agentType),
		Role:      string(role),
	}

	if !r.Policy.Authorize(role, agentType) {
		denied := &AuthorizationError{Role: role, AgentType: agentType}
		slog.Warn("relay: agent denied", "role", role, "agent", agentType)
		if r.LogDenials {
			e := base
			e.Error = denied.Error()
			r.record(ctx, e)
		}
		return nil, denied
	}

	if block := guardrail.Screen(req.Message); block != nil {
		e := base
		e.Error = blockedLogError
		e.AutoReply = block.Message
		stored := r.record(ctx, e)
		slog.Warn("relay: blocked by guard rails", "class", block.Class, "caller", req.CallerID)
		return &Outcome{Entry: stored}, &ContentBlockedError{Block: *block}
	}

	out := &Outcome{}
	if reply, ok := agent.Reply(agentType, req.Message); ok {
		out.AutoReply = &reply
	}
	if agentType == agent.Compliance {
		out.ComplianceLog = &ComplianceRecord{
			Event:     "compliance",
			Message:   req.Message,
			Timestamp: ts,
			Sender:    req.CallerID,
			Status:    "logged",
		}
		slog.Info("relay: compliance event logged", "sender", req.CallerID, "timestamp", ts)
	}

	e := base
	e.WebhookURL = target
	if out.AutoReply != nil {
		e.AutoReply = *out.AutoReply
	}

	res, err := r.Sender.Send(ctx, target, req.Message)
	if err != nil {
		e.Error = err.Error()
		out.Entry = r.record(ctx, e)
		slog.Error("relay: delivery failed", "err", err, "webhook", target)
		return out, &DeliveryError{Err: err}
	}

	out.ChatData = res.Body
	e.OutboundResult = res.Body
	out.Entry = r.record(ctx, e)
	slog.Info("relay: sent to webhook", "webhook", target, "status", res.StatusCode)
	return out, nil
}

// record appends e and fans it out. A store failure is logged but does not
// change the caller's outcome.
func (r *Relay) record(ctx context.Context, e logstore.Entry) *logstore.Entry {
	stored, err := r.Store.Append(ctx, e)
	if err != nil {
		slog.Error("relay: append log entry failed", "err", err)
		return nil
	}
	if r.Notify != nil {
		r.Notify.Publish(stored)
	}
	return &stored
}
