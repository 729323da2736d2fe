// Package logstore records relay attempts.
package logstore

import (
	"context"
	"encoding/json"
)

// Entry is one relay attempt. Entries are never modified once appended.
type Entry struct {
	ID             int64           `json:"id"`
	Message        string          `json:"message"`
	WebhookURL     string          `json:"webhookUrl,omitempty"`
	Timestamp      int64           `json:"timestamp"` // epoch millis
	CallerID       string          `json:"callerId"`
	AgentType      string          `json:"agentType,omitempty"`
	Role           string          `json:"role"`
	OutboundResult json.RawMessage `json:"outboundResult,omitempty"`
	AutoReply      string          `json:"autoReply,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Store is implemented by the in-memory ring and the SQLite backend.
type Store interface {
	// Append assigns the next id and stores e, returning the stored copy.
	Append(ctx context.Context, e Entry) (Entry, error)
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
	// RecentErrors is Recent restricted to entries with a non-empty Error.
	RecentErrors(ctx context.Context, limit int) ([]Entry, error)
}
