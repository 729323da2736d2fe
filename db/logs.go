package db

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/withmystar/chatrelay/logstore"
)

// Append persists e. Unlike the in-memory store nothing is evicted.
func (db *DB) Append(ctx context.Context, e logstore.Entry) (logstore.Entry, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO relay_logs (timestamp, caller_id, role, message, webhook_url, agent_type, outbound_result, auto_reply, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Timestamp, e.CallerID, e.Role, e.Message,
		nullString(e.WebhookURL), nullString(e.AgentType), nullString(string(e.OutboundResult)),
		nullString(e.AutoReply), nullString(e.Error))
	if err != nil {
		return logstore.Entry{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return logstore.Entry{}, err
	}
	e.ID = id
	return e, nil
}

func (db *DB) Recent(ctx context.Context, limit int) ([]logstore.Entry, error) {
	return db.queryLogs(ctx, `
		SELECT id, timestamp, caller_id, role, message, webhook_url, agent_type, outbound_result, auto_reply, error
		FROM relay_logs ORDER BY id DESC LIMIT ?
	`, limit)
}

func (db *DB) RecentErrors(ctx context.Context, limit int) ([]logstore.Entry, error) {
	return db.queryLogs(ctx, `
		SELECT id, timestamp, caller_id, role, message, webhook_url, agent_type, outbound_result, auto_reply, error
		FROM relay_logs WHERE error IS NOT NULL AND error != ''
		ORDER BY id DESC LIMIT ?
	`, limit)
}

func (db *DB) queryLogs(ctx context.Context, query string, limit int) ([]logstore.Entry, error) {
	if limit <= 0 {
		return []logstore.Entry{}, nil
	}
	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []logstore.Entry{}
	for rows.Next() {
		var e logstore.Entry
		var webhookURL, agentType, outbound, autoReply, errMsg sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.CallerID, &e.Role, &e.Message, &webhookURL, &agentType, &outbound, &autoReply, &errMsg); err != nil {
			return nil, err
		}
		e.WebhookURL = webhookURL.String
		e.AgentType = agentType.String
		if outbound.Valid && outbound.String != "" {
			e.OutboundResult = json.RawMessage(outbound.String)
		}
		e.AutoReply = autoReply.String
		e.Error = errMsg.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ logstore.Store = (*DB)(nil)
