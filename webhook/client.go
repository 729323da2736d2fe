// Package webhook posts messages to Google Chat style incoming webhooks.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultTimeout = 5 * time.Second
	maxRespSize    = 1 << 20 // 1MB
)

type Client struct {
	http *http.Client
}

// Result is what the webhook answered. Body is always valid JSON: the
// response itself when it parsed, otherwise {"raw": "<text>"}.
type Result struct {
	StatusCode int
	Body       json.RawMessage
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// Send makes a single POST of {"text": text} to url. Any HTTP response,
// whatever its status, counts as delivered; transport failures and timeouts
// are returned as errors.
func (c *Client) Send(ctx context.Context, url, text string) (*Result, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRespSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		slog.Warn("webhook answered with non-success status", "status", resp.StatusCode, "url", url)
	}
	return &Result{StatusCode: resp.StatusCode, Body: decodeBody(raw)}, nil
}

func decodeBody(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	wrapped, _ := json.Marshal(map[string]string{"raw": string(raw)})
	return wrapped
}
