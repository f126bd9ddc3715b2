package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dmehra/oddsradar/internal/canonical"
)

// Pusher forwards a recorded notification to an external push sink.
// Implementations must be safe to call with a failing backend: dispatch
// errors are logged by the caller and never roll back the in-app record.
type Pusher interface {
	Push(ctx context.Context, chatID string, n canonical.Notification) error
	IsEnabled() bool
}

// WebhookPusher posts notification payloads to a push-gateway webhook keyed
// by an opaque per-user chat/channel id.
type WebhookPusher struct {
	webhookURL string
	httpClient *http.Client
	enabled    bool
}

type pushPayload struct {
	ChatID   string `json:"chat_id"`
	Kind     string `json:"kind"`
	Severity string `json:"severity"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	EventID  string `json:"event_id,omitempty"`
	SentAt   string `json:"sent_at"`
}

// NewWebhookPusher builds a pusher; an empty URL disables it.
func NewWebhookPusher(webhookURL string) *WebhookPusher {
	return &WebhookPusher{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		enabled:    webhookURL != "",
	}
}

func (w *WebhookPusher) IsEnabled() bool {
	return w.enabled
}

func (w *WebhookPusher) Push(ctx context.Context, chatID string, n canonical.Notification) error {
	if !w.enabled {
		return nil
	}
	payload := pushPayload{
		ChatID:   chatID,
		Kind:     n.Kind,
		Severity: n.Severity,
		Title:    n.Title,
		Body:     n.Body,
		EventID:  n.EventID,
		SentAt:   time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("push sink returned status %d", resp.StatusCode)
	}
	return nil
}
