package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gordonpn/portfolio-api/internal/domain"
)

type WebhookNotifier struct {
	client *http.Client
	url    string
	token  string
}

type webhookPayload struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	ReplyTo string `json:"reply_to,omitempty"`
}

func NewWebhookNotifier(client *http.Client, url, token string) *WebhookNotifier {
	return &WebhookNotifier{client: client, url: strings.TrimSpace(url), token: strings.TrimSpace(token)}
}

func (w *WebhookNotifier) Name() string {
	return "webhook"
}

func (w *WebhookNotifier) Notify(ctx context.Context, alert domain.Alert) error {
	payload, err := json.Marshal(webhookPayload{ID: alert.ID, Title: alert.Title, Body: alert.Body, ReplyTo: alert.ReplyTo})
	if err != nil {
		return &PermanentError{Err: fmt.Errorf("marshal webhook payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewBuffer(payload))
	if err != nil {
		return &PermanentError{Err: fmt.Errorf("build webhook request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
