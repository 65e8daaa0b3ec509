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

// Discord rejects message content longer than this.
const discordContentLimit = 2000

type DiscordNotifier struct {
	client     *http.Client
	webhookURL string
}

type discordPayload struct {
	Content string `json:"content"`
}

func NewDiscordNotifier(client *http.Client, webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{client: client, webhookURL: strings.TrimSpace(webhookURL)}
}

func (d *DiscordNotifier) Name() string {
	return "discord"
}

func (d *DiscordNotifier) Notify(ctx context.Context, alert domain.Alert) error {
	content := "**" + alert.Title + "**\n" + plainText(alert)
	if runes := []rune(content); len(runes) > discordContentLimit {
		content = string(runes[:discordContentLimit])
	}

	payload, err := json.Marshal(discordPayload{Content: content})
	if err != nil {
		return &PermanentError{Err: fmt.Errorf("marshal discord payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return &PermanentError{Err: fmt.Errorf("build discord request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RetryAfterError{Wait: retryAfterDelay(resp.Header.Get("Retry-After")), Err: fmt.Errorf("discord rate limited")}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
