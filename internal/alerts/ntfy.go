package alerts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/gordonpn/portfolio-api/internal/domain"
)

type NtfyNotifier struct {
	client   *http.Client
	topicURL string
	token    string
}

func NewNtfyNotifier(client *http.Client, topicURL, token string) *NtfyNotifier {
	return &NtfyNotifier{client: client, topicURL: strings.TrimSpace(topicURL), token: strings.TrimSpace(token)}
}

func (n *NtfyNotifier) Name() string {
	return "ntfy"
}

func (n *NtfyNotifier) Notify(ctx context.Context, alert domain.Alert) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.topicURL, bytes.NewBufferString(plainText(alert)))
	if err != nil {
		return &PermanentError{Err: fmt.Errorf("build ntfy request: %w", err)}
	}
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}
	req.Header.Set("Title", headerValue(alert.Title))
	req.Header.Set("Priority", "high")
	req.Header.Set("Tags", "envelope")
	if alert.ReplyTo != "" {
		req.Header.Set("Click", headerValue("mailto:"+alert.ReplyTo))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post ntfy: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RetryAfterError{
			Wait: retryAfterDelay(resp.Header.Get("Retry-After")),
			Err:  fmt.Errorf("ntfy rate limited: %s", string(body)),
		}
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &PermanentError{Err: fmt.Errorf("ntfy status %d: %s", resp.StatusCode, string(body))}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// retryAfterDelay parses a Retry-After header in seconds or HTTP-date form.
// Zero means "use the dispatcher's backoff".
func retryAfterDelay(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// headerValue replaces control characters, which net/http refuses to send
// in a header, with spaces.
func headerValue(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, value)
}
