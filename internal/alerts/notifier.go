package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/gordonpn/portfolio-api/internal/domain"
)

// Notifier publishes owner alerts to a single destination.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert domain.Alert) error
}

// RetryAfterError asks the dispatcher to wait before the next attempt.
type RetryAfterError struct {
	Wait time.Duration
	Err  error
}

func (err *RetryAfterError) Error() string {
	return fmt.Sprintf("retry after %v: %v", err.Wait, err.Err)
}

func (err *RetryAfterError) Unwrap() error {
	return err.Err
}

// PermanentError marks a failure that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (err *PermanentError) Error() string {
	return err.Err.Error()
}

func (err *PermanentError) Unwrap() error {
	return err.Err
}

func plainText(alert domain.Alert) string {
	text := alert.Body
	if alert.ReplyTo != "" {
		text += "\n\nReply to: " + alert.ReplyTo
	}
	return text
}
