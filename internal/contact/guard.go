package contact

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gordonpn/portfolio-api/internal/domain"
	"github.com/gordonpn/portfolio-api/internal/metrics"
)

const (
	maxNameLength    = 200
	maxEmailLength   = 320
	maxMessageLength = 4000

	senderName = "Portfolio Contact"
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// Submission is the decoded contact form. Website is the honeypot field.
type Submission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
	Website string `json:"website"`
}

// Message is an outbound email.
type Message struct {
	FromName string
	From     string
	To       string
	ReplyTo  string
	Subject  string
	Body     string
}

type Mailer interface {
	Send(ctx context.Context, message Message) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type Archiver interface {
	ArchiveMessage(ctx context.Context, message domain.ContactMessage) error
}

type Alerter interface {
	Enqueue(alert domain.Alert) bool
}

type Config struct {
	Limiter RateLimiter
	// Mailer is nil when SMTP credentials or the destination are missing.
	Mailer Mailer
	From   string
	To     string

	Archive Archiver
	Alerts  Alerter
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	Now     func() time.Time
}

// Guard decides whether a contact submission is forwarded by email.
type Guard struct {
	config Config
}

func NewGuard(config Config) *Guard {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Guard{config: config}
}

// Configured reports whether an outbound mailer is wired.
func (guard *Guard) Configured() bool {
	return guard.config.Mailer != nil
}

// Handle validates, rate limits and sends a submission. Every failure is an
// *Error. The rate limit counter is never rolled back.
func (guard *Guard) Handle(ctx context.Context, submission Submission, clientID string) error {
	err := guard.handle(ctx, submission, clientID)
	if err != nil {
		guard.config.Metrics.RecordContact(AsError(err).Code)
		return err
	}
	guard.config.Metrics.RecordContact("ok")
	return nil
}

func (guard *Guard) handle(ctx context.Context, submission Submission, clientID string) error {
	if strings.TrimSpace(submission.Website) != "" {
		return ErrBadRequest
	}

	name := strings.TrimSpace(submission.Name)
	email := strings.TrimSpace(submission.Email)
	message := strings.TrimSpace(submission.Message)
	if name == "" || email == "" || message == "" {
		return ErrMissingFields
	}

	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}

	allowed, err := guard.config.Limiter.Allow(ctx, clientID)
	if err != nil {
		guard.config.Metrics.RecordRateLimitError()
		guard.config.Logger.Error("rate limit check failed", zap.String("client", clientID), zap.Error(err))
		return ErrSendFailed
	}
	if !allowed {
		guard.config.Logger.Info("contact submission rate limited", zap.String("client", clientID))
		return ErrRateLimited
	}

	if guard.config.Mailer == nil {
		guard.config.Logger.Error("contact email not configured: SMTP_USER, SMTP_PASS and CONTACT_TO are required")
		return ErrNotConfigured
	}

	accepted := domain.ContactMessage{
		ID:        uuid.NewString(),
		Name:      truncate(name, maxNameLength),
		Email:     truncate(email, maxEmailLength),
		Message:   truncate(message, maxMessageLength),
		ClientID:  clientID,
		CreatedAt: guard.config.Now().UTC(),
	}

	started := time.Now()
	err = guard.config.Mailer.Send(ctx, composeEmail(accepted, guard.config.From, guard.config.To))
	guard.config.Metrics.RecordEmailSend(time.Since(started))
	if err != nil {
		guard.config.Logger.Error("contact email send failed", zap.String("id", accepted.ID), zap.Error(err))
		return ErrSendFailed
	}

	guard.config.Logger.Info("contact email sent", zap.String("id", accepted.ID), zap.String("client", clientID))
	guard.afterDelivery(ctx, accepted)
	return nil
}

// afterDelivery archives the message and alerts the owner. Neither affects
// the response.
func (guard *Guard) afterDelivery(ctx context.Context, accepted domain.ContactMessage) {
	if guard.config.Archive != nil {
		if err := guard.config.Archive.ArchiveMessage(ctx, accepted); err != nil {
			guard.config.Metrics.RecordArchiveError()
			guard.config.Logger.Warn("contact archive failed", zap.String("id", accepted.ID), zap.Error(err))
		}
	}

	if guard.config.Alerts != nil {
		alert := domain.Alert{
			ID:      accepted.ID,
			Title:   "New portfolio message from " + accepted.Name,
			Body:    preview(accepted.Message, 280),
			ReplyTo: accepted.Email,
			URL:     "mailto:" + url.PathEscape(accepted.Email),
		}
		if !guard.config.Alerts.Enqueue(alert) {
			guard.config.Logger.Warn("owner alert dropped", zap.String("id", accepted.ID))
		}
	}
}

func composeEmail(accepted domain.ContactMessage, from, to string) Message {
	return Message{
		FromName: senderName,
		From:     from,
		To:       to,
		ReplyTo:  accepted.Email,
		Subject:  fmt.Sprintf("New portfolio message from %s", accepted.Name),
		Body:     fmt.Sprintf("Name: %s\nEmail: %s\n\n%s", accepted.Name, accepted.Email, accepted.Message),
	}
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

func preview(value string, limit int) string {
	truncated := truncate(value, limit)
	if truncated != value {
		return truncated + "…"
	}
	return truncated
}
