package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"github.com/gordonpn/portfolio-api/internal/domain"
)

type SubscriptionRepository interface {
	ListSubscriptions(ctx context.Context) ([]domain.Subscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

type PushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string
	TTLSeconds      int
}

type sendFunc func(ctx context.Context, payload []byte, subscription *webpush.Subscription, options *webpush.Options) (*http.Response, error)

// PushNotifier sends a Web Push message to every browser the owner
// registered. Subscriptions answering 404 or 410 are removed.
type PushNotifier struct {
	config     PushConfig
	repository SubscriptionRepository
	logger     *zap.Logger
	send       sendFunc
}

func NewPushNotifier(config PushConfig, repository SubscriptionRepository, logger *zap.Logger) *PushNotifier {
	if config.TTLSeconds <= 0 {
		config.TTLSeconds = 60 * 60 * 24
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PushNotifier{
		config:     config,
		repository: repository,
		logger:     logger,
		send:       webpush.SendNotificationWithContext,
	}
}

func (p *PushNotifier) Name() string {
	return "webpush"
}

func (p *PushNotifier) Notify(ctx context.Context, alert domain.Alert) error {
	subscriptions, err := p.repository.ListSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("list push subscriptions: %w", err)
	}
	if len(subscriptions) == 0 {
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"title": alert.Title,
		"body":  alert.Body,
		"url":   alert.URL,
	})
	if err != nil {
		return &PermanentError{Err: err}
	}

	options := &webpush.Options{
		Subscriber:      p.config.VAPIDSubject,
		VAPIDPublicKey:  p.config.VAPIDPublicKey,
		VAPIDPrivateKey: p.config.VAPIDPrivateKey,
		TTL:             p.config.TTLSeconds,
		Urgency:         webpush.UrgencyHigh,
		Topic:           "portfolio-contact",
	}

	var failures []error
	for _, subscription := range subscriptions {
		if err := p.sendOne(ctx, payload, subscription, options); err != nil {
			failures = append(failures, err)
		}
	}
	return errors.Join(failures...)
}

func (p *PushNotifier) sendOne(ctx context.Context, payload []byte, subscription domain.Subscription, options *webpush.Options) error {
	response, err := p.send(ctx, payload, &webpush.Subscription{
		Endpoint: subscription.Endpoint,
		Keys: webpush.Keys{
			P256dh: subscription.P256DH,
			Auth:   subscription.Auth,
		},
	}, options)
	if err != nil {
		return fmt.Errorf("push to %s: %w", redactEndpoint(subscription.Endpoint), err)
	}
	_, _ = io.Copy(io.Discard, response.Body)
	_ = response.Body.Close()

	switch {
	case response.StatusCode >= 200 && response.StatusCode <= 299:
		return nil
	case response.StatusCode == http.StatusGone || response.StatusCode == http.StatusNotFound:
		if err := p.repository.DeleteByEndpoint(ctx, subscription.Endpoint); err != nil {
			p.logger.Warn("failed deleting gone subscription", zap.String("endpoint", redactEndpoint(subscription.Endpoint)), zap.Error(err))
		}
		return nil
	default:
		return fmt.Errorf("push to %s: status %d", redactEndpoint(subscription.Endpoint), response.StatusCode)
	}
}

func redactEndpoint(endpoint string) string {
	if endpoint == "" {
		return "unknown"
	}
	if strings.HasPrefix(endpoint, "https://") || strings.HasPrefix(endpoint, "http://") {
		parts := strings.Split(endpoint, "/")
		if len(parts) >= 3 {
			return parts[0] + "//" + parts[2]
		}
	}
	return "unknown"
}
