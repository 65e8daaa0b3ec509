package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/gordonpn/portfolio-api/internal/domain"
)

type pushSubscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256DH string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// subscribeRequest accepts either the browser PushSubscription JSON nested
// under "subscription" or the same fields at the top level.
type subscribeRequest struct {
	Subscription *pushSubscription `json:"subscription"`
	Label        string            `json:"label"`

	pushSubscription
}

type unsubscribeRequest struct {
	Endpoint     string            `json:"endpoint"`
	Subscription *pushSubscription `json:"subscription"`
}

func (handlers *Handlers) subscribe(writer http.ResponseWriter, request *http.Request) {
	if handlers.subscriptions == nil {
		writeJSON(writer, http.StatusServiceUnavailable, map[string]string{"error": "push_unavailable"})
		return
	}

	var payload subscribeRequest
	request.Body = http.MaxBytesReader(writer, request.Body, maxBodyBytes)
	if err := json.NewDecoder(request.Body).Decode(&payload); err != nil {
		writeJSON(writer, http.StatusUnprocessableEntity, map[string]string{"error": "invalid_subscription"})
		return
	}

	subscription, ok := buildSubscription(payload)
	if !ok {
		writeJSON(writer, http.StatusUnprocessableEntity, map[string]string{"error": "invalid_subscription"})
		return
	}

	created, err := handlers.subscriptions.UpsertSubscription(request.Context(), subscription)
	if err != nil {
		handlers.logger.Error("subscribe upsert failed", zap.Error(err))
		writeJSON(writer, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}

	statusCode := http.StatusOK
	if created {
		statusCode = http.StatusCreated
	}
	writeJSON(writer, statusCode, map[string]string{"status": "active"})
}

func (handlers *Handlers) unsubscribe(writer http.ResponseWriter, request *http.Request) {
	if handlers.subscriptions == nil {
		writeJSON(writer, http.StatusServiceUnavailable, map[string]string{"error": "push_unavailable"})
		return
	}

	var payload unsubscribeRequest
	request.Body = http.MaxBytesReader(writer, request.Body, maxBodyBytes)
	if err := json.NewDecoder(request.Body).Decode(&payload); err != nil {
		writeJSON(writer, http.StatusUnprocessableEntity, map[string]string{"error": "missing_endpoint"})
		return
	}

	endpoint := strings.TrimSpace(payload.Endpoint)
	if endpoint == "" && payload.Subscription != nil {
		endpoint = strings.TrimSpace(payload.Subscription.Endpoint)
	}
	if endpoint == "" {
		writeJSON(writer, http.StatusUnprocessableEntity, map[string]string{"error": "missing_endpoint"})
		return
	}

	if err := handlers.subscriptions.DeleteByEndpoint(request.Context(), endpoint); err != nil {
		handlers.logger.Error("unsubscribe delete failed", zap.Error(err))
		writeJSON(writer, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}

	writeJSON(writer, http.StatusOK, map[string]string{"status": "inactive"})
}

func buildSubscription(request subscribeRequest) (domain.Subscription, bool) {
	source := request.pushSubscription
	if request.Subscription != nil {
		source = *request.Subscription
	}

	subscription := domain.Subscription{
		Endpoint: strings.TrimSpace(source.Endpoint),
		P256DH:   strings.TrimSpace(source.Keys.P256DH),
		Auth:     strings.TrimSpace(source.Keys.Auth),
		Label:    strings.TrimSpace(request.Label),
	}
	if subscription.Endpoint == "" || subscription.P256DH == "" || subscription.Auth == "" {
		return domain.Subscription{}, false
	}
	if !strings.HasPrefix(subscription.Endpoint, "https://") {
		return domain.Subscription{}, false
	}
	return subscription, true
}
