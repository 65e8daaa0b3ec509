package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/gordonpn/portfolio-api/internal/chat"
	"github.com/gordonpn/portfolio-api/internal/contact"
	"github.com/gordonpn/portfolio-api/internal/domain"
	"github.com/gordonpn/portfolio-api/internal/metrics"
	"github.com/gordonpn/portfolio-api/internal/portfolio"
)

// SubscriptionStore manages the owner's Web Push registrations.
type SubscriptionStore interface {
	UpsertSubscription(ctx context.Context, subscription domain.Subscription) (bool, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

type Dependencies struct {
	Guard   *contact.Guard
	Chat    *chat.Service
	Catalog *portfolio.Catalog
	// Subscriptions is nil when no database is configured.
	Subscriptions SubscriptionStore
	AdminSecret   string
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
}

type Handlers struct {
	guard         *contact.Guard
	chat          *chat.Service
	catalog       *portfolio.Catalog
	subscriptions SubscriptionStore
	adminSecret   string
	logger        *zap.Logger
}

func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	handlers := &Handlers{
		guard:         deps.Guard,
		chat:          deps.Chat,
		catalog:       deps.Catalog,
		subscriptions: deps.Subscriptions,
		adminSecret:   deps.AdminSecret,
		logger:        logger,
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(accessLog(logger))

	router.Get("/healthz", handlers.healthz)
	if deps.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	// The method check lives in the handlers so every verb gets the
	// documented 405 body.
	router.HandleFunc("/contact", handlers.contact)
	router.HandleFunc("/chat", handlers.chatReply)

	router.Route("/api", func(r chi.Router) {
		r.HandleFunc("/contact", handlers.contact)
		r.HandleFunc("/chat", handlers.chatReply)
		r.HandleFunc("/gemini", handlers.chatReply)
		r.HandleFunc("/models", handlers.models)

		r.Get("/projects", handlers.projects)
		r.Get("/projects/{slug}", handlers.project)
		r.Get("/skills", handlers.skills)

		r.Group(func(admin chi.Router) {
			admin.Use(handlers.adminSecretAuth)
			admin.Post("/push/subscribe", handlers.subscribe)
			admin.Post("/push/unsubscribe", handlers.unsubscribe)
		})
	})

	return router
}

func (handlers *Handlers) adminSecretAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if !secureCompare(handlers.adminSecret, request.Header.Get("X-Admin-Secret")) {
			writeJSON(writer, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(writer, request)
	})
}

func (handlers *Handlers) healthz(writer http.ResponseWriter, _ *http.Request) {
	writer.WriteHeader(http.StatusOK)
	_, _ = writer.Write([]byte("ok"))
}

func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			wrapped := middleware.NewWrapResponseWriter(writer, request.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(wrapped, request)

			status := wrapped.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debug("request",
				zap.String("method", request.Method),
				zap.String("path", request.URL.Path),
				zap.Int("status", status),
				zap.Duration("elapsed", time.Since(started)))
		})
	}
}

func secureCompare(expected, actual string) bool {
	if len(expected) == 0 || len(actual) == 0 {
		return false
	}
	if len(expected) != len(actual) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(actual)) == 1
}

func methodNotAllowed(writer http.ResponseWriter, allow string, payload any) {
	writer.Header().Set("Allow", allow)
	writeJSON(writer, http.StatusMethodNotAllowed, payload)
}

func writeJSON(writer http.ResponseWriter, status int, payload any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(payload)
}
