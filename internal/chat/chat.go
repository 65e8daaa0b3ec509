package chat

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gordonpn/portfolio-api/internal/metrics"
)

const (
	FallbackReply = "Sorry, I did not receive a response."

	persona = `You are a helpful assistant for a creative portfolio website. The portfolio owner is:
- A Full-Stack Web Developer specializing in React, Next.js, Node.js, and modern web technologies
- A UI/UX Designer with expertise in Figma, design systems, and user experience
- A Graphic Artist working with digital art, branding, and visual design

Skills include: Frontend (React, Next.js, TypeScript, Tailwind CSS, GSAP), Backend (Node.js, Express, PostgreSQL, MongoDB), Design (Figma, Adobe Creative Suite), and Creative Tools (Blender, Cinema 4D, Procreate).

Projects include web applications, UI/UX case studies, and graphic design work.

Keep responses concise, friendly, and professional. If asked about contact, mention they can use the contact form on the website.`
)

// Error is a chat failure safe to show to the caller.
type Error struct {
	Status int
	Reason string
}

func (err *Error) Error() string {
	return err.Reason
}

var (
	ErrMethodNotAllowed = &Error{Status: http.StatusMethodNotAllowed, Reason: "Method not allowed"}
	ErrMessageRequired  = &Error{Status: http.StatusBadRequest, Reason: "Message is required"}
	ErrNotConfigured    = &Error{Status: http.StatusInternalServerError, Reason: "Missing GEMINI_API_KEY"}
	ErrGenerateFailed   = &Error{Status: http.StatusInternalServerError, Reason: "Failed to generate response"}
	ErrListFailed       = &Error{Status: http.StatusInternalServerError, Reason: "Failed to list models"}
)

// Model describes a generative model available to the configured key.
type Model struct {
	Name             string   `json:"name"`
	DisplayName      string   `json:"displayName"`
	SupportedMethods []string `json:"supportedMethods"`
}

type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
	ListModels(ctx context.Context, apiVersion string) ([]Model, error)
}

type Service struct {
	generator Generator
	model     string
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewService builds the chat proxy. generator may be nil when no API key is
// configured; every call then fails with ErrNotConfigured.
func NewService(generator Generator, model string, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		generator: generator,
		model:     ModelPath(model),
		metrics:   m,
		logger:    logger,
	}
}

func (service *Service) Reply(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		service.metrics.RecordChat("message_required", 0)
		return "", ErrMessageRequired
	}
	if service.generator == nil {
		service.logger.Error("chat requested but GEMINI_API_KEY is not set")
		service.metrics.RecordChat("not_configured", 0)
		return "", ErrNotConfigured
	}

	started := time.Now()
	text, err := service.generator.Generate(ctx, service.model, Prompt(message))
	elapsed := time.Since(started)
	if err != nil {
		service.logger.Error("chat generation failed", zap.String("model", service.model), zap.Duration("elapsed", elapsed), zap.Error(err))
		service.metrics.RecordChat("error", elapsed)
		return "", ErrGenerateFailed
	}

	service.metrics.RecordChat("ok", elapsed)
	if strings.TrimSpace(text) == "" {
		return FallbackReply, nil
	}
	return text, nil
}

// Models lists models from the stable API, falling back to v1beta.
func (service *Service) Models(ctx context.Context) ([]Model, error) {
	if service.generator == nil {
		service.metrics.RecordModelList("not_configured")
		return nil, ErrNotConfigured
	}

	models, err := service.generator.ListModels(ctx, "v1")
	if err != nil {
		service.logger.Warn("model listing failed, retrying with v1beta", zap.Error(err))
		models, err = service.generator.ListModels(ctx, "v1beta")
	}
	if err != nil {
		service.logger.Error("model listing failed", zap.Error(err))
		service.metrics.RecordModelList("error")
		return nil, ErrListFailed
	}

	service.metrics.RecordModelList("ok")
	if models == nil {
		models = []Model{}
	}
	return models, nil
}

// Prompt wraps a visitor message in the portfolio persona.
func Prompt(message string) string {
	return persona + "\n\nUser: " + message + "\n\nAssistant:"
}

// ModelPath returns name with the "models/" resource prefix.
func ModelPath(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "gemini-1.5-flash"
	}
	if strings.HasPrefix(name, "models/") {
		return name
	}
	return "models/" + name
}
