package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/gordonpn/portfolio-api/internal/alerts"
	"github.com/gordonpn/portfolio-api/internal/chat"
	"github.com/gordonpn/portfolio-api/internal/config"
	"github.com/gordonpn/portfolio-api/internal/contact"
	"github.com/gordonpn/portfolio-api/internal/httpapi"
	"github.com/gordonpn/portfolio-api/internal/logging"
	"github.com/gordonpn/portfolio-api/internal/mail"
	"github.com/gordonpn/portfolio-api/internal/metrics"
	"github.com/gordonpn/portfolio-api/internal/portfolio"
	"github.com/gordonpn/portfolio-api/internal/ratelimit"
	"github.com/gordonpn/portfolio-api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("portfolio-api failed", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx := context.Background()
	appMetrics := metrics.New()

	limiterStore, closeStore, err := buildLimiterStore(ctx, cfg.RateLimit)
	if err != nil {
		return err
	}
	defer closeStore()
	limiter := ratelimit.New(cfg.RateLimit.Limit, cfg.RateLimit.Window, limiterStore)

	var repository *store.Postgres
	if cfg.DatabaseURL != "" {
		dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database connect failed: %w", err)
		}
		defer dbPool.Close()

		if err := dbPool.Ping(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
		repository = store.NewPostgres(dbPool)
		if err := repository.EnsureSchema(ctx); err != nil {
			return err
		}
	} else {
		logger.Info("DATABASE_URL not set, contact archive and push alerts disabled")
	}

	notifiers := buildNotifiers(cfg, repository, logger)
	dispatcher := alerts.New(alerts.Config{
		WorkerCount:        cfg.Alerts.WorkerCount,
		QueueSize:          cfg.Alerts.QueueSize,
		MaxRetries:         cfg.Alerts.MaxRetries,
		RetryBaseBackoffMS: cfg.Alerts.RetryBaseBackoffMS,
	}, notifiers, appMetrics, logger.Named("alerts"))
	dispatcher.Start()
	defer dispatcher.Stop()

	guardConfig := contact.Config{
		Limiter: limiter,
		From:    cfg.SMTP.User,
		To:      cfg.SMTP.To,
		Metrics: appMetrics,
		Logger:  logger.Named("contact"),
	}
	if cfg.SMTP.Configured() {
		mailer, err := mail.NewSMTPMailer(cfg.SMTP)
		if err != nil {
			return err
		}
		guardConfig.Mailer = mailer
	}
	if repository != nil {
		guardConfig.Archive = repository
	}
	if len(notifiers) > 0 {
		guardConfig.Alerts = dispatcher
	}
	guard := contact.NewGuard(guardConfig)
	if !guard.Configured() {
		logger.Warn("contact email not configured: SMTP_USER, SMTP_PASS and CONTACT_TO are required")
	}
	limit, window := limiter.Limit()
	logger.Info("contact guard ready",
		zap.Bool("email_configured", guard.Configured()),
		zap.Int("rate_limit", limit),
		zap.Duration("rate_window", window),
		zap.Bool("archive", guardConfig.Archive != nil),
	)

	var generator chat.Generator
	if cfg.Gemini.APIKey != "" {
		gemini, err := chat.NewGeminiGenerator(ctx, chat.GeminiConfig{APIKey: cfg.Gemini.APIKey})
		if err != nil {
			return err
		}
		generator = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, chat disabled")
	}

	catalog, err := portfolio.Default()
	if err != nil {
		return err
	}

	deps := httpapi.Dependencies{
		Guard:       guard,
		Chat:        chat.NewService(generator, cfg.Gemini.Model, appMetrics, logger.Named("chat")),
		Catalog:     catalog,
		AdminSecret: cfg.AdminSecret,
		Metrics:     appMetrics,
		Logger:      logger.Named("http"),
	}
	if repository != nil {
		deps.Subscriptions = repository
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpapi.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("portfolio-api listening", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-signals:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serveErr:
		return fmt.Errorf("http server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildLimiterStore(ctx context.Context, cfg config.RateLimitConfig) (ratelimit.Store, func(), error) {
	if cfg.Store != config.StoreRedis {
		return ratelimit.NewMemoryStore(), func() {}, nil
	}

	client, err := ratelimit.DialRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	// Entries outlive their window so the boundary check still sees them.
	return ratelimit.NewRedisStore(client, "", 2*cfg.Window), func() { _ = client.Close() }, nil
}

func buildNotifiers(cfg config.Config, repository *store.Postgres, logger *zap.Logger) []alerts.Notifier {
	client := &http.Client{Timeout: 10 * time.Second}
	var notifiers []alerts.Notifier

	if cfg.Alerts.NtfyTopicURL != "" {
		notifiers = append(notifiers, alerts.NewNtfyNotifier(client, cfg.Alerts.NtfyTopicURL, cfg.Alerts.NtfyToken))
	}
	if cfg.Alerts.DiscordWebhookURL != "" {
		notifiers = append(notifiers, alerts.NewDiscordNotifier(client, cfg.Alerts.DiscordWebhookURL))
	}
	if cfg.Alerts.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(client, cfg.Alerts.WebhookURL, cfg.Alerts.WebhookToken))
	}
	if cfg.Alerts.PushConfigured() && repository != nil {
		notifiers = append(notifiers, alerts.NewPushNotifier(alerts.PushConfig{
			VAPIDPublicKey:  cfg.Alerts.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.Alerts.VAPIDPrivateKey,
			VAPIDSubject:    cfg.Alerts.VAPIDSubject,
		}, repository, logger.Named("push")))
	}

	names := make([]string, 0, len(notifiers))
	for _, notifier := range notifiers {
		names = append(names, notifier.Name())
	}
	logger.Info("owner alerts configured", zap.Strings("notifiers", names))
	return notifiers
}
