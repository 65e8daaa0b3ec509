package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	SMTP      SMTPConfig
	RateLimit RateLimitConfig
	Gemini    GeminiConfig
	Alerts    AlertsConfig

	DatabaseURL string
	AdminSecret string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Secure   bool
	User     string
	Password string
	To       string
}

// Configured reports whether the credentials and destination needed to send
// contact mail are all present.
func (smtp SMTPConfig) Configured() bool {
	return smtp.User != "" && smtp.Password != "" && smtp.To != ""
}

type RateLimitConfig struct {
	Limit    int
	Window   time.Duration
	Store    string
	RedisURL string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type AlertsConfig struct {
	NtfyTopicURL       string
	NtfyToken          string
	DiscordWebhookURL  string
	WebhookURL         string
	WebhookToken       string
	VAPIDPublicKey     string
	VAPIDPrivateKey    string
	VAPIDSubject       string
	WorkerCount        int
	QueueSize          int
	MaxRetries         int
	RetryBaseBackoffMS int
}

// PushConfigured reports whether Web Push alerts can be signed.
func (alerts AlertsConfig) PushConfigured() bool {
	return alerts.VAPIDPublicKey != "" && alerts.VAPIDPrivateKey != "" && alerts.VAPIDSubject != ""
}

func Load() (Config, error) {
	_ = godotenv.Load()

	config := Config{
		Port:      getEnv("PORT", "4000"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvInt("SMTP_PORT", 465),
			Secure:   getEnvBool("SMTP_SECURE", true),
			User:     strings.TrimSpace(os.Getenv("SMTP_USER")),
			Password: strings.TrimSpace(os.Getenv("SMTP_PASS")),
			To:       strings.TrimSpace(os.Getenv("CONTACT_TO")),
		},
		RateLimit: RateLimitConfig{
			Limit:    getEnvInt("CONTACT_RATE_LIMIT", 5),
			Window:   time.Duration(getEnvInt("CONTACT_RATE_WINDOW_SECONDS", 600)) * time.Second,
			Store:    strings.ToLower(getEnv("RATE_LIMIT_STORE", StoreMemory)),
			RedisURL: strings.TrimSpace(os.Getenv("REDIS_URL")),
		},
		Gemini: GeminiConfig{
			APIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			Model:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		},
		Alerts: AlertsConfig{
			NtfyTopicURL:       strings.TrimSpace(os.Getenv("NTFY_TOPIC_URL")),
			NtfyToken:          strings.TrimSpace(os.Getenv("NTFY_TOKEN")),
			DiscordWebhookURL:  strings.TrimSpace(os.Getenv("DISCORD_WEBHOOK_URL")),
			WebhookURL:         strings.TrimSpace(os.Getenv("ALERT_WEBHOOK_URL")),
			WebhookToken:       strings.TrimSpace(os.Getenv("ALERT_WEBHOOK_TOKEN")),
			VAPIDPublicKey:     strings.TrimSpace(os.Getenv("VAPID_PUBLIC_KEY")),
			VAPIDPrivateKey:    strings.TrimSpace(os.Getenv("VAPID_PRIVATE_KEY")),
			VAPIDSubject:       strings.TrimSpace(os.Getenv("VAPID_SUBJECT")),
			WorkerCount:        getEnvInt("ALERT_WORKER_COUNT", 2),
			QueueSize:          getEnvInt("ALERT_QUEUE_SIZE", 64),
			MaxRetries:         getEnvInt("ALERT_MAX_RETRIES", 3),
			RetryBaseBackoffMS: getEnvInt("ALERT_RETRY_BASE_BACKOFF_MS", 400),
		},
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		AdminSecret: strings.TrimSpace(os.Getenv("ADMIN_SECRET")),
	}

	if err := config.validate(); err != nil {
		return Config{}, err
	}

	if config.Alerts.WorkerCount < 1 {
		config.Alerts.WorkerCount = 1
	}
	if config.Alerts.QueueSize < 1 {
		config.Alerts.QueueSize = 16
	}
	if config.Alerts.MaxRetries < 0 {
		config.Alerts.MaxRetries = 0
	}

	return config, nil
}

func (config Config) validate() error {
	if config.RateLimit.Limit < 1 {
		return errors.New("CONTACT_RATE_LIMIT must be at least 1")
	}
	if config.RateLimit.Window <= 0 {
		return errors.New("CONTACT_RATE_WINDOW_SECONDS must be positive")
	}

	switch config.RateLimit.Store {
	case StoreMemory:
	case StoreRedis:
		if config.RateLimit.RedisURL == "" {
			return errors.New("REDIS_URL is required when RATE_LIMIT_STORE=redis")
		}
	default:
		return fmt.Errorf("unsupported RATE_LIMIT_STORE: %s", config.RateLimit.Store)
	}

	if config.SMTP.Port < 1 || config.SMTP.Port > 65535 {
		return fmt.Errorf("invalid SMTP_PORT: %d", config.SMTP.Port)
	}

	return nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch raw {
	case "":
		return fallback
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}
