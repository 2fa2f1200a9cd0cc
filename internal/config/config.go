package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultGeminiAPIURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel  = "gemini-2.5-flash-lite"

	TransportREST = "rest"
	TransportSDK  = "sdk"
)

// Config holds the configuration for the application.
type Config struct {
	Port          string
	DatabasePath  string
	SessionSecret string
	SessionTTL    time.Duration
	// SessionIdle is how long an unseen client keeps its in-memory plan.
	SessionIdle time.Duration
	LogLevel      string

	GeminiAPIURL    string
	GeminiModel     string
	GeminiTransport string
	// GeminiAPIKey is an optional fallback credential for the CLI and the
	// chat surface. Web clients always bring their own.
	GeminiAPIKey string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return NewFromEnv()
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	transport := strings.ToLower(envOr("GEMINI_TRANSPORT", TransportREST))
	if transport != TransportREST && transport != TransportSDK {
		return nil, fmt.Errorf("GEMINI_TRANSPORT must be %q or %q, got %q", TransportREST, TransportSDK, transport)
	}

	ttl := 30 * 24 * time.Hour
	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TTL %q: %w", v, err)
		}
		ttl = d
	}

	idle := 2 * time.Hour
	if v := os.Getenv("SESSION_IDLE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid SESSION_IDLE_TIMEOUT %q", v)
		}
		idle = d
	}

	allowed, err := parseIDList(os.Getenv("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS: %w", err)
	}

	var adminID int64
	if v := os.Getenv("ADMIN_TELEGRAM_ID"); v != "" {
		adminID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID %q: %w", v, err)
		}
	}

	return &Config{
		Port:                   envOr("PORT", "8080"),
		DatabasePath:           envOr("DATABASE_PATH", "data/diet-planner.db"),
		SessionSecret:          os.Getenv("SESSION_SECRET"),
		SessionTTL:             ttl,
		SessionIdle:            idle,
		LogLevel:               envOr("LOG_LEVEL", "info"),
		GeminiAPIURL:           strings.TrimRight(envOr("GEMINI_API_URL", DefaultGeminiAPIURL), "/"),
		GeminiModel:            envOr("GEMINI_MODEL", DefaultGeminiModel),
		GeminiTransport:        transport,
		GeminiAPIKey:           strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		TelegramBotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:     os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserIDs: allowed,
		AdminTelegramID:        adminID,
	}, nil
}

// RequireServer checks the settings the web server cannot run without.
func (c *Config) RequireServer() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET environment variable not set")
	}
	return nil
}

// RequireTelegram checks the settings the chat surface cannot run without.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if c.TelegramWebhookURL == "" {
		return fmt.Errorf("TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseIDList(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
