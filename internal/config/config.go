package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the conversation monitoring service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	SentimentProvider   string
	SentimentURL        string
	SentimentTimeout    time.Duration
	SentimentMaxRetries int

	RiskKeywordsFile    string
	RiskMediumThreshold float64
	RiskHighThreshold   float64

	ExportDir        string
	EscalationBuffer int
	IngestQueueSize  int
	RedactPII        bool

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                 envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:         envOrDefault("APP_METRICS_NAMESPACE", "vigil"),
		AllowAnyOrigin:           false,
		SentimentProvider:        envOrDefault("SENTIMENT_PROVIDER", "auto"),
		SentimentURL:             stringsTrimSpace("SENTIMENT_URL"),
		SentimentTimeout:         5 * time.Second,
		SentimentMaxRetries:      2,
		RiskKeywordsFile:         stringsTrimSpace("RISK_KEYWORDS_FILE"),
		RiskMediumThreshold:      0.80,
		RiskHighThreshold:        0.95,
		ExportDir:                envOrDefault("APP_EXPORT_DIR", "exports"),
		EscalationBuffer:         64,
		IngestQueueSize:          256,
		RedactPII:                false,
		DatabaseURL:              stringsTrimSpace("DATABASE_URL"),
		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 30 * time.Minute,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SentimentTimeout, err = durationFromEnv("SENTIMENT_TIMEOUT", cfg.SentimentTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SentimentMaxRetries, err = intFromEnv("SENTIMENT_MAX_RETRIES", cfg.SentimentMaxRetries)
	if err != nil {
		return Config{}, err
	}
	cfg.RiskMediumThreshold, err = floatFromEnv("RISK_MEDIUM_THRESHOLD", cfg.RiskMediumThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.RiskHighThreshold, err = floatFromEnv("RISK_HIGH_THRESHOLD", cfg.RiskHighThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.EscalationBuffer, err = intFromEnv("APP_ESCALATION_BUFFER", cfg.EscalationBuffer)
	if err != nil {
		return Config{}, err
	}
	cfg.IngestQueueSize, err = intFromEnv("APP_INGEST_QUEUE_SIZE", cfg.IngestQueueSize)
	if err != nil {
		return Config{}, err
	}
	cfg.RedactPII, err = boolFromEnv("APP_REDACT_PII", cfg.RedactPII)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.SentimentMaxRetries < 0 {
		return Config{}, fmt.Errorf("SENTIMENT_MAX_RETRIES must be >= 0")
	}
	if cfg.RiskMediumThreshold <= 0 || cfg.RiskMediumThreshold >= 1 {
		return Config{}, fmt.Errorf("RISK_MEDIUM_THRESHOLD must be in (0,1)")
	}
	if cfg.RiskHighThreshold <= cfg.RiskMediumThreshold || cfg.RiskHighThreshold >= 1 {
		return Config{}, fmt.Errorf("RISK_HIGH_THRESHOLD must be in (RISK_MEDIUM_THRESHOLD,1)")
	}
	if cfg.EscalationBuffer <= 0 {
		return Config{}, fmt.Errorf("APP_ESCALATION_BUFFER must be positive")
	}
	if cfg.IngestQueueSize <= 0 {
		return Config{}, fmt.Errorf("APP_INGEST_QUEUE_SIZE must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
