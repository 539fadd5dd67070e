package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the interview service and the
// terminal client.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	// CacheIdleTimeout controls how long an idle session stays in the
	// in-process cache before it is evicted and reloaded from the store on
	// next access.
	CacheIdleTimeout time.Duration

	DataDir     string
	DatabaseURL string

	EngineProvider string
	QuestionBudget int

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string

	UploadMaxBytes int64

	ServerBaseURL string

	SpeechProvider string
	SpeechWSURL    string
	SpeechAPIKey   string
	SpeechLocale   string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8000"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "greenroom"),
		DataDir:          envOrDefault("APP_DATA_DIR", "data"),
		DatabaseURL:      envTrimmed("DATABASE_URL"),
		EngineProvider:   envOrDefault("ENGINE_PROVIDER", "auto"),
		QuestionBudget:   5,
		OpenAIAPIKey:     envTrimmed("OPENAI_API_KEY"),
		OpenAIBaseURL:    envOrDefault("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIModel:      envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:     envTrimmed("GEMINI_API_KEY"),
		GeminiBaseURL:    envOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiModel:      envOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		UploadMaxBytes:   2 << 20,
		ServerBaseURL:    envOrDefault("GREENROOM_SERVER_URL", "http://127.0.0.1:8000"),
		SpeechProvider:   envOrDefault("SPEECH_PROVIDER", "auto"),
		SpeechWSURL:      envTrimmed("SPEECH_WS_URL"),
		SpeechAPIKey:     envTrimmed("SPEECH_API_KEY"),
		SpeechLocale:     envOrDefault("SPEECH_LOCALE", "en-US"),
		ShutdownTimeout:  15 * time.Second,
		CacheIdleTimeout: 30 * time.Minute,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CacheIdleTimeout, err = durationFromEnv("APP_CACHE_IDLE_TIMEOUT", cfg.CacheIdleTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.QuestionBudget, err = intFromEnv("APP_QUESTION_BUDGET", cfg.QuestionBudget)
	if err != nil {
		return Config{}, err
	}
	cfg.UploadMaxBytes, err = int64FromEnv("APP_UPLOAD_MAX_BYTES", cfg.UploadMaxBytes)
	if err != nil {
		return Config{}, err
	}

	if cfg.QuestionBudget < 1 {
		return Config{}, fmt.Errorf("APP_QUESTION_BUDGET must be at least 1")
	}
	if cfg.CacheIdleTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_CACHE_IDLE_TIMEOUT must be at least 5s")
	}
	if cfg.UploadMaxBytes <= 0 {
		return Config{}, fmt.Errorf("APP_UPLOAD_MAX_BYTES must be positive")
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

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
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
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func int64FromEnv(key string, fallback int64) (int64, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}
