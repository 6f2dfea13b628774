// Package config loads the worker's runtime settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds one session worker's settings, loaded from environment
// variables. The language pair and the API key name match what the
// supervisor's preflight checks verify before spawning.
type Config struct {
	Addr string

	SourceLanguage string
	TargetLanguage string

	// Translation backend.
	APIKey string
	Model  string

	// Transport behavior.
	IdleTimeout     time.Duration
	MaxMessageBytes int64
	SampleRate      int

	// Wind-down pause between interrupt and end.
	GracePeriod time.Duration

	// Optional Postgres DSN for transcript persistence. Empty keeps the
	// transcript in memory only.
	TranscriptDSN string

	QueueDepth int
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:            envOr("LINGO_SESSION_ADDR", ":8765"),
		SourceLanguage:  envOr("LINGO_SOURCE_LANGUAGE", "Bengali"),
		TargetLanguage:  envOr("LINGO_TARGET_LANGUAGE", "English"),
		APIKey:          strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:           envOr("LINGO_SESSION_MODEL", "gemini-2.0-flash"),
		IdleTimeout:     envDurationOr("LINGO_SESSION_IDLE_TIMEOUT", 3*time.Minute),
		MaxMessageBytes: int64(envIntOr("LINGO_SESSION_MAX_MESSAGE_BYTES", 1<<20)),
		SampleRate:      envIntOr("LINGO_SESSION_SAMPLE_RATE", 16000),
		GracePeriod:     envDurationOr("LINGO_SESSION_GRACE_PERIOD", 3*time.Second),
		TranscriptDSN:   strings.TrimSpace(os.Getenv("LINGO_SESSION_TRANSCRIPT_DSN")),
		QueueDepth:      envIntOr("LINGO_SESSION_QUEUE_DEPTH", 64),
	}

	if cfg.SourceLanguage == cfg.TargetLanguage {
		return Config{}, fmt.Errorf("source and target language must differ")
	}
	if cfg.IdleTimeout <= 0 {
		return Config{}, fmt.Errorf("LINGO_SESSION_IDLE_TIMEOUT must be > 0")
	}
	if cfg.GracePeriod <= 0 {
		return Config{}, fmt.Errorf("LINGO_SESSION_GRACE_PERIOD must be > 0")
	}
	if cfg.SampleRate <= 0 {
		return Config{}, fmt.Errorf("LINGO_SESSION_SAMPLE_RATE must be > 0")
	}
	if cfg.QueueDepth <= 0 {
		return Config{}, fmt.Errorf("LINGO_SESSION_QUEUE_DEPTH must be > 0")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
