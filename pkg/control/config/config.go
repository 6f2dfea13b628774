package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the supervisor's runtime settings, loaded from environment
// variables with LINGO_CONTROL_* keys.
type Config struct {
	Addr        string
	SessionPort int

	// Worker process launch settings.
	WorkerCommand string
	WorkerArgs    []string
	WorkerDir     string

	// Preflight artifacts.
	CredentialsPath string
	EnvPath         string
	LLMKeyName      string

	// How long Start waits after spawn before concluding the worker is up.
	// A worker that fails later than this is reported Running until the
	// failure is observed by a later call.
	LivenessWindow time.Duration

	// Graceful-stop window before escalating to a hard kill.
	StopGracePeriod time.Duration

	// Settle delay after best-effort port reclamation.
	ReclaimSettle time.Duration

	// Per-stream log ring capacity. 0 keeps every line.
	LogMaxLines int

	// When the platform port-owner lookup is unavailable, fall back to
	// killing by worker executable name. Off by default; the fallback can
	// take down unrelated processes.
	AggressiveReclaim bool

	// CORS
	CORSAllowedOrigins map[string]struct{}

	// Static delivery
	StaticRoot string

	// Operational defaults
	ReadHeaderTimeout   time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("LINGO_CONTROL_ADDR", ":8000"),
		SessionPort:         envIntOr("LINGO_CONTROL_SESSION_PORT", 8765),
		WorkerCommand:       envOr("LINGO_CONTROL_WORKER_CMD", "lingo-session"),
		WorkerArgs:          splitCSV(os.Getenv("LINGO_CONTROL_WORKER_ARGS")),
		WorkerDir:           envOr("LINGO_CONTROL_WORKER_DIR", "."),
		CredentialsPath:     envOr("LINGO_CONTROL_CREDENTIALS_PATH", "creds.json"),
		EnvPath:             envOr("LINGO_CONTROL_ENV_PATH", ".env"),
		LLMKeyName:          envOr("LINGO_CONTROL_LLM_KEY_NAME", "GEMINI_API_KEY"),
		LivenessWindow:      envDurationOr("LINGO_CONTROL_LIVENESS_WINDOW", 500*time.Millisecond),
		StopGracePeriod:     envDurationOr("LINGO_CONTROL_STOP_GRACE_PERIOD", 3*time.Second),
		ReclaimSettle:       envDurationOr("LINGO_CONTROL_RECLAIM_SETTLE", time.Second),
		LogMaxLines:         envIntOr("LINGO_CONTROL_LOG_MAX_LINES", 2000),
		AggressiveReclaim:   envBoolOr("LINGO_CONTROL_AGGRESSIVE_RECLAIM", false),
		CORSAllowedOrigins:  make(map[string]struct{}),
		StaticRoot:          envOr("LINGO_CONTROL_STATIC_ROOT", "."),
		ReadHeaderTimeout:   envDurationOr("LINGO_CONTROL_READ_HEADER_TIMEOUT", 10*time.Second),
		ShutdownGracePeriod: envDurationOr("LINGO_CONTROL_SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	for _, origin := range splitCSV(os.Getenv("LINGO_CONTROL_CORS_ORIGINS")) {
		cfg.CORSAllowedOrigins[origin] = struct{}{}
	}

	if strings.TrimSpace(cfg.WorkerCommand) == "" {
		return Config{}, fmt.Errorf("LINGO_CONTROL_WORKER_CMD must not be empty")
	}
	if cfg.SessionPort <= 0 || cfg.SessionPort > 65535 {
		return Config{}, fmt.Errorf("LINGO_CONTROL_SESSION_PORT must be a valid port")
	}
	if cfg.LivenessWindow <= 0 {
		return Config{}, fmt.Errorf("LINGO_CONTROL_LIVENESS_WINDOW must be > 0")
	}
	if cfg.StopGracePeriod <= 0 {
		return Config{}, fmt.Errorf("LINGO_CONTROL_STOP_GRACE_PERIOD must be > 0")
	}
	if cfg.ReclaimSettle < 0 {
		return Config{}, fmt.Errorf("LINGO_CONTROL_RECLAIM_SETTLE must be >= 0")
	}
	if cfg.LogMaxLines < 0 {
		return Config{}, fmt.Errorf("LINGO_CONTROL_LOG_MAX_LINES must be >= 0")
	}
	if strings.TrimSpace(cfg.StaticRoot) == "" {
		return Config{}, fmt.Errorf("LINGO_CONTROL_STATIC_ROOT must not be empty")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("LINGO_CONTROL_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("LINGO_CONTROL_SHUTDOWN_GRACE_PERIOD must be > 0")
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

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
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

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
