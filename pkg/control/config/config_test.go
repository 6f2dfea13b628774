package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Addr != ":8000" {
		t.Errorf("Addr=%q", cfg.Addr)
	}
	if cfg.SessionPort != 8765 {
		t.Errorf("SessionPort=%d", cfg.SessionPort)
	}
	if cfg.LivenessWindow != 500*time.Millisecond {
		t.Errorf("LivenessWindow=%v", cfg.LivenessWindow)
	}
	if cfg.StopGracePeriod != 3*time.Second {
		t.Errorf("StopGracePeriod=%v", cfg.StopGracePeriod)
	}
	if cfg.LogMaxLines != 2000 {
		t.Errorf("LogMaxLines=%d", cfg.LogMaxLines)
	}
	if cfg.AggressiveReclaim {
		t.Error("AggressiveReclaim must default to off")
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("LINGO_CONTROL_SESSION_PORT", "9100")
	t.Setenv("LINGO_CONTROL_LIVENESS_WINDOW", "250ms")
	t.Setenv("LINGO_CONTROL_WORKER_ARGS", "--verbose, --lang=bn")
	t.Setenv("LINGO_CONTROL_CORS_ORIGINS", "http://localhost:3000")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.SessionPort != 9100 {
		t.Errorf("SessionPort=%d", cfg.SessionPort)
	}
	if cfg.LivenessWindow != 250*time.Millisecond {
		t.Errorf("LivenessWindow=%v", cfg.LivenessWindow)
	}
	if len(cfg.WorkerArgs) != 2 || cfg.WorkerArgs[1] != "--lang=bn" {
		t.Errorf("WorkerArgs=%v", cfg.WorkerArgs)
	}
	if _, ok := cfg.CORSAllowedOrigins["http://localhost:3000"]; !ok {
		t.Errorf("CORSAllowedOrigins=%v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadFromEnv_RejectsInvalid(t *testing.T) {
	t.Setenv("LINGO_CONTROL_SESSION_PORT", "70000")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestLoadFromEnv_RejectsNonPositiveLiveness(t *testing.T) {
	t.Setenv("LINGO_CONTROL_LIVENESS_WINDOW", "-1s")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error for negative liveness window")
	}
}
