package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TZ", "UTC")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017/mentorship?retryWrites=true")
	t.Setenv("BACKEND_URL", "http://backend.local/api/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.MongoDB != "mentorship" {
		t.Fatalf("expected db from uri, got %q", cfg.MongoDB)
	}
	if cfg.BackendURL != "http://backend.local/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.BackendURL)
	}
	if cfg.PacingConnecting != 1500*time.Millisecond || cfg.PacingProcessing != 2*time.Second || cfg.PacingVerified != time.Second {
		t.Fatalf("unexpected pacing defaults: %v %v %v", cfg.PacingConnecting, cfg.PacingProcessing, cfg.PacingVerified)
	}
	if cfg.WizardTTL != 30*time.Minute || cfg.CacheTTL() != 30*time.Second {
		t.Fatalf("unexpected ttl defaults: %v %v", cfg.WizardTTL, cfg.CacheTTL())
	}
	if cfg.LogLevel != slog.LevelInfo || cfg.OtelEnabled {
		t.Fatalf("unexpected ambient defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TZ", "UTC")
	t.Setenv("PACING_CONNECTING", "0")
	t.Setenv("PACING_PROCESSING", "250ms")
	t.Setenv("WIZARD_TTL_MINUTES", "5")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MONGO_DB", "explicit")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.PacingConnecting != 0 || cfg.PacingProcessing != 250*time.Millisecond {
		t.Fatalf("unexpected pacing: %v %v", cfg.PacingConnecting, cfg.PacingProcessing)
	}
	if cfg.WizardTTL != 5*time.Minute || cfg.LogLevel != slog.LevelDebug || cfg.MongoDB != "explicit" {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"BACKEND_URL":         "not a url",
		"RATE_LIMIT_SUBMIT":   "-1",
		"OTEL_SAMPLING_RATIO": "2",
		"LOG_LEVEL":           "loud",
		"TZ":                  "Mars/Olympus",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			if key != "TZ" {
				t.Setenv("TZ", "UTC")
			}
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}
