package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "STORE", "SQLITE_PATH", "DATABASE_URL", "REDIS_URL", "POLL_INTERVAL", "RATE_LIMIT_WHITELIST", "AUTO_BLOCK_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Port)
	}
	if cfg.Store != StoreMemory {
		t.Errorf("expected memory store, got %s", cfg.Store)
	}
	if cfg.PollInterval != 3*time.Second {
		t.Errorf("expected 3s poll interval, got %s", cfg.PollInterval)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development mode")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/c.db")
	t.Setenv("POLL_INTERVAL", "1500ms")
	t.Setenv("RATE_LIMIT_WHITELIST", "10.0.0.1, 192.168.0.0/16 ,")
	t.Setenv("AUTO_BLOCK_ENABLED", "true")

	cfg := Load()
	if cfg.Store != StoreSQLite || cfg.SQLitePath != "/tmp/c.db" {
		t.Errorf("unexpected store config: %s %s", cfg.Store, cfg.SQLitePath)
	}
	if cfg.PollInterval != 1500*time.Millisecond {
		t.Errorf("expected 1.5s, got %s", cfg.PollInterval)
	}
	if len(cfg.RateLimitWhitelist) != 2 || cfg.RateLimitWhitelist[1] != "192.168.0.0/16" {
		t.Errorf("unexpected whitelist: %v", cfg.RateLimitWhitelist)
	}
	if !cfg.AutoBlockEnabled {
		t.Error("expected auto block enabled")
	}
}

func TestLoadInvalidPollIntervalFallsBack(t *testing.T) {
	t.Setenv("STORE", "")
	t.Setenv("ENV", "")
	t.Setenv("POLL_INTERVAL", "soon")
	if got := Load().PollInterval; got != 3*time.Second {
		t.Errorf("expected default interval, got %s", got)
	}
}

func TestLoadPanics(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without database", map[string]string{"STORE": "postgres", "DATABASE_URL": "", "REDIS_URL": "redis://x"}},
		{"postgres without redis", map[string]string{"STORE": "postgres", "DATABASE_URL": "postgres://x", "REDIS_URL": ""}},
		{"unknown store", map[string]string{"STORE": "mongo"}},
		{"memory in production", map[string]string{"STORE": "memory", "ENV": "production"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			Load()
		})
	}
}
