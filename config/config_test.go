package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE", "memory")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOCK_TTL_SECONDS", "")
	t.Setenv("RATE_LIMIT_RPS", "")
	t.Setenv("RATE_LIMIT_BURST", "")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("R2_ACCOUNT_ID", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerPort != 8080 || cfg.LogLevel != slog.LevelInfo || cfg.LockTTL != 30*time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.RateLimitRPS != 10 || cfg.RateLimitBurst != 20 {
		t.Fatalf("unexpected rate limit %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if len(cfg.CORSAllowOrigins) != 2 || cfg.CORSAllowOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowOrigins)
	}
	if cfg.ArchiveEnabled() {
		t.Fatal("archive enabled without R2 settings")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without url", map[string]string{"STORE": "postgres", "DATABASE_URL": ""}},
		{"unknown store", map[string]string{"STORE": "sqlite"}},
		{"missing secret", map[string]string{"JWT_SECRET_KEY": ""}},
		{"bad port", map[string]string{"SERVER_PORT": "70000"}},
		{"bad level", map[string]string{"LOG_LEVEL": "loud"}},
		{"bad ttl", map[string]string{"LOCK_TTL_SECONDS": "-1"}},
		{"bad burst", map[string]string{"RATE_LIMIT_BURST": "x"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("STORE", "memory")
			t.Setenv("JWT_SECRET_KEY", "secret")
			t.Setenv("SERVER_PORT", "8080")
			t.Setenv("LOG_LEVEL", "info")
			t.Setenv("LOCK_TTL_SECONDS", "30")
			t.Setenv("RATE_LIMIT_RPS", "10")
			t.Setenv("RATE_LIMIT_BURST", "20")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
