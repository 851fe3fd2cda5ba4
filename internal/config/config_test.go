package config

import (
	"testing"
	"time"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("TX_MAX_ATTEMPTS", "5")
	t.Setenv("TX_RETRY_BACKOFF", "10ms")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("RUN_MIGRATIONS", "false")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Fatalf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.TxMaxAttempts != 5 || cfg.TxRetryBackoff != 10*time.Millisecond {
		t.Fatalf("unexpected tx settings: %d %s", cfg.TxMaxAttempts, cfg.TxRetryBackoff)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	if cfg.RunMigrations {
		t.Fatal("expected migrations disabled")
	}
}

func TestLoadFallsBackOnGarbage(t *testing.T) {
	t.Setenv("TX_MAX_ATTEMPTS", "many")
	t.Setenv("JWT_ACCESS_TTL", "soon")

	cfg := Load()

	if cfg.TxMaxAttempts != 3 {
		t.Fatalf("expected default attempts 3, got %d", cfg.TxMaxAttempts)
	}
	if cfg.JWTAccessTTL != 15*time.Minute {
		t.Fatalf("expected default ttl, got %s", cfg.JWTAccessTTL)
	}
}
