package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("VERIFY_POLL_INTERVAL", "")
	t.Setenv("VERIFY_POLL_INTERVAL_SECONDS", "")
	t.Setenv("RECOVERY_RATE_LIMIT", "")

	cfg := Load()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default HTTP_ADDR, got %s", cfg.HTTPAddr)
	}
	if cfg.VerifyPollInterval != 3*time.Second {
		t.Fatalf("expected default poll interval 3s, got %s", cfg.VerifyPollInterval)
	}
	if cfg.RecoveryRateLimit != 10 {
		t.Fatalf("expected default recovery rate limit 10, got %d", cfg.RecoveryRateLimit)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":18080")
	t.Setenv("API_BASE_URL", "http://api.test:3000")
	t.Setenv("REDIS_ADDR", "127.0.0.1:6379")
	t.Setenv("SESSION_CACHE_TTL", "45s")
	t.Setenv("VERIFY_POLL_INTERVAL", "5s")
	t.Setenv("VERIFY_REDIRECT_DELAY", "2s")
	t.Setenv("RECOVERY_RATE_LIMIT", "3")
	t.Setenv("MATRICULA_MIN_LEN", "5")
	t.Setenv("MATRICULA_PREFIX", "1")
	t.Setenv("MATRICULA_SUFFIX", "3")

	cfg := Load()
	if cfg.HTTPAddr != ":18080" {
		t.Fatalf("expected HTTP_ADDR override, got %s", cfg.HTTPAddr)
	}
	if cfg.APIBaseURL != "http://api.test:3000" {
		t.Fatalf("expected API_BASE_URL override, got %s", cfg.APIBaseURL)
	}
	if cfg.RedisAddr != "127.0.0.1:6379" {
		t.Fatalf("expected REDIS_ADDR override, got %s", cfg.RedisAddr)
	}
	if cfg.SessionCacheTTL != 45*time.Second {
		t.Fatalf("expected SESSION_CACHE_TTL 45s, got %s", cfg.SessionCacheTTL)
	}
	if cfg.VerifyPollInterval != 5*time.Second {
		t.Fatalf("expected VERIFY_POLL_INTERVAL 5s, got %s", cfg.VerifyPollInterval)
	}
	if cfg.VerifyRedirectDelay != 2*time.Second {
		t.Fatalf("expected VERIFY_REDIRECT_DELAY 2s, got %s", cfg.VerifyRedirectDelay)
	}
	if cfg.RecoveryRateLimit != 3 {
		t.Fatalf("expected RECOVERY_RATE_LIMIT 3, got %d", cfg.RecoveryRateLimit)
	}
	if cfg.MatriculaMinLen != 5 {
		t.Fatalf("expected MATRICULA_MIN_LEN 5, got %d", cfg.MatriculaMinLen)
	}
	if cfg.MatriculaPrefix != "1" || cfg.MatriculaSuffix != "3" {
		t.Fatalf("expected matricula boundary overrides, got %q %q", cfg.MatriculaPrefix, cfg.MatriculaSuffix)
	}
}

func TestGetenvDurationSecondsFallback(t *testing.T) {
	t.Setenv("VERIFY_POLL_INTERVAL", "")
	t.Setenv("VERIFY_POLL_INTERVAL_SECONDS", "7")
	cfg := Load()
	if cfg.VerifyPollInterval != 7*time.Second {
		t.Fatalf("expected seconds fallback 7s, got %s", cfg.VerifyPollInterval)
	}
}
