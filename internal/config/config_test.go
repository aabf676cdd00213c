package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("INSIGHTSPHERE_ADDR", "")
	t.Setenv("PORT", "")
	cfg := Load()
	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.Addr)
	}
	if cfg.RateLimits.Login != 5 || cfg.RateLimits.LoginWindow != 15*time.Minute {
		t.Fatalf("unexpected login limit %+v", cfg.RateLimits)
	}
	if cfg.RateLimits.Forgot != 3 || cfg.RateLimits.ForgotWindow != 30*time.Minute {
		t.Fatalf("unexpected forgot limit %+v", cfg.RateLimits)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("unexpected driver %q", cfg.DBDriver)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("INSIGHTSPHERE_ADDR", "")
	t.Setenv("CLIENT_URL", "https://blog.example.com/")
	t.Setenv("INSIGHTSPHERE_TOKEN_TTL", "2h")
	t.Setenv("INSIGHTSPHERE_BCRYPT_COST", "not-a-number")
	t.Setenv("INSIGHTSPHERE_ENV", "production")

	cfg := Load()
	if cfg.Addr != ":9000" {
		t.Fatalf("unexpected addr %q", cfg.Addr)
	}
	if cfg.ClientURL != "https://blog.example.com" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.ClientURL)
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Fatalf("unexpected ttl %s", cfg.TokenTTL)
	}
	if cfg.BcryptCost != 12 {
		t.Fatalf("bad int should fall back to default, got %d", cfg.BcryptCost)
	}
	if cfg.Development || !cfg.SecureCookies {
		t.Fatalf("production env not applied: %+v", cfg)
	}
}
