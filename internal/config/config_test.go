package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Auth.LockoutThreshold != 3 {
		t.Errorf("expected lockout threshold 3, got %d", cfg.Auth.LockoutThreshold)
	}
	if cfg.Tokens.RefreshExpiry != 24*time.Hour {
		t.Errorf("expected refresh expiry 24h, got %v", cfg.Tokens.RefreshExpiry)
	}
	if cfg.JWT.AccessTokenExpiry != 15*time.Minute {
		t.Errorf("expected access expiry 15m, got %v", cfg.JWT.AccessTokenExpiry)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AUTH_LOCKOUT_THRESHOLD", "5")
	t.Setenv("TOKEN_RESET_EXPIRY", "10m")
	t.Setenv("DB_NAME", "ebok_test")

	cfg := Load()

	if cfg.Auth.LockoutThreshold != 5 {
		t.Errorf("expected lockout threshold 5, got %d", cfg.Auth.LockoutThreshold)
	}
	if cfg.Tokens.ResetExpiry != 10*time.Minute {
		t.Errorf("expected reset expiry 10m, got %v", cfg.Tokens.ResetExpiry)
	}
	if cfg.Database.DBName != "ebok_test" {
		t.Errorf("expected dbname ebok_test, got %s", cfg.Database.DBName)
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "db", Port: "5433", User: "u", Password: "p", DBName: "n", SSLMode: "require",
	}
	want := "host=db port=5433 user=u password=p dbname=n sslmode=require"
	if got := d.DSN(); got != want {
		t.Errorf("DSN mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("TOKEN_REFRESH_EXPIRY", "not-a-duration")

	cfg := Load()
	if cfg.Tokens.RefreshExpiry != 24*time.Hour {
		t.Errorf("expected fallback to 24h, got %v", cfg.Tokens.RefreshExpiry)
	}
}
