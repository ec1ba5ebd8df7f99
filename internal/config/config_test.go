package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Name != "helpdesk" {
		t.Errorf("app name = %q, want helpdesk", cfg.App.Name)
	}
	if cfg.App.Addr() != "0.0.0.0:8080" {
		t.Errorf("addr = %q, want 0.0.0.0:8080", cfg.App.Addr())
	}
	if cfg.Auth.AccessTokenTTLMinutes != 60 {
		t.Errorf("token ttl = %d, want 60", cfg.Auth.AccessTokenTTLMinutes)
	}
	if cfg.Announcements.BadgeTTL() != 30*time.Second {
		t.Errorf("badge ttl = %v, want 30s", cfg.Announcements.BadgeTTL())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("AUTH_BCRYPT_COST", "4")
	t.Setenv("ANNOUNCEMENT_BADGE_TTL_SECONDS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.App.Port)
	}
	if cfg.Auth.BcryptCost != 4 {
		t.Errorf("bcrypt cost = %d, want 4", cfg.Auth.BcryptCost)
	}
	if cfg.Announcements.BadgeTTL() != 0 {
		t.Errorf("badge ttl = %v, want 0 (cache disabled)", cfg.Announcements.BadgeTTL())
	}
}

func TestLoadRejectsInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")

	if _, err := Load(); err == nil {
		t.Error("expected error for invalid REDIS_DB")
	}
}
