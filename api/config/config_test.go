package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Clear any env vars that would override defaults
	for _, k := range []string{
		"MODPANEL_DEV_PORT", "MODPANEL_DEV_BIND", "MODPANEL_DEV_ORIGINS",
		"MODPANEL_DEV_ADMIN_USER", "MODPANEL_DEV_ADMIN_PASSWORD", "MODPANEL_DEV_ONLINE_WINDOW",
		"MODPANEL_DEV_S3_ENDPOINT", "MODPANEL_DEV_S3_BUCKET", "MODPANEL_DEV_RETENTION", "MODPANEL_DEV_HOUSEKEEPING",
	} {
		os.Unsetenv(k)
	}

	cfg := Load()

	if cfg.Port != "5000" {
		t.Errorf("Port = %q, want 5000", cfg.Port)
	}
	if cfg.BindAddr != "127.0.0.1" {
		t.Errorf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.AdminUser != "admin" || cfg.AdminPassword != "admin123" {
		t.Errorf("admin = %q/%q", cfg.AdminUser, cfg.AdminPassword)
	}
	if cfg.OnlineWindow != 5*time.Minute {
		t.Errorf("OnlineWindow = %v, want 5m", cfg.OnlineWindow)
	}
	if cfg.S3Endpoint != "" || cfg.S3Bucket != "modpanel-uploads" {
		t.Errorf("S3 = %q/%q", cfg.S3Endpoint, cfg.S3Bucket)
	}
	if cfg.Retention != 24*time.Hour || cfg.HousekeepingSchedule != "@every 1h" {
		t.Errorf("housekeeping = %v %q", cfg.Retention, cfg.HousekeepingSchedule)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MODPANEL_DEV_PORT", "9999")
	t.Setenv("MODPANEL_DEV_ORIGINS", "http://panel.local")
	t.Setenv("MODPANEL_DEV_ADMIN_USER", "root")
	t.Setenv("MODPANEL_DEV_ONLINE_WINDOW", "30s")
	t.Setenv("MODPANEL_DEV_S3_ENDPOINT", "localhost:9000")
	t.Setenv("MODPANEL_DEV_S3_SSL", "true")

	cfg := Load()

	if cfg.Port != "9999" {
		t.Errorf("Port = %q, want 9999", cfg.Port)
	}
	if cfg.AllowedOrigins != "http://panel.local" {
		t.Errorf("AllowedOrigins = %q", cfg.AllowedOrigins)
	}
	if cfg.AdminUser != "root" {
		t.Errorf("AdminUser = %q", cfg.AdminUser)
	}
	if cfg.OnlineWindow != 30*time.Second {
		t.Errorf("OnlineWindow = %v, want 30s", cfg.OnlineWindow)
	}
	if cfg.S3Endpoint != "localhost:9000" || !cfg.S3UseSSL {
		t.Errorf("S3 = %q ssl=%v", cfg.S3Endpoint, cfg.S3UseSSL)
	}
}

func TestBadDurationFallsBack(t *testing.T) {
	t.Setenv("MODPANEL_DEV_ONLINE_WINDOW", "soon")
	if got := Load().OnlineWindow; got != 5*time.Minute {
		t.Errorf("OnlineWindow = %v, want fallback 5m", got)
	}
}
