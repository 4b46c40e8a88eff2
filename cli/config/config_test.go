package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points the config search and .env lookup at an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseURL != "http://localhost:5000" {
		t.Errorf("BaseURL = %q, want http://localhost:5000", cfg.BaseURL)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.NotifyDelay != 5*time.Second {
		t.Errorf("NotifyDelay = %v, want 5s", cfg.NotifyDelay)
	}
	if cfg.StatusInterval != time.Minute {
		t.Errorf("StatusInterval = %v, want 1m", cfg.StatusInterval)
	}
	if cfg.LogLevel != "info" || !cfg.Keyring {
		t.Errorf("LogLevel = %q, Keyring = %v", cfg.LogLevel, cfg.Keyring)
	}
	if filepath.Dir(filepath.Dir(cfg.LogFile)) != filepath.Join(dir, "cache") {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
	if cfg.ConfigFileUsed() != "" {
		t.Errorf("ConfigFileUsed = %q, want none", cfg.ConfigFileUsed())
	}
}

func TestLoadProjectFile(t *testing.T) {
	isolate(t)
	if err := os.WriteFile("modpanel.yaml", []byte("base_url: http://panel.local/\ntimeout: 5s\nkeyring: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseURL != "http://panel.local" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.BaseURL)
	}
	if cfg.Timeout != 5*time.Second || cfg.Keyring {
		t.Errorf("Timeout = %v, Keyring = %v", cfg.Timeout, cfg.Keyring)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("base_url: http://from-file\nstatus_interval: 10s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MODPANEL_BASE_URL", "http://from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseURL != "http://from-env" {
		t.Errorf("BaseURL = %q, want env value", cfg.BaseURL)
	}
	if cfg.StatusInterval != 10*time.Second {
		t.Errorf("StatusInterval = %v, want 10s", cfg.StatusInterval)
	}
}

func TestDotEnv(t *testing.T) {
	isolate(t)
	if err := os.WriteFile(".env", []byte("MODPANEL_LOG_LEVEL=debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("MODPANEL_LOG_LEVEL") })

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestMissingExplicitFile(t *testing.T) {
	isolate(t)
	if _, err := Load("nope.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestInvalidTimeout(t *testing.T) {
	isolate(t)
	t.Setenv("MODPANEL_TIMEOUT", "0s")
	if _, err := Load(""); err == nil {
		t.Error("expected error for zero timeout")
	}
}

func TestSetOverride(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Set(BaseURLKey, "http://flag:9000/")
	if cfg.BaseURL != "http://flag:9000" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
}
