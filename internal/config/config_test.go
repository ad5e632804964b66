package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: "9090"
database:
  type: sqlite
  path: /tmp/w.db
auth:
  jwt_secret: from-file
monitor:
  check_interval: "*/5 * * * *"
notifications:
  email:
    enabled: true
    to: [ops@example.com]
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DB_PATH", "/tmp/override.db")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("env should override the file, got %q", cfg.Database.Path)
	}
	if cfg.Monitor.CheckInterval != "*/5 * * * *" {
		t.Errorf("check interval = %q", cfg.Monitor.CheckInterval)
	}
	if !cfg.Notifications.Email.Enabled || len(cfg.Notifications.Email.To) != 1 {
		t.Errorf("email config not loaded: %+v", cfg.Notifications.Email)
	}
	if cfg.Notifications.WhatsApp.CountryCode != "60" {
		t.Errorf("defaults should survive a partial file, got %q", cfg.Notifications.WhatsApp.CountryCode)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Auth.JWTSecret != "from-env" || cfg.Database.Type != "sqlite" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error without a JWT secret")
	}
}

func TestLoadConfigDefaultSecret(t *testing.T) {
	tests := []struct {
		mode, secret string
		wantErr      bool
	}{
		{"debug", DefaultJWTSecret, false},
		{"release", DefaultJWTSecret, true},
		{"release", "a-real-secret", false},
	}
	for _, tt := range tests {
		t.Run(tt.mode+"/"+tt.secret, func(t *testing.T) {
			t.Setenv("GIN_MODE", tt.mode)
			t.Setenv("JWT_SECRET", tt.secret)
			cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadConfig error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && cfg.UsesDefaultSecret() != (tt.secret == DefaultJWTSecret) {
				t.Errorf("UsesDefaultSecret = %v", cfg.UsesDefaultSecret())
			}
		})
	}
}
