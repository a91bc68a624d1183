package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("default port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Database.DBName != "campusmind" {
		t.Errorf("default dbname = %q", cfg.Database.DBName)
	}
	if cfg.JWT.SocketTokenExpiration != "60s" {
		t.Errorf("default socket token expiration = %q, want 60s", cfg.JWT.SocketTokenExpiration)
	}
	if cfg.Chat.MaxMessageLength != 2000 {
		t.Errorf("default max message length = %d, want 2000", cfg.Chat.MaxMessageLength)
	}
	if cfg.Cache.Enabled {
		t.Error("cache should be disabled by default")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	path := writeConfigFile(t, `
server:
  port: "9090"
chat:
  max_message_length: 500
logging:
  level: debug
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Chat.MaxMessageLength != 500 {
		t.Errorf("max message length = %d, want 500", cfg.Chat.MaxMessageLength)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
	// Untouched sections keep their defaults
	if cfg.Database.Port != "5432" {
		t.Errorf("database port = %q, want default 5432", cfg.Database.Port)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "7777")
	t.Setenv("CACHE_ENABLED", "true")
	t.Setenv("CACHE_ADDRESS", "valkey:6379")

	path := writeConfigFile(t, `
server:
  port: "9090"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.Port != "7777" {
		t.Errorf("port = %q, env must win over file", cfg.Server.Port)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Address != "valkey:6379" {
		t.Errorf("cache config = %+v, want enabled at valkey:6379", cfg.Cache)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing jwt secret",
			env:  map[string]string{},
		},
		{
			name: "malformed token expiration",
			env: map[string]string{
				"JWT_SECRET":                  "test-secret",
				"JWT_SOCKET_TOKEN_EXPIRATION": "sixty seconds",
			},
		},
		{
			name: "cache enabled without address",
			env: map[string]string{
				"JWT_SECRET":    "test-secret",
				"CACHE_ENABLED": "true",
				"CACHE_ADDRESS": "",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv("JWT_SECRET")
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
