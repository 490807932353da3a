// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	// Server defaults
	if cfg.Server.Port != 4001 {
		t.Errorf("Server.Port = %d, want 4001", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Environment != "development" {
		t.Errorf("Server.Environment = %q, want development", cfg.Server.Environment)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 10s", cfg.Server.ShutdownTimeout)
	}

	// Security defaults (secret intentionally empty - required field)
	if cfg.Security.JWTSecret != "" {
		t.Errorf("Security.JWTSecret should be empty by default, got %q", cfg.Security.JWTSecret)
	}
	if cfg.Security.TokenTTL != 24*time.Hour {
		t.Errorf("Security.TokenTTL = %v, want 24h", cfg.Security.TokenTTL)
	}

	// Realtime defaults
	if cfg.Realtime.SendBuffer != 256 {
		t.Errorf("Realtime.SendBuffer = %d, want 256", cfg.Realtime.SendBuffer)
	}
	if cfg.Realtime.PongWait != 60*time.Second {
		t.Errorf("Realtime.PongWait = %v, want 60s", cfg.Realtime.PongWait)
	}
	if cfg.Realtime.PingPeriod() >= cfg.Realtime.PongWait {
		t.Errorf("PingPeriod() = %v must be shorter than PongWait %v",
			cfg.Realtime.PingPeriod(), cfg.Realtime.PongWait)
	}

	// NATS defaults (enabled, embedded)
	if cfg.NATS.Enabled != true {
		t.Error("NATS.Enabled should be true by default")
	}
	if cfg.NATS.EmbeddedServer != true {
		t.Error("NATS.EmbeddedServer should be true by default")
	}
	if cfg.NATS.URL != "nats://127.0.0.1:4222" {
		t.Errorf("NATS.URL = %q, want nats://127.0.0.1:4222", cfg.NATS.URL)
	}
	if cfg.NATS.SubjectPrefix != "taskflow" {
		t.Errorf("NATS.SubjectPrefix = %q, want taskflow", cfg.NATS.SubjectPrefix)
	}

	// Store defaults
	if cfg.Store.Dir != "/data/taskflow-realtime" {
		t.Errorf("Store.Dir = %q, want /data/taskflow-realtime", cfg.Store.Dir)
	}
	if cfg.Store.NotificationRetention != 90*24*time.Hour {
		t.Errorf("Store.NotificationRetention = %v, want 2160h", cfg.Store.NotificationRetention)
	}

	// Notification query limits
	if cfg.Notifications.RecentDefaultLimit != 20 {
		t.Errorf("Notifications.RecentDefaultLimit = %d, want 20", cfg.Notifications.RecentDefaultLimit)
	}
	if cfg.Notifications.RecentMaxLimit != 100 {
		t.Errorf("Notifications.RecentMaxLimit = %d, want 100", cfg.Notifications.RecentMaxLimit)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"JWT_SECRET", "security.jwt_secret"},
		{"jwt_secret", "security.jwt_secret"},
		{"HTTP_PORT", "server.port"},
		{"NATS_URL", "nats.url"},
		{"WS_SEND_BUFFER", "realtime.send_buffer"},
		{"LOG_LEVEL", "logging.level"},
		{"PATH", ""},
		{"HOME", ""},
		{"RANDOM_UNRELATED_VAR", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := envTransformFunc(tt.input); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "env_secret_long_enough_for_development_use")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("NATS_ENABLED", "false")
	t.Setenv("CORS_ORIGINS", "https://app.example.com, https://admin.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Security.JWTSecret != "env_secret_long_enough_for_development_use" {
		t.Errorf("Security.JWTSecret = %q, want env value", cfg.Security.JWTSecret)
	}
	if cfg.NATS.Enabled {
		t.Error("NATS.Enabled should be false after env override")
	}
	if len(cfg.Server.CORSOrigins) != 2 {
		t.Fatalf("CORSOrigins = %v, want 2 entries", cfg.Server.CORSOrigins)
	}
	if cfg.Server.CORSOrigins[0] != "https://app.example.com" {
		t.Errorf("CORSOrigins[0] = %q, want trimmed origin", cfg.Server.CORSOrigins[0])
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := strings.Join([]string{
		"server:",
		"  port: 8088",
		"security:",
		"  jwt_secret: file_secret_long_enough_for_development",
		"nats:",
		"  enabled: false",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8088 {
		t.Errorf("Server.Port = %d, want 8088 from file", cfg.Server.Port)
	}
	if cfg.Security.JWTSecret != "file_secret_long_enough_for_development" {
		t.Errorf("Security.JWTSecret = %q, want file value", cfg.Security.JWTSecret)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Security.JWTSecret = "development_secret_value_0123456789abcdef"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid development config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing jwt secret",
			mutate:  func(c *Config) { c.Security.JWTSecret = "" },
			wantErr: "JWT_SECRET",
		},
		{
			name: "short secret in production",
			mutate: func(c *Config) {
				c.Server.Environment = "production"
				c.Server.CORSOrigins = []string{"https://app.example.com"}
				c.Security.JWTSecret = "too_short"
			},
			wantErr: "32 characters",
		},
		{
			name: "production requires explicit cors origins",
			mutate: func(c *Config) {
				c.Server.Environment = "production"
			},
			wantErr: "CORS_ORIGINS",
		},
		{
			name:    "invalid environment",
			mutate:  func(c *Config) { c.Server.Environment = "staging" },
			wantErr: "Environment",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "Port",
		},
		{
			name: "external nats requires url",
			mutate: func(c *Config) {
				c.NATS.EmbeddedServer = false
				c.NATS.URL = ""
			},
			wantErr: "NATS_URL",
		},
		{
			name:    "empty subject prefix",
			mutate:  func(c *Config) { c.NATS.SubjectPrefix = "" },
			wantErr: "NATS_SUBJECT_PREFIX",
		},
		{
			name: "ping period must beat pong wait",
			mutate: func(c *Config) {
				c.Realtime.PongWait = 0
			},
			wantErr: "WS_WRITE_WAIT and WS_PONG_WAIT",
		},
		{
			name: "recent default over max",
			mutate: func(c *Config) {
				c.Notifications.RecentDefaultLimit = 500
			},
			wantErr: "RECENT_DEFAULT_LIMIT",
		},
		{
			name: "admin username without hash",
			mutate: func(c *Config) {
				c.Security.AdminUsername = "admin"
			},
			wantErr: "ADMIN_PASSWORD_HASH",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}
