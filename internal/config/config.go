// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

// Package config loads and validates server configuration via Koanf v2 with
// layered sources: built-in defaults, an optional YAML file, and environment
// variables (highest priority).
package config

import "time"

// Config is the root configuration for the realtime server.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Security      SecurityConfig      `koanf:"security"`
	Realtime      RealtimeConfig      `koanf:"realtime"`
	Store         StoreConfig         `koanf:"store"`
	NATS          NATSConfig          `koanf:"nats"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Logging       LoggingConfig       `koanf:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// Environment is "development" or "production". Production enforces the
	// stricter validation rules (secret length, explicit CORS origins).
	Environment string `koanf:"environment" validate:"oneof=development production"`

	CORSOrigins []string `koanf:"cors_origins"`

	// Rate limit tiers, requests per window.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// SecurityConfig holds token and credential settings for the connection
// gateway and the login endpoint.
type SecurityConfig struct {
	// JWTSecret signs bearer tokens (HS256). Minimum 32 characters in
	// production.
	JWTSecret string `koanf:"jwt_secret"`

	// TokenTTL bounds how long a minted token stays valid.
	TokenTTL time.Duration `koanf:"token_ttl"`

	// HandshakeTimeout bounds token resolution during the socket handshake.
	HandshakeTimeout time.Duration `koanf:"handshake_timeout"`

	// AdminUsername / AdminPasswordHash gate the login endpoint that mints
	// admin tokens. The hash is a bcrypt digest, never a plaintext password.
	AdminUsername     string `koanf:"admin_username"`
	AdminPasswordHash string `koanf:"admin_password_hash"`
}

// RealtimeConfig tunes the websocket layer.
type RealtimeConfig struct {
	// SendBuffer is the per-connection outbound queue length. A connection
	// that cannot drain its queue is dropped rather than blocking fan-out.
	SendBuffer int `koanf:"send_buffer" validate:"min=1"`

	WriteWait      time.Duration `koanf:"write_wait"`
	PongWait       time.Duration `koanf:"pong_wait"`
	MaxMessageSize int64         `koanf:"max_message_size" validate:"min=512"`

	// EventsPerSecond / EventBurst bound inbound events per connection
	// (flood protection for typing/message spam).
	EventsPerSecond float64 `koanf:"events_per_second" validate:"min=1"`
	EventBurst      int     `koanf:"event_burst" validate:"min=1"`
}

// StoreConfig holds BadgerDB persistence settings.
type StoreConfig struct {
	// Dir is the badger data directory. Empty means in-memory (tests).
	Dir string `koanf:"dir"`

	// NotificationRetention is the TTL applied to notification keys.
	// Zero disables expiry.
	NotificationRetention time.Duration `koanf:"notification_retention"`
}

// NATSConfig holds the event ingestion bus settings. Backend services publish
// notification events to NATS; the realtime server subscribes and fans out.
type NATSConfig struct {
	Enabled bool `koanf:"enabled"`

	// EmbeddedServer runs an in-process NATS server for single-instance
	// deployments; URL is used when false.
	EmbeddedServer bool   `koanf:"embedded_server"`
	URL            string `koanf:"url"`
	StoreDir       string `koanf:"store_dir"`

	// SubjectPrefix is prepended to all subjects, default "taskflow".
	SubjectPrefix string `koanf:"subject_prefix"`

	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// NotificationsConfig tunes fan-out behavior.
type NotificationsConfig struct {
	// RecentDefaultLimit and RecentMaxLimit bound getRecent queries.
	RecentDefaultLimit int `koanf:"recent_default_limit" validate:"min=1"`
	RecentMaxLimit     int `koanf:"recent_max_limit" validate:"min=1"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied. Defaults are
// loaded first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              4001,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			Environment:       "development",
			CORSOrigins:       []string{},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Security: SecurityConfig{
			JWTSecret:        "",
			TokenTTL:         24 * time.Hour,
			HandshakeTimeout: 5 * time.Second,
		},
		Realtime: RealtimeConfig{
			SendBuffer:      256,
			WriteWait:       10 * time.Second,
			PongWait:        60 * time.Second,
			MaxMessageSize:  64 * 1024,
			EventsPerSecond: 20,
			EventBurst:      40,
		},
		Store: StoreConfig{
			Dir:                   "/data/taskflow-realtime",
			NotificationRetention: 90 * 24 * time.Hour,
		},
		NATS: NATSConfig{
			Enabled:        true,
			EmbeddedServer: true,
			URL:            "nats://127.0.0.1:4222",
			StoreDir:       "/data/nats",
			SubjectPrefix:  "taskflow",
			ReconnectWait:  2 * time.Second,
		},
		Notifications: NotificationsConfig{
			RecentDefaultLimit: 20,
			RecentMaxLimit:     100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// PingPeriod derives the ping interval from the pong wait, matching the
// gorilla/websocket chat example convention.
func (c RealtimeConfig) PingPeriod() time.Duration {
	return (c.PongWait * 9) / 10
}
