// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package config

import (
	"fmt"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/validation"
)

// Validate checks that required configuration is present and valid.
// Struct tags cover the range checks; the per-section methods hold the
// cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	if err := c.validateRealtime(); err != nil {
		return err
	}
	return c.validateNotifications()
}

// validateSecurity enforces the production secret rules.
func (c *Config) validateSecurity() error {
	production := c.Server.Environment == "production"

	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if production && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	if production && len(c.Server.CORSOrigins) == 0 {
		return fmt.Errorf("CORS_ORIGINS must be set explicitly in production")
	}
	if c.Security.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.Security.HandshakeTimeout <= 0 {
		return fmt.Errorf("HANDSHAKE_TIMEOUT must be positive")
	}
	if c.Security.AdminUsername != "" && c.Security.AdminPasswordHash == "" {
		return fmt.Errorf("ADMIN_PASSWORD_HASH is required when ADMIN_USERNAME is set")
	}
	return nil
}

// validateNATS checks bus settings when the bus is enabled.
func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if !c.NATS.EmbeddedServer && c.NATS.URL == "" {
		return fmt.Errorf("NATS_URL is required when NATS_EMBEDDED=false")
	}
	if c.NATS.SubjectPrefix == "" {
		return fmt.Errorf("NATS_SUBJECT_PREFIX must not be empty")
	}
	return nil
}

// validateRealtime checks websocket timing relationships.
func (c *Config) validateRealtime() error {
	if c.Realtime.WriteWait <= 0 || c.Realtime.PongWait <= 0 {
		return fmt.Errorf("WS_WRITE_WAIT and WS_PONG_WAIT must be positive")
	}
	if c.Realtime.PingPeriod() >= c.Realtime.PongWait {
		return fmt.Errorf("derived ping period must be shorter than WS_PONG_WAIT")
	}
	return nil
}

// validateNotifications checks the getRecent limits are coherent.
func (c *Config) validateNotifications() error {
	if c.Notifications.RecentDefaultLimit > c.Notifications.RecentMaxLimit {
		return fmt.Errorf("RECENT_DEFAULT_LIMIT (%d) must not exceed RECENT_MAX_LIMIT (%d)",
			c.Notifications.RecentDefaultLimit, c.Notifications.RecentMaxLimit)
	}
	return nil
}
