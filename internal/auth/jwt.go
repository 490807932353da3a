// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

// Package auth provides JWT token management and the bearer-token checks used
// by both the REST middleware and the websocket connection gateway.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/config"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/models"
)

// Sentinel errors for token validation.
var (
	ErrTokenMissing = errors.New("auth: token missing")
	ErrTokenInvalid = errors.New("auth: token invalid")
	ErrTokenExpired = errors.New("auth: token expired")
)

// Claims are the JWT claims carried by TaskFlow bearer tokens. Subject holds
// the principal id.
type Claims struct {
	Name string      `json:"name,omitempty"`
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager creates and validates HS256-signed bearer tokens.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTManager builds a manager from the security config. The secret must be
// non-empty; production length rules are enforced at config validation time.
func NewJWTManager(cfg *config.SecurityConfig) (*JWTManager, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but was empty")
	}
	return &JWTManager{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL,
	}, nil
}

// GenerateToken mints a signed token for the given principal.
func (m *JWTManager) GenerateToken(p models.Principal) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.ttl)

	claims := &Claims{
		Name: p.Name,
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken verifies signature, algorithm and time claims, and resolves
// the token to a Principal. Rejecting non-HMAC algorithms prevents algorithm
// confusion attacks.
func (m *JWTManager) ValidateToken(tokenString string) (models.Principal, error) {
	if tokenString == "" {
		return models.Principal{}, ErrTokenMissing
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Principal{}, ErrTokenExpired
		}
		return models.Principal{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return models.Principal{}, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return models.Principal{}, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	role := claims.Role
	if !models.ValidRole(role) {
		role = models.RoleUser
	}

	return models.Principal{
		ID:   claims.Subject,
		Name: claims.Name,
		Role: role,
	}, nil
}
