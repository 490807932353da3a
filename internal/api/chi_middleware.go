// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

// Package api provides the HTTP surface: the REST boundary contracts, the
// websocket upgrade endpoints and the operational endpoints (health,
// metrics), routed with Chi.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/config"
)

// ChiMiddleware builds the CORS and rate-limit middleware from server
// configuration, using the hardened chi ecosystem implementations.
type ChiMiddleware struct {
	cfg  *config.ServerConfig
	cors func(http.Handler) http.Handler
}

// NewChiMiddleware creates the middleware factory. An empty origin list
// allows all origins; production config validation requires explicit origins.
func NewChiMiddleware(cfg *config.ServerConfig) *ChiMiddleware {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           86400,
	})

	return &ChiMiddleware{cfg: cfg, cors: corsHandler}
}

// CORS returns the CORS middleware; global so OPTIONS preflight always works.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit is the standard per-IP limit for API endpoints.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	return m.limit(m.cfg.RateLimitRequests, m.cfg.RateLimitWindow)
}

// RateLimitLogin is the strict limit on the login endpoint, brute force
// prevention: 5 attempts per 5 minutes per IP.
func (m *ChiMiddleware) RateLimitLogin() func(http.Handler) http.Handler {
	return m.limit(5, 5*time.Minute)
}

// RateLimitHealth is permissive so monitoring can poll frequently.
func (m *ChiMiddleware) RateLimitHealth() func(http.Handler) http.Handler {
	return m.limit(1000, time.Minute)
}

func (m *ChiMiddleware) limit(requests int, window time.Duration) func(http.Handler) http.Handler {
	if m.cfg.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(requests, window, httprate.WithKeyFuncs(httprate.KeyByIP))
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's shape.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}
