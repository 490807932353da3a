// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package realtime

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/auth"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/config"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/logging"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/metrics"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/models"
)

// Gateway authenticates websocket handshakes for one namespace and admits
// connections into the hub. Rejections happen before the upgrade completes,
// so an unauthenticated client observes a connection error and never a
// mid-session event.
type Gateway struct {
	hub      *Hub
	jwt      *auth.JWTManager
	upgrader websocket.Upgrader
	timeout  time.Duration
}

// NewGateway builds a gateway in front of the given hub. allowedOrigins
// mirrors the CORS configuration; an empty list allows all origins
// (development mode).
func NewGateway(hub *Hub, jwt *auth.JWTManager, sec *config.SecurityConfig, allowedOrigins []string) *Gateway {
	return &Gateway{
		hub:     hub,
		jwt:     jwt,
		timeout: sec.HandshakeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients send no Origin header.
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// ServeHTTP handles the upgrade endpoint for the namespace: authenticate,
// upgrade, register, start pumps.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, err := g.authenticate(r)
	if err != nil {
		reason := rejectionReason(err)
		metrics.RecordHandshakeRejection(g.hub.namespace, reason)
		logging.Ctx(r.Context()).Debug().
			Str("namespace", g.hub.namespace).
			Str("reason", reason).
			Msg("websocket handshake rejected")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade writes its own error response.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(g.hub, conn, principal)
	if !g.hub.Register(client) {
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(context.Background())
}

// authenticate resolves the bearer token within the handshake timeout.
func (g *Gateway) authenticate(r *http.Request) (models.Principal, error) {
	ctx, cancel := context.WithTimeout(r.Context(), g.timeout)
	defer cancel()

	token := auth.TokenFromRequest(r)

	type result struct {
		principal models.Principal
		err       error
	}
	done := make(chan result, 1)
	go func() {
		p, err := g.jwt.ValidateToken(token)
		done <- result{principal: p, err: err}
	}()

	select {
	case <-ctx.Done():
		return models.Principal{}, ctx.Err()
	case res := <-done:
		return res.principal, res.err
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenMissing):
		return "missing_token"
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired_token"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "invalid_token"
	}
}
