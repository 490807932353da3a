// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/logging"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/models"
)

type contextKey string

// PrincipalContextKey stores the authenticated principal in the request
// context after the Authenticate middleware runs.
const PrincipalContextKey contextKey = "principal"

// Middleware enforces bearer-token authentication on REST routes.
type Middleware struct {
	jwtManager *JWTManager
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(jwtManager *JWTManager) *Middleware {
	return &Middleware{jwtManager: jwtManager}
}

// Authenticate validates the Authorization header and stores the resolved
// principal in the request context.
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		principal, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("rejected unauthenticated request")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin rejects requests whose principal does not hold the admin role.
// Must run after Authenticate.
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok || !principal.IsAdmin() {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// PrincipalFromContext retrieves the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	principal, ok := ctx.Value(PrincipalContextKey).(models.Principal)
	return principal, ok
}

// TokenFromRequest extracts the bearer credential from a request. The
// Authorization header wins; the "token" query parameter is accepted as a
// fallback because browser WebSocket clients cannot set headers on the
// upgrade request.
func TokenFromRequest(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
