// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/auth"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/middleware"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/realtime"
)

// Router assembles the full HTTP surface.
type Router struct {
	handler      *Handler
	authMW       *auth.Middleware
	chiMW        *ChiMiddleware
	notifGateway *realtime.Gateway
	chatGateway  *realtime.Gateway
}

// NewRouter wires handlers, auth middleware and the websocket gateways.
func NewRouter(handler *Handler, authMW *auth.Middleware, chiMW *ChiMiddleware, notifGateway, chatGateway *realtime.Gateway) *Router {
	return &Router{
		handler:      handler,
		authMW:       authMW,
		chiMW:        chiMW,
		notifGateway: notifGateway,
		chatGateway:  chatGateway,
	}
}

// Setup builds the route tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMW.CORS())

	// Operational endpoints.
	r.Route("/health", func(r chi.Router) {
		r.Use(router.chiMW.RateLimitHealth())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})
	r.Handle("/metrics", promhttp.Handler())

	// Websocket upgrade endpoints. The gateway does its own token check; no
	// REST auth middleware here because browser clients cannot set headers on
	// the upgrade request. No metrics wrapper either: the response writer
	// must stay hijackable.
	r.Get("/ws/notifications", router.notifGateway.ServeHTTP)
	r.Get("/ws/chat", router.chatGateway.ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		// Login: strictest rate limit, brute force prevention.
		r.With(router.chiMW.RateLimitLogin()).Post("/auth/login", router.handler.Login)

		// Public widget endpoints for anonymous customers.
		r.Route("/chat/widget", func(r chi.Router) {
			r.Use(router.chiMW.RateLimit())
			r.Post("/start", router.handler.StartWidgetChat)
			r.Post("/{id}/message", router.handler.PostWidgetMessage)
			r.Get("/{id}/history", router.handler.WidgetHistory)
		})

		// Admin dashboard endpoints.
		r.Route("/chat/admin", func(r chi.Router) {
			r.Use(router.chiMW.RateLimit())
			r.Use(chiMiddleware(router.authMW.Authenticate))
			r.Use(chiMiddleware(router.authMW.RequireAdmin))
			r.Get("/pending", router.handler.AdminPendingChats)
			r.Get("/active", router.handler.AdminActiveChats)
			r.Get("/stats", router.handler.AdminChatStats)
			r.Post("/{id}/accept", router.handler.AdminAcceptChat)
			r.Post("/{id}/messages", router.handler.AdminPostMessage)
			r.Post("/{id}/close", router.handler.AdminCloseChat)
		})

		// Notification endpoints for any authenticated principal.
		r.Route("/notifications", func(r chi.Router) {
			r.Use(router.chiMW.RateLimit())
			r.Use(chiMiddleware(router.authMW.Authenticate))
			r.Get("/", router.handler.ListNotifications)
			r.Get("/stats", router.handler.NotificationStats)
			r.Put("/{id}/mark-read", router.handler.MarkNotificationRead)
			r.Post("/mark-all-read", router.handler.MarkAllNotificationsRead)
			r.With(chiMiddleware(router.authMW.RequireAdmin)).Post("/test", router.handler.TestNotification)
		})
	})

	return r
}
