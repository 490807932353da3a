// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/auth"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/config"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/eventbus"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/logging"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/models"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/realtime"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/store"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/validation"
)

// Handler implements the REST boundary: the widget endpoints anonymous
// customers use, the admin dashboard endpoints, the notification history
// endpoints and the auth/ops plumbing.
type Handler struct {
	cfg           *config.Config
	jwt           *auth.JWTManager
	notifications *realtime.NotificationService
	chat          *realtime.ChatService
	notifStore    *store.NotificationStore
	chatStore     *store.ChatStore

	// bus is nil when NATS is disabled; the test trigger then publishes
	// directly through the fan-out service.
	bus *eventbus.Bus
}

// NewHandler wires the REST handlers.
func NewHandler(cfg *config.Config, jwt *auth.JWTManager, notifications *realtime.NotificationService, chat *realtime.ChatService, notifStore *store.NotificationStore, chatStore *store.ChatStore, bus *eventbus.Bus) *Handler {
	return &Handler{
		cfg:           cfg,
		jwt:           jwt,
		notifications: notifications,
		chat:          chat,
		notifStore:    notifStore,
		chatStore:     chatStore,
		bus:           bus,
	}
}

// Auth.

// Login authenticates the configured admin credentials and mints an admin
// bearer token. User tokens are minted by the main backend, not here.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sec := &h.cfg.Security
	if sec.AdminUsername == "" || req.Username != sec.AdminUsername {
		respondError(w, r, http.StatusUnauthorized, "AUTH_REQUIRED", "invalid credentials", nil)
		return
	}
	if err := auth.VerifyPassword(sec.AdminPasswordHash, req.Password); err != nil {
		logging.Ctx(r.Context()).Warn().Str("username", req.Username).Msg("failed login attempt")
		respondError(w, r, http.StatusUnauthorized, "AUTH_REQUIRED", "invalid credentials", nil)
		return
	}

	principal := models.Principal{ID: sec.AdminUsername, Name: sec.AdminUsername, Role: models.RoleAdmin}
	token, expiresAt, err := h.jwt.GenerateToken(principal)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "INTERNAL", "failed to mint token", nil)
		return
	}

	respond(w, r, http.StatusOK, &models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Role:      models.RoleAdmin,
	})
}

// Health.

// HealthLive reports process liveness.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthReady reports readiness: the store is open by construction, so the
// only conditional dependency is the bus.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.bus != nil && !h.bus.IsConnected() {
		respondError(w, r, http.StatusServiceUnavailable, "NOT_READY", "event bus disconnected", nil)
		return
	}
	respond(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// Chat widget endpoints (public; anonymous customers).

// StartWidgetChat creates a pending chat and announces it to connected
// admins.
func (h *Handler) StartWidgetChat(w http.ResponseWriter, r *http.Request) {
	var req models.StartChatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	// An authenticated customer gets linked to the chat; anonymous works too.
	customerID := ""
	if principal, err := h.jwt.ValidateToken(auth.TokenFromRequest(r)); err == nil {
		customerID = principal.ID
	}

	chat, msg, err := h.chat.StartChat(r.Context(), req.Name, req.Email, req.Message, req.Category, req.Priority, customerID)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	respond(w, r, http.StatusCreated, map[string]interface{}{
		"chat":    chat,
		"message": msg,
	})
}

// PostWidgetMessage appends a customer message over REST, reaching the chat
// room exactly like a socket send does.
func (h *Handler) PostWidgetMessage(w http.ResponseWriter, r *http.Request) {
	chatID, ok := h.chatIDParam(w, r)
	if !ok {
		return
	}
	var req models.PostMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	chat, err := h.chatStore.Get(r.Context(), chatID)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	senderID := chat.CustomerID
	if senderID == "" {
		senderID = "customer"
	}
	msg, err := h.chat.SendMessage(r.Context(), models.NewChatMessage(chatID, senderID, models.RoleUser, req.Content))
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, map[string]interface{}{"message": msg})
}

// WidgetHistory returns the transcript for a chat the customer knows the id
// of.
func (h *Handler) WidgetHistory(w http.ResponseWriter, r *http.Request) {
	chatID, ok := h.chatIDParam(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a non-negative integer", nil)
			return
		}
		limit = parsed
	}

	chat, err := h.chatStore.Get(r.Context(), chatID)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	messages, err := h.chatStore.Messages(r.Context(), chatID, limit)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, map[string]interface{}{
		"chat":     chat,
		"messages": messages,
	})
}

// Chat admin endpoints (admin token required).

// AdminPendingChats lists the pending queue, oldest first.
func (h *Handler) AdminPendingChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chatStore.ListByStatus(r.Context(), models.ChatPending)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]interface{}{"chats": chats})
}

// AdminActiveChats lists active chats.
func (h *Handler) AdminActiveChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chatStore.ListByStatus(r.Context(), models.ChatActive)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]interface{}{"chats": chats})
}

// AdminChatStats returns queue counts for the dashboard.
func (h *Handler) AdminChatStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.chatStore.Stats(r.Context())
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, stats)
}

// AdminAcceptChat assigns the pending chat to the calling admin.
func (h *Handler) AdminAcceptChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := h.chatIDParam(w, r)
	if !ok {
		return
	}
	principal, _ := auth.PrincipalFromContext(r.Context())

	chat, err := h.chat.AcceptChat(r.Context(), chatID, principal.ID)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]interface{}{"chat": chat})
}

// AdminPostMessage appends an admin message. Only the assigned admin writes;
// observers read through the room.
func (h *Handler) AdminPostMessage(w http.ResponseWriter, r *http.Request) {
	chatID, ok := h.chatIDParam(w, r)
	if !ok {
		return
	}
	var req models.PostMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	principal, _ := auth.PrincipalFromContext(r.Context())
	chat, err := h.chatStore.Get(r.Context(), chatID)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	if chat.AssignedAdmin != principal.ID {
		respondError(w, r, http.StatusForbidden, "FORBIDDEN", "chat is assigned to another admin",
			map[string]interface{}{"assignee": chat.AssignedAdmin})
		return
	}

	msg, err := h.chat.SendMessage(r.Context(), models.NewChatMessage(chatID, principal.ID, models.RoleAdmin, req.Content))
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, map[string]interface{}{"message": msg})
}

// AdminCloseChat resolves an active chat.
func (h *Handler) AdminCloseChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := h.chatIDParam(w, r)
	if !ok {
		return
	}
	chat, err := h.chat.CloseChat(r.Context(), chatID)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]interface{}{"chat": chat})
}

// Notification endpoints (authenticated principals).

// ListNotifications returns the caller's recent notifications, newest first.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	limit := h.cfg.Notifications.RecentDefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a positive integer", nil)
			return
		}
		limit = parsed
	}
	if limit > h.cfg.Notifications.RecentMaxLimit {
		limit = h.cfg.Notifications.RecentMaxLimit
	}

	notifications, err := h.notifStore.Recent(r.Context(), principal.ID, limit)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]interface{}{"notifications": notifications})
}

// NotificationStats returns total/unread counts for the caller.
func (h *Handler) NotificationStats(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	stats, err := h.notifStore.Stats(r.Context(), principal.ID)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, stats)
}

// MarkNotificationRead marks one notification read and syncs the caller's
// live connections.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "notification id is required", nil)
		return
	}

	if err := h.notifStore.MarkRead(r.Context(), principal.ID, id); err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	h.notifications.Hub().SendToPrincipal(principal.ID, realtime.EvMarkedRead, &realtime.MarkedReadPayload{NotificationID: id})
	respond(w, r, http.StatusOK, map[string]string{"id": id})
}

// MarkAllNotificationsRead marks everything read for the caller.
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	marked, err := h.notifStore.MarkAllRead(r.Context(), principal.ID)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	h.notifications.Hub().SendToPrincipal(principal.ID, realtime.EvAllMarkedRead, &realtime.AllMarkedReadPayload{Marked: marked})
	respond(w, r, http.StatusOK, map[string]int{"marked": marked})
}

// TestNotification triggers a notification (admin-only). When the bus is up
// the event takes the full ingestion path; otherwise it goes straight to the
// fan-out service.
func (h *Handler) TestNotification(w http.ResponseWriter, r *http.Request) {
	var req models.TestNotificationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}
	if req.Type == "" {
		req.Type = models.NotificationTest
	}

	ev := &eventbus.NotificationEvent{
		RecipientID: req.RecipientID,
		Title:       req.Title,
		Message:     req.Message,
		Type:        req.Type,
		Broadcast:   req.Broadcast,
	}

	if h.bus != nil && h.bus.IsConnected() {
		if err := h.bus.PublishNotification(ev); err != nil {
			respondError(w, r, http.StatusInternalServerError, "INTERNAL", "failed to publish event", nil)
			return
		}
		respond(w, r, http.StatusAccepted, map[string]string{"delivery": "bus"})
		return
	}

	h.notifications.HandleBusEvent(r.Context(), ev)
	respond(w, r, http.StatusAccepted, map[string]string{"delivery": "direct"})
}

// Helpers.

func (h *Handler) chatIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid chat id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var assigned *store.AlreadyAssignedError
	var transition *store.InvalidTransitionError

	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "not found", nil)
	case errors.As(err, &assigned):
		respondError(w, r, http.StatusConflict, "CONFLICT", "chat already assigned",
			map[string]interface{}{"assignee": assigned.Assignee})
	case errors.Is(err, store.ErrChatClosed):
		respondError(w, r, http.StatusConflict, "CONFLICT", "chat is closed", nil)
	case errors.As(err, &transition):
		respondError(w, r, http.StatusConflict, "CONFLICT", err.Error(), nil)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		respondError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
