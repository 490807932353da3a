// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package models

import "time"

// APIResponse is the standardized wrapper used by all HTTP endpoints.
//
// Status is "success" or "error". Data carries the payload on success; Error
// is populated only when Status is "error".
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
}

// APIError carries a machine-readable error code alongside a human-readable
// message. Codes mirror the realtime error taxonomy so REST and socket
// clients share one vocabulary.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// LoginRequest is the payload for POST /api/v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the minted bearer token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      Role      `json:"role"`
}

// StartChatRequest is the public widget payload for POST /api/v1/chat/widget/start.
type StartChatRequest struct {
	Name     string       `json:"name" validate:"required,max=120"`
	Email    string       `json:"email" validate:"required,email"`
	Message  string       `json:"message" validate:"required,max=4000"`
	Category string       `json:"category" validate:"omitempty,max=64"`
	Priority ChatPriority `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
}

// PostMessageRequest appends a message to a chat over REST.
type PostMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

// TestNotificationRequest triggers a notification via the REST boundary, used
// by integration tests and the admin dashboard's "send test" button.
type TestNotificationRequest struct {
	RecipientID string           `json:"recipient_id" validate:"required_without=Broadcast"`
	Title       string           `json:"title" validate:"required,max=200"`
	Message     string           `json:"message" validate:"required,max=2000"`
	Type        NotificationType `json:"type" validate:"omitempty,oneof=task_assigned comment_added system_alert test"`
	Broadcast   bool             `json:"broadcast"`
}
