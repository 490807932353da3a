// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType enumerates the notification categories a client may
// subscribe to. A connection with no explicit subscription receives all
// categories.
type NotificationType string

const (
	NotificationTaskAssigned NotificationType = "task_assigned"
	NotificationCommentAdded NotificationType = "comment_added"
	NotificationSystemAlert  NotificationType = "system_alert"
	NotificationTest         NotificationType = "test"
)

// ValidNotificationType reports whether t is one of the known categories.
func ValidNotificationType(t NotificationType) bool {
	switch t {
	case NotificationTaskAssigned, NotificationCommentAdded, NotificationSystemAlert, NotificationTest:
		return true
	default:
		return false
	}
}

// NotificationTypes returns all known categories, in a stable order.
func NotificationTypes() []NotificationType {
	return []NotificationType{
		NotificationTaskAssigned,
		NotificationCommentAdded,
		NotificationSystemAlert,
		NotificationTest,
	}
}

// Notification is a persisted message addressed to a single principal.
//
// Lifecycle: created by backend business logic (task/board/comment mutation or
// an explicit test trigger), pushed best-effort to the recipient's live
// connections, optionally marked read, and retained for paginated history.
// Notifications are never deleted in the normal flow; retention is enforced by
// a store-level TTL.
type Notification struct {
	ID          uuid.UUID        `json:"id"`
	RecipientID string           `json:"recipient_id"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Type        NotificationType `json:"type"`
	Read        bool             `json:"read"`
	CreatedAt   time.Time        `json:"created_at"`

	// RelatedEntity optionally points at the domain object that caused the
	// notification (a task, board or comment).
	RelatedEntity *EntityRef `json:"related_entity,omitempty"`

	// Metadata carries free-form key/value context for the client UI.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// EntityRef identifies a domain entity by kind and id.
type EntityRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// NewNotification builds an unread notification with a fresh id and creation
// timestamp.
func NewNotification(recipientID, title, message string, typ NotificationType) *Notification {
	return &Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Title:       title,
		Message:     message,
		Type:        typ,
		Read:        false,
		CreatedAt:   time.Now().UTC(),
	}
}

// NotificationStats summarizes a principal's notification state.
type NotificationStats struct {
	Total  int `json:"total"`
	Unread int `json:"unread"`
}
