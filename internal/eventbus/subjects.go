// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

// Package eventbus connects the realtime server to NATS. Backend services
// publish notification events to the bus; the server subscribes and fans them
// out to live websocket connections. An embedded NATS server is available for
// single-instance deployments.
package eventbus

import (
	"time"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/models"
)

// Subject layout under the configured prefix (default "taskflow"):
//
//	<prefix>.notification.created.<type>   one notification event
const notificationCreatedSuffix = ".notification.created."

// NotificationSubject builds the publish subject for one notification type.
func NotificationSubject(prefix string, typ models.NotificationType) string {
	return prefix + notificationCreatedSuffix + string(typ)
}

// NotificationWildcard builds the subscribe subject matching all notification
// types under the prefix.
func NotificationWildcard(prefix string) string {
	return prefix + notificationCreatedSuffix + ">"
}

// NotificationEvent is the bus wire format for a notification. Recipient is
// ignored when Broadcast is set.
type NotificationEvent struct {
	RecipientID string                  `json:"recipient_id,omitempty"`
	Title       string                  `json:"title"`
	Message     string                  `json:"message"`
	Type        models.NotificationType `json:"type"`
	Broadcast   bool                    `json:"broadcast,omitempty"`

	RelatedEntity *models.EntityRef `json:"related_entity,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`

	// EmittedAt is the producer timestamp, informational only; the server
	// stamps its own CreatedAt on the persisted notification.
	EmittedAt time.Time `json:"emitted_at,omitempty"`
}
