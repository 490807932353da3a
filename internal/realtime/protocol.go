// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

// Package realtime implements the websocket messaging layer: the connection
// gateway, the per-namespace hubs with their room registries, the notification
// fan-out service and the support chat coordinator.
//
// Wire format is a JSON envelope per event:
//
//	{"event": "notifications:subscribe", "data": {"types": ["task_assigned"]}}
//
// Each namespace owns an exhaustive dispatch table mapping event name to a
// typed handler; unknown events get a VALIDATION_ERROR back on the same
// connection.
package realtime

import (
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/models"
)

// Namespace names. Each namespace has its own hub, registry and dispatch
// table.
const (
	NamespaceNotifications = "notifications"
	NamespaceChat          = "chat"
)

// Inbound event names, notifications namespace.
const (
	EvGetUnreadCount = "notifications:getUnreadCount"
	EvSubscribe      = "notifications:subscribe"
	EvUnsubscribe    = "notifications:unsubscribe"
	EvGetRecent      = "notifications:getRecent"
	EvMarkRead       = "notifications:markRead"
	EvMarkAllRead    = "notifications:markAllRead"
)

// Outbound event names, notifications namespace.
const (
	EvUnreadCount       = "notifications:unreadCount"
	EvSubscribed        = "notifications:subscribed"
	EvUnsubscribed      = "notifications:unsubscribed"
	EvRecent            = "notifications:recent"
	EvMarkedRead        = "notifications:marked-read"
	EvAllMarkedRead     = "notifications:all-marked-read"
	EvNotificationNew   = "notification:new"
	EvNotificationTyped = "notification:typed"
)

// Inbound event names, chat namespace.
const (
	EvAdminJoin     = "admin:join"
	EvChatJoinRooms = "chat:join-rooms"
	EvChatJoin      = "chat:join"
	EvChatSend      = "chat:send-message"
	EvChatTyping    = "chat:typing"
	EvChatPresence  = "chat:presence"
)

// Outbound event names, chat namespace.
const (
	EvAdminNewChatRequest = "admin:new-chat-request"
	EvAdminChatAccepted   = "admin:chat-accepted"
	EvAdminJoined         = "admin:joined"
	EvChatMessage         = "chat:message"
	EvChatStatusUpdated   = "chat:status-updated"
	EvChatAssigned        = "chat:assigned"
	EvChatRoomsJoined     = "chat:rooms-joined"
	EvChatJoined          = "chat:joined"
	EvChatTypingOut       = "chat:typing"
	EvChatPresenceOut     = "chat:presence"
)

// Shared event names.
const (
	EvConnected = "connected"
	EvError     = "error"
)

// Envelope is the inbound wire frame. Data stays raw until the dispatch table
// resolves the event to its typed payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Message is the outbound wire frame.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// Inbound payloads.

// SubscribePayload carries the category set for subscribe/unsubscribe.
type SubscribePayload struct {
	Types []models.NotificationType `json:"types"`
}

// GetRecentPayload bounds a history query. Zero means the configured default.
type GetRecentPayload struct {
	Limit int `json:"limit"`
}

// MarkReadPayload names the notification to mark read.
type MarkReadPayload struct {
	NotificationID string `json:"notificationId"`
}

// ChatRefPayload names a chat for join/typing/presence style events.
type ChatRefPayload struct {
	ChatID uuid.UUID `json:"chatId"`
}

// SendMessagePayload carries a chat message to append and fan out.
type SendMessagePayload struct {
	ChatID  uuid.UUID `json:"chatId"`
	Content string    `json:"content"`
}

// TypingPayload is the transient typing indicator.
type TypingPayload struct {
	ChatID   uuid.UUID `json:"chatId"`
	IsTyping bool      `json:"isTyping"`
}

// PresencePayload is the transient presence update.
type PresencePayload struct {
	ChatID uuid.UUID `json:"chatId"`
	Status string    `json:"status"`
}

// Outbound payloads.

// WelcomePayload acknowledges a successful handshake.
type WelcomePayload struct {
	Message     string `json:"message"`
	PrincipalID string `json:"principalId"`
	Namespace   string `json:"namespace"`
}

// UnreadCountPayload answers getUnreadCount.
type UnreadCountPayload struct {
	Count int `json:"count"`
}

// SubscribedPayload acknowledges a filter change with the resulting set.
type SubscribedPayload struct {
	Types []models.NotificationType `json:"types"`
}

// RecentPayload answers getRecent, newest first.
type RecentPayload struct {
	Notifications []*models.Notification `json:"notifications"`
}

// MarkedReadPayload confirms a single mark-read to all of the principal's
// connections.
type MarkedReadPayload struct {
	NotificationID string `json:"notificationId"`
}

// AllMarkedReadPayload confirms a bulk mark-read.
type AllMarkedReadPayload struct {
	Marked int `json:"marked"`
}

// NotificationPayload pushes one notification.
type NotificationPayload struct {
	Notification *models.Notification `json:"notification"`
}

// TypedNotificationPayload is the category-qualified push variant.
type TypedNotificationPayload struct {
	Type         models.NotificationType `json:"type"`
	Notification *models.Notification    `json:"notification"`
}

// NewChatRequestPayload tells the admins room about a fresh pending chat.
type NewChatRequestPayload struct {
	Chat    *models.Chat        `json:"chat"`
	Message *models.ChatMessage `json:"message"`
}

// ChatAcceptedPayload confirms an assignment to the admins room and the chat
// room.
type ChatAcceptedPayload struct {
	Chat *models.Chat `json:"chat"`
}

// ChatMessagePayload fans a transcript entry out to the chat room.
type ChatMessagePayload struct {
	Message *models.ChatMessage `json:"message"`
}

// StatusUpdatedPayload announces a lifecycle transition to the chat room.
type StatusUpdatedPayload struct {
	ChatID uuid.UUID         `json:"chatId"`
	Status models.ChatStatus `json:"status"`
}

// AssignedPayload names the admin now handling the chat.
type AssignedPayload struct {
	ChatID  uuid.UUID `json:"chatId"`
	AdminID string    `json:"adminId"`
}

// RoomsJoinedPayload acknowledges joinRooms with the restored chat ids.
type RoomsJoinedPayload struct {
	ChatIDs []uuid.UUID `json:"chatIds"`
}

// JoinedPayload acknowledges a single room join.
type JoinedPayload struct {
	ChatID uuid.UUID `json:"chatId"`
}

// TypingOutPayload rebroadcasts a typing indicator with the sender attached.
type TypingOutPayload struct {
	ChatID   uuid.UUID `json:"chatId"`
	SenderID string    `json:"senderId"`
	IsTyping bool      `json:"isTyping"`
}

// PresenceOutPayload rebroadcasts a presence update with the sender attached.
type PresenceOutPayload struct {
	ChatID   uuid.UUID `json:"chatId"`
	SenderID string    `json:"senderId"`
	Status   string    `json:"status"`
}
