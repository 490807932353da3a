// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatStatus is the lifecycle state of a support chat.
//
// Transitions are strictly pending -> active -> closed. Closed is terminal.
type ChatStatus string

const (
	ChatPending ChatStatus = "pending"
	ChatActive  ChatStatus = "active"
	ChatClosed  ChatStatus = "closed"
)

// ChatPriority orders pending chats in the admin queue.
type ChatPriority string

const (
	PriorityLow    ChatPriority = "low"
	PriorityNormal ChatPriority = "normal"
	PriorityHigh   ChatPriority = "high"
	PriorityUrgent ChatPriority = "urgent"
)

// ValidChatPriority reports whether p is a known priority.
func ValidChatPriority(p ChatPriority) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// Chat is a support conversation between a (possibly anonymous) customer and
// at most one assigned admin.
type Chat struct {
	ID            uuid.UUID `json:"id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`

	// CustomerID is set when the customer was authenticated at startChat
	// time; anonymous widget chats leave it empty.
	CustomerID string `json:"customer_id,omitempty"`

	// AssignedAdmin is the id of the admin who accepted the chat. Empty
	// while the chat is pending. At most one admin is assigned, which is
	// what makes server-side append order a total order per chat.
	AssignedAdmin string `json:"assigned_admin,omitempty"`

	Status    ChatStatus   `json:"status"`
	Category  string       `json:"category"`
	Priority  ChatPriority `json:"priority"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewChat builds a pending chat with a fresh id and timestamps.
func NewChat(name, email, category string, priority ChatPriority) *Chat {
	now := time.Now().UTC()
	if priority == "" {
		priority = PriorityNormal
	}
	return &Chat{
		ID:            uuid.New(),
		CustomerName:  name,
		CustomerEmail: email,
		Status:        ChatPending,
		Category:      category,
		Priority:      priority,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MessageType distinguishes user-authored messages from system annotations
// (assignment, closure) injected into the transcript.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageSystem MessageType = "system"
)

// ChatMessage is an append-only transcript entry.
//
// Seq is assigned by the store from a per-chat monotonic counter; it is the
// ordering authority for the transcript. Clients never reorder.
type ChatMessage struct {
	ID       uuid.UUID `json:"id"`
	ChatID   uuid.UUID `json:"chat_id"`
	Seq      uint64    `json:"seq"`
	SenderID string    `json:"sender_id"`

	// SenderRole records whether the sender was a customer or an admin at
	// send time, so transcripts render correctly after role changes.
	SenderRole Role        `json:"sender_role"`
	Content    string      `json:"content"`
	Type       MessageType `json:"type"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NewChatMessage builds a text message; Seq is filled in by the store on
// append.
func NewChatMessage(chatID uuid.UUID, senderID string, role Role, content string) *ChatMessage {
	return &ChatMessage{
		ID:         uuid.New(),
		ChatID:     chatID,
		SenderID:   senderID,
		SenderRole: role,
		Content:    content,
		Type:       MessageText,
		CreatedAt:  time.Now().UTC(),
	}
}

// NewSystemMessage builds a system annotation for the transcript.
func NewSystemMessage(chatID uuid.UUID, content string) *ChatMessage {
	return &ChatMessage{
		ID:        uuid.New(),
		ChatID:    chatID,
		SenderID:  "system",
		Content:   content,
		Type:      MessageSystem,
		CreatedAt: time.Now().UTC(),
	}
}

// ChatStats summarizes the support queue for the admin dashboard.
type ChatStats struct {
	Pending int `json:"pending"`
	Active  int `json:"active"`
	Closed  int `json:"closed"`
}
