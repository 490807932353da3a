// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package realtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/logging"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/metrics"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/models"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/store"
)

// ChatService coordinates the support chat lifecycle on the chat namespace:
// the pending queue announced to the admins room, assignment on accept, and
// room-based fan-out of messages, typing and presence.
//
// The widget REST endpoints call into the same service, so an anonymous
// customer posting over HTTP reaches the chat room exactly like a socket
// sender does.
type ChatService struct {
	hub   *Hub
	store *store.ChatStore
}

// NewChatService wires the service and installs its dispatch table on the
// hub.
func NewChatService(hub *Hub, st *store.ChatStore) *ChatService {
	s := &ChatService{hub: hub, store: st}

	hub.Handle(EvAdminJoin, s.handleAdminJoin)
	hub.Handle(EvChatJoinRooms, s.handleJoinRooms)
	hub.Handle(EvChatJoin, s.handleJoin)
	hub.Handle(EvChatSend, s.handleSendMessage)
	hub.Handle(EvChatTyping, s.handleTyping)
	hub.Handle(EvChatPresence, s.handlePresence)

	return s
}

// Hub returns the namespace hub the service is bound to.
func (s *ChatService) Hub() *Hub {
	return s.hub
}

// Socket handlers.

func (s *ChatService) handleAdminJoin(_ context.Context, c *Client, _ json.RawMessage) {
	if !c.principal.IsAdmin() {
		s.hub.sendError(c, EvAdminJoin, CodeForbidden, "admin role required", nil)
		return
	}
	// Admins are in the room from the handshake already; the explicit join is
	// an idempotent ack for clients that want confirmation.
	s.hub.registry.Join(c, AdminsRoom)
	s.hub.SendTo(c, EvAdminJoined, nil)
}

// handleJoinRooms restores an admin's chat room memberships after a
// reconnect, without the client having to remember which chats it was in.
func (s *ChatService) handleJoinRooms(ctx context.Context, c *Client, _ json.RawMessage) {
	if !c.principal.IsAdmin() {
		s.hub.sendError(c, EvChatJoinRooms, CodeForbidden, "admin role required", nil)
		return
	}

	chats, err := s.store.ListAssignedTo(ctx, c.principal.ID)
	if err != nil {
		s.hub.sendStoreError(c, EvChatJoinRooms, err)
		return
	}

	chatIDs := make([]uuid.UUID, 0, len(chats))
	for _, chat := range chats {
		s.hub.registry.Join(c, ChatRoom(chat.ID.String()))
		chatIDs = append(chatIDs, chat.ID)
	}
	s.hub.SendTo(c, EvChatRoomsJoined, &RoomsJoinedPayload{ChatIDs: chatIDs})
}

func (s *ChatService) handleJoin(ctx context.Context, c *Client, data json.RawMessage) {
	var req ChatRefPayload
	if !s.hub.decode(c, EvChatJoin, data, &req) {
		return
	}

	chat, err := s.store.Get(ctx, req.ChatID)
	if err != nil {
		s.hub.sendStoreError(c, EvChatJoin, err)
		return
	}

	// Admins may observe any chat; customers only their own.
	if !c.principal.IsAdmin() && chat.CustomerID != c.principal.ID {
		s.hub.sendError(c, EvChatJoin, CodeForbidden, "not a participant of this chat", nil)
		return
	}

	s.hub.registry.Join(c, ChatRoom(chat.ID.String()))
	s.hub.SendTo(c, EvChatJoined, &JoinedPayload{ChatID: chat.ID})
}

func (s *ChatService) handleSendMessage(ctx context.Context, c *Client, data json.RawMessage) {
	var req SendMessagePayload
	if !s.hub.decode(c, EvChatSend, data, &req) {
		return
	}
	if req.Content == "" {
		s.hub.sendError(c, EvChatSend, CodeValidationError, "content is required", nil)
		return
	}

	// Sending into a room this socket has not joined is rejected, not
	// silently dropped.
	if !s.hub.registry.InRoom(c, ChatRoom(req.ChatID.String())) {
		s.hub.sendError(c, EvChatSend, CodeForbidden, "join the chat before sending", nil)
		return
	}

	msg := models.NewChatMessage(req.ChatID, c.principal.ID, c.principal.Role, req.Content)
	if _, err := s.SendMessage(ctx, msg); err != nil {
		s.hub.sendStoreError(c, EvChatSend, err)
	}
}

func (s *ChatService) handleTyping(_ context.Context, c *Client, data json.RawMessage) {
	var req TypingPayload
	if !s.hub.decode(c, EvChatTyping, data, &req) {
		return
	}
	room := ChatRoom(req.ChatID.String())
	if !s.hub.registry.InRoom(c, room) {
		s.hub.sendError(c, EvChatTyping, CodeForbidden, "join the chat first", nil)
		return
	}

	// Transient: no persistence, no replay. Skip the sender's own echo.
	out := &TypingOutPayload{ChatID: req.ChatID, SenderID: c.principal.ID, IsTyping: req.IsTyping}
	for _, member := range s.hub.registry.RoomClients(room) {
		if member != c {
			s.hub.SendTo(member, EvChatTypingOut, out)
		}
	}
}

func (s *ChatService) handlePresence(_ context.Context, c *Client, data json.RawMessage) {
	var req PresencePayload
	if !s.hub.decode(c, EvChatPresence, data, &req) {
		return
	}
	room := ChatRoom(req.ChatID.String())
	if !s.hub.registry.InRoom(c, room) {
		s.hub.sendError(c, EvChatPresence, CodeForbidden, "join the chat first", nil)
		return
	}

	out := &PresenceOutPayload{ChatID: req.ChatID, SenderID: c.principal.ID, Status: req.Status}
	for _, member := range s.hub.registry.RoomClients(room) {
		if member != c {
			s.hub.SendTo(member, EvChatPresenceOut, out)
		}
	}
}

// Service operations, shared by the socket handlers and the REST endpoints.

// StartChat creates a pending chat with its first message and announces it to
// the admins room. customerID is empty for anonymous widget customers.
func (s *ChatService) StartChat(ctx context.Context, name, email, content, category string, priority models.ChatPriority, customerID string) (*models.Chat, *models.ChatMessage, error) {
	chat := models.NewChat(name, email, category, priority)
	chat.CustomerID = customerID
	if err := s.store.Create(ctx, chat); err != nil {
		return nil, nil, err
	}

	msg := models.NewChatMessage(chat.ID, customerFallbackID(customerID), models.RoleUser, content)
	stored, err := s.store.AppendMessage(ctx, msg)
	if err != nil {
		return nil, nil, err
	}

	metrics.ChatsStarted.Inc()
	logging.Ctx(ctx).Info().
		Str("chat_id", chat.ID.String()).
		Str("category", chat.Category).
		Str("priority", string(chat.Priority)).
		Msg("chat started")

	// This announcement is how admins discover pending work; no polling.
	s.hub.SendToRoom(AdminsRoom, EvAdminNewChatRequest, &NewChatRequestPayload{Chat: chat, Message: stored})
	return chat, stored, nil
}

func customerFallbackID(customerID string) string {
	if customerID == "" {
		return "customer"
	}
	return customerID
}

// AcceptChat assigns a pending chat to an admin. On success every live
// connection of that admin joins the chat room, the admins room learns the
// chat is taken, and the chat room (the customer included, if connected)
// learns who is handling it. Losing a concurrent accept returns
// store.AlreadyAssignedError naming the winner.
func (s *ChatService) AcceptChat(ctx context.Context, chatID uuid.UUID, adminID string) (*models.Chat, error) {
	chat, err := s.store.Accept(ctx, chatID, adminID)
	if err != nil {
		var assigned *store.AlreadyAssignedError
		if errors.As(err, &assigned) {
			metrics.ChatAcceptConflicts.Inc()
		}
		return nil, err
	}

	metrics.ChatsAccepted.Inc()
	room := ChatRoom(chat.ID.String())
	for _, c := range s.hub.registry.PrincipalClients(adminID) {
		s.hub.registry.Join(c, room)
	}

	s.hub.SendToRoom(AdminsRoom, EvAdminChatAccepted, &ChatAcceptedPayload{Chat: chat})
	s.hub.SendToRoom(room, EvChatStatusUpdated, &StatusUpdatedPayload{ChatID: chat.ID, Status: chat.Status})
	s.hub.SendToRoom(room, EvChatAssigned, &AssignedPayload{ChatID: chat.ID, AdminID: adminID})

	if _, err := s.appendSystemMessage(ctx, chat.ID, "An agent has joined the conversation"); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("chat_id", chat.ID.String()).Msg("failed to record assignment message")
	}
	return chat, nil
}

// CloseChat transitions an active chat to closed and tells the room. The room
// itself is not force-evicted; members just stop receiving chat events.
func (s *ChatService) CloseChat(ctx context.Context, chatID uuid.UUID) (*models.Chat, error) {
	chat, err := s.store.Close(ctx, chatID)
	if err != nil {
		return nil, err
	}

	metrics.ChatsClosed.Inc()
	room := ChatRoom(chat.ID.String())
	s.hub.SendToRoom(room, EvChatStatusUpdated, &StatusUpdatedPayload{ChatID: chat.ID, Status: chat.Status})
	s.hub.SendToRoom(AdminsRoom, EvChatStatusUpdated, &StatusUpdatedPayload{ChatID: chat.ID, Status: chat.Status})
	return chat, nil
}

// SendMessage appends a message and fans it out to the chat room. The store
// assigns the sequence number inside the append transaction, so observers
// receive messages in a single per-chat order.
func (s *ChatService) SendMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	stored, err := s.store.AppendMessage(ctx, msg)
	if err != nil {
		return nil, err
	}

	metrics.ChatMessages.WithLabelValues(string(stored.SenderRole)).Inc()
	s.hub.SendToRoom(ChatRoom(stored.ChatID.String()), EvChatMessage, &ChatMessagePayload{Message: stored})
	return stored, nil
}

func (s *ChatService) appendSystemMessage(ctx context.Context, chatID uuid.UUID, content string) (*models.ChatMessage, error) {
	msg := models.NewSystemMessage(chatID, content)
	stored, err := s.store.AppendMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("append system message: %w", err)
	}
	s.hub.SendToRoom(ChatRoom(chatID.String()), EvChatMessage, &ChatMessagePayload{Message: stored})
	return stored, nil
}
