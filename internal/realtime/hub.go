// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package realtime

import (
	"context"
	"sync/atomic"

	"github.com/goccy/go-json"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/config"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/logging"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/metrics"
)

// HandlerFunc handles one inbound event. Data is the raw envelope payload;
// handlers decode it into their typed payload via Hub.decode.
type HandlerFunc func(ctx context.Context, c *Client, data json.RawMessage)

// Hub owns one namespace: its connection registry, its dispatch table and the
// fan-out primitives. Handlers run on the connection's read goroutine, so
// per-connection events are processed in arrival order.
type Hub struct {
	namespace string
	cfg       *config.RealtimeConfig
	registry  *Registry
	handlers  map[string]HandlerFunc
	closed    atomic.Bool
}

// NewHub creates a hub for the given namespace.
func NewHub(namespace string, cfg *config.RealtimeConfig) *Hub {
	return &Hub{
		namespace: namespace,
		cfg:       cfg,
		registry:  NewRegistry(),
		handlers:  make(map[string]HandlerFunc),
	}
}

// Namespace returns the hub's namespace name.
func (h *Hub) Namespace() string {
	return h.namespace
}

// Registry exposes the connection registry to the coordinators that share
// this namespace.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Handle installs the handler for an event name. The dispatch table is built
// at startup, before any connection is admitted, and is read-only afterwards.
func (h *Hub) Handle(event string, fn HandlerFunc) {
	h.handlers[event] = fn
}

// Register admits an authenticated connection: it enters the registry, joins
// its personal room (and the admins room for admin principals) and receives
// the welcome acknowledgment.
func (h *Hub) Register(c *Client) bool {
	if h.closed.Load() {
		return false
	}

	h.registry.Add(c)
	h.registry.Join(c, PersonalRoom(c.principal.ID))
	if c.principal.IsAdmin() {
		h.registry.Join(c, AdminsRoom)
	}

	metrics.ConnectionOpened(h.namespace)
	logging.Info().
		Str("namespace", h.namespace).
		Str("principal_id", c.principal.ID).
		Str("role", string(c.principal.Role)).
		Int("total_clients", h.registry.Count()).
		Msg("websocket client connected")

	h.SendTo(c, EvConnected, &WelcomePayload{
		Message:     "connected to " + h.namespace,
		PrincipalID: c.principal.ID,
		Namespace:   h.namespace,
	})
	return true
}

// Unregister removes a connection from the registry and signals its write
// pump to stop. Safe to call more than once, and safe to race with fan-out:
// the send channel stays open and SendTo checks the done signal instead.
func (h *Hub) Unregister(c *Client) {
	if !h.registry.Remove(c) {
		return
	}
	c.shutdown()

	metrics.ConnectionClosed(h.namespace)
	logging.Info().
		Str("namespace", h.namespace).
		Str("principal_id", c.principal.ID).
		Int("total_clients", h.registry.Count()).
		Msg("websocket client disconnected")
}

// dispatch routes an inbound envelope through the dispatch table.
func (h *Hub) dispatch(ctx context.Context, c *Client, env *Envelope) {
	metrics.RecordEventReceived(h.namespace, env.Event)

	handler, ok := h.handlers[env.Event]
	if !ok {
		h.sendError(c, env.Event, CodeValidationError, "unknown event", nil)
		return
	}
	handler(ctx, c, env.Data)
}

// decode unmarshals an event payload, answering VALIDATION_ERROR on failure.
func (h *Hub) decode(c *Client, event string, data json.RawMessage, v interface{}) bool {
	if len(data) == 0 {
		h.sendError(c, event, CodeValidationError, "missing payload", nil)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		h.sendError(c, event, CodeValidationError, "malformed payload", nil)
		return false
	}
	return true
}

// SendTo queues an event on one connection. A connection whose send buffer is
// full is a slow consumer and gets dropped rather than blocking fan-out.
func (h *Hub) SendTo(c *Client, event string, data interface{}) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	msg := &Message{Event: event, Data: data}
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	default:
		metrics.RecordEventDropped(h.namespace)
		logging.Warn().
			Str("namespace", h.namespace).
			Str("principal_id", c.principal.ID).
			Str("event", event).
			Msg("dropping slow websocket consumer")
		h.Unregister(c)
		_ = c.conn.Close()
		return false
	}
}

// SendToRoom fans an event out to every member of a room. Returns the number
// of connections reached.
func (h *Hub) SendToRoom(room, event string, data interface{}) int {
	sent := 0
	for _, c := range h.registry.RoomClients(room) {
		if h.SendTo(c, event, data) {
			sent++
		}
	}
	return sent
}

// SendToPrincipal fans an event out to all live connections of one principal,
// which is what keeps multi-device read state in sync.
func (h *Hub) SendToPrincipal(principalID, event string, data interface{}) int {
	sent := 0
	for _, c := range h.registry.PrincipalClients(principalID) {
		if h.SendTo(c, event, data) {
			sent++
		}
	}
	return sent
}

// BroadcastAll sends an event to every live connection in the namespace,
// used for system-wide maintenance alerts.
func (h *Hub) BroadcastAll(event string, data interface{}) int {
	sent := 0
	for _, c := range h.registry.AllClients() {
		if h.SendTo(c, event, data) {
			sent++
		}
	}
	return sent
}

// RunWithContext blocks until the context is canceled, then closes every
// connection. Designed for suture supervision: a restart gets a clean
// registry because clients reconnect and re-register.
func (h *Hub) RunWithContext(ctx context.Context) error {
	<-ctx.Done()

	h.closed.Store(true)
	clients := h.registry.AllClients()
	for _, c := range clients {
		h.Unregister(c)
		_ = c.conn.Close()
	}

	logging.Info().
		Str("component", "realtime-hub").
		Str("namespace", h.namespace).
		Int("clients_closed", len(clients)).
		Msg("hub stopped")
	return ctx.Err()
}
