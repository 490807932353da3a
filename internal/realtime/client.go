// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/logging"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/metrics"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/models"
)

// clientIDCounter assigns monotonically increasing ids so fan-out iterates
// connections in a stable order.
var clientIDCounter atomic.Uint64

// Client is one live websocket connection bound to an authenticated
// principal. All per-connection state lives here, none of it survives a
// disconnect: category filters and room membership are connection-scoped and
// the client re-establishes them after a reconnect.
type Client struct {
	id        uint64
	hub       *Hub
	conn      *websocket.Conn
	send      chan *Message
	principal models.Principal

	// done signals shutdown to WritePump and to fan-out senders. The send
	// channel itself is never closed: fan-out goroutines may race with
	// unregistration and a close would turn that race into a panic.
	done      chan struct{}
	closeOnce sync.Once

	// limiter bounds inbound events per connection, flood protection for
	// typing and message spam.
	limiter *rate.Limiter

	// filterMu guards filters: the category subscription set. Empty means
	// receive all categories.
	filterMu sync.RWMutex
	filters  map[models.NotificationType]struct{}
}

// NewClient wraps an upgraded connection for the given hub.
func NewClient(hub *Hub, conn *websocket.Conn, principal models.Principal) *Client {
	return &Client{
		id:        clientIDCounter.Add(1),
		hub:       hub,
		conn:      conn,
		send:      make(chan *Message, hub.cfg.SendBuffer),
		done:      make(chan struct{}),
		principal: principal,
		limiter:   rate.NewLimiter(rate.Limit(hub.cfg.EventsPerSecond), hub.cfg.EventBurst),
		filters:   make(map[models.NotificationType]struct{}),
	}
}

// shutdown marks the connection closed. Idempotent; safe to call from any
// goroutine.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

// ID returns the client's stable ordering id.
func (c *Client) ID() uint64 {
	return c.id
}

// Principal returns the identity bound at handshake time.
func (c *Client) Principal() models.Principal {
	return c.principal
}

// Subscribe adds categories to the connection's filter set and returns the
// resulting set.
func (c *Client) Subscribe(types []models.NotificationType) []models.NotificationType {
	c.filterMu.Lock()
	defer c.filterMu.Unlock()
	for _, t := range types {
		if models.ValidNotificationType(t) {
			c.filters[t] = struct{}{}
		}
	}
	return c.filterSetLocked()
}

// Unsubscribe removes categories from the filter set and returns the
// resulting set. Removing the last category restores the default
// receive-everything behavior.
func (c *Client) Unsubscribe(types []models.NotificationType) []models.NotificationType {
	c.filterMu.Lock()
	defer c.filterMu.Unlock()
	for _, t := range types {
		delete(c.filters, t)
	}
	return c.filterSetLocked()
}

// WantsCategory reports whether the connection should receive a notification
// of the given category: true iff the category is subscribed or no filter is
// set.
func (c *Client) WantsCategory(t models.NotificationType) bool {
	c.filterMu.RLock()
	defer c.filterMu.RUnlock()
	if len(c.filters) == 0 {
		return true
	}
	_, ok := c.filters[t]
	return ok
}

func (c *Client) filterSetLocked() []models.NotificationType {
	// Stable order, same as the category enumeration.
	out := make([]models.NotificationType, 0, len(c.filters))
	for _, t := range models.NotificationTypes() {
		if _, ok := c.filters[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// ReadPump reads envelopes from the socket and dispatches them until the
// connection drops or the context is canceled.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	})

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logging.Warn().Err(err).
					Str("namespace", c.hub.namespace).
					Str("principal_id", c.principal.ID).
					Msg("unexpected websocket close")
			}
			return
		}

		if !c.limiter.Allow() {
			metrics.WSRateLimited.Inc()
			continue
		}

		c.hub.dispatch(ctx, c, &env)
	}
}

// WritePump drains the send queue to the socket and keeps the connection
// alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.hub.cfg.PingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case msg := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logging.Debug().Err(err).
					Str("namespace", c.hub.namespace).
					Msg("websocket write failed")
				return
			}
			metrics.RecordEventSent(c.hub.namespace, msg.Event)

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
