// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package realtime

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/config"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/eventbus"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/logging"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/metrics"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/models"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/store"
)

// NotificationService serves the notifications namespace: on-demand queries
// and read-state mutations over the socket, and fan-out of newly created
// notifications to the recipient's live connections.
//
// Delivery is at-most-once per connection. An offline recipient misses the
// push entirely and recovers the notification from the store on the next
// getRecent or REST fetch; there is no redelivery queue.
type NotificationService struct {
	hub   *Hub
	store *store.NotificationStore
	cfg   *config.NotificationsConfig
}

// NewNotificationService wires the service and installs its dispatch table on
// the hub.
func NewNotificationService(hub *Hub, st *store.NotificationStore, cfg *config.NotificationsConfig) *NotificationService {
	s := &NotificationService{hub: hub, store: st, cfg: cfg}

	hub.Handle(EvGetUnreadCount, s.handleGetUnreadCount)
	hub.Handle(EvSubscribe, s.handleSubscribe)
	hub.Handle(EvUnsubscribe, s.handleUnsubscribe)
	hub.Handle(EvGetRecent, s.handleGetRecent)
	hub.Handle(EvMarkRead, s.handleMarkRead)
	hub.Handle(EvMarkAllRead, s.handleMarkAllRead)

	return s
}

// Hub returns the namespace hub the service is bound to.
func (s *NotificationService) Hub() *Hub {
	return s.hub
}

func (s *NotificationService) handleGetUnreadCount(ctx context.Context, c *Client, _ json.RawMessage) {
	count, err := s.store.UnreadCount(ctx, c.principal.ID)
	if err != nil {
		s.hub.sendStoreError(c, EvGetUnreadCount, err)
		return
	}
	s.hub.SendTo(c, EvUnreadCount, &UnreadCountPayload{Count: count})
}

func (s *NotificationService) handleSubscribe(_ context.Context, c *Client, data json.RawMessage) {
	var req SubscribePayload
	if !s.hub.decode(c, EvSubscribe, data, &req) {
		return
	}
	types := c.Subscribe(req.Types)
	s.hub.SendTo(c, EvSubscribed, &SubscribedPayload{Types: types})
}

func (s *NotificationService) handleUnsubscribe(_ context.Context, c *Client, data json.RawMessage) {
	var req SubscribePayload
	if !s.hub.decode(c, EvUnsubscribe, data, &req) {
		return
	}
	types := c.Unsubscribe(req.Types)
	s.hub.SendTo(c, EvUnsubscribed, &SubscribedPayload{Types: types})
}

func (s *NotificationService) handleGetRecent(ctx context.Context, c *Client, data json.RawMessage) {
	limit := s.cfg.RecentDefaultLimit
	if len(data) > 0 {
		var req GetRecentPayload
		if !s.hub.decode(c, EvGetRecent, data, &req) {
			return
		}
		if req.Limit > 0 {
			limit = req.Limit
		}
	}
	if limit > s.cfg.RecentMaxLimit {
		limit = s.cfg.RecentMaxLimit
	}

	notifications, err := s.store.Recent(ctx, c.principal.ID, limit)
	if err != nil {
		s.hub.sendStoreError(c, EvGetRecent, err)
		return
	}
	s.hub.SendTo(c, EvRecent, &RecentPayload{Notifications: notifications})
}

func (s *NotificationService) handleMarkRead(ctx context.Context, c *Client, data json.RawMessage) {
	var req MarkReadPayload
	if !s.hub.decode(c, EvMarkRead, data, &req) {
		return
	}
	if req.NotificationID == "" {
		s.hub.sendError(c, EvMarkRead, CodeValidationError, "notificationId is required", nil)
		return
	}

	if err := s.store.MarkRead(ctx, c.principal.ID, req.NotificationID); err != nil {
		s.hub.sendStoreError(c, EvMarkRead, err)
		return
	}

	// Confirm to every connection of the principal, not just the caller, so
	// a second device clears its badge too.
	s.hub.SendToPrincipal(c.principal.ID, EvMarkedRead, &MarkedReadPayload{NotificationID: req.NotificationID})
}

func (s *NotificationService) handleMarkAllRead(ctx context.Context, c *Client, _ json.RawMessage) {
	marked, err := s.store.MarkAllRead(ctx, c.principal.ID)
	if err != nil {
		s.hub.sendStoreError(c, EvMarkAllRead, err)
		return
	}
	s.hub.SendToPrincipal(c.principal.ID, EvAllMarkedRead, &AllMarkedReadPayload{Marked: marked})
}

// Publish persists a notification and fans it out to the recipient's live
// connections whose filter matches the category. Each matching connection
// gets both the plain push and the category-qualified variant.
func (s *NotificationService) Publish(ctx context.Context, n *models.Notification) error {
	if err := s.store.Create(ctx, n); err != nil {
		return err
	}
	metrics.NotificationsPublished.WithLabelValues(string(n.Type)).Inc()

	s.deliver(s.hub.registry.PrincipalClients(n.RecipientID), n)
	return nil
}

// Broadcast pushes a system-wide notification to every connected socket
// regardless of recipient, honoring per-connection filters. Nothing is
// persisted; maintenance alerts are only meaningful live.
func (s *NotificationService) Broadcast(n *models.Notification) {
	metrics.NotificationsPublished.WithLabelValues(string(n.Type)).Inc()
	s.deliver(s.hub.registry.AllClients(), n)
}

func (s *NotificationService) deliver(clients []*Client, n *models.Notification) {
	for _, c := range clients {
		if !c.WantsCategory(n.Type) {
			metrics.NotificationsFiltered.Inc()
			continue
		}
		if s.hub.SendTo(c, EvNotificationNew, &NotificationPayload{Notification: n}) {
			metrics.NotificationsDelivered.Inc()
			s.hub.SendTo(c, EvNotificationTyped, &TypedNotificationPayload{Type: n.Type, Notification: n})
		}
	}
}

// HandleBusEvent converts a bus event into a publish or broadcast. Invoked by
// the NATS bridge for every event backend services emit.
func (s *NotificationService) HandleBusEvent(ctx context.Context, ev *eventbus.NotificationEvent) {
	if !models.ValidNotificationType(ev.Type) {
		logging.Warn().Str("type", string(ev.Type)).Msg("dropping bus event with unknown notification type")
		return
	}

	n := models.NewNotification(ev.RecipientID, ev.Title, ev.Message, ev.Type)
	n.RelatedEntity = ev.RelatedEntity
	n.Metadata = ev.Metadata

	if ev.Broadcast {
		s.Broadcast(n)
		return
	}
	if ev.RecipientID == "" {
		logging.Warn().Msg("dropping bus event without recipient")
		return
	}
	if err := s.Publish(ctx, n); err != nil {
		logging.Error().Err(err).Str("recipient_id", ev.RecipientID).Msg("failed to publish bus notification")
	}
}
