// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package realtime

import (
	"context"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/eventbus"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/logging"
)

// NATSBridge subscribes to notification events on the bus and feeds them into
// the fan-out service. This is the ingestion path for backend services: they
// publish to NATS instead of calling the realtime server directly.
type NATSBridge struct {
	bus           *eventbus.Bus
	notifications *NotificationService
}

// NewNATSBridge creates a bridge between the bus and the notification
// service.
func NewNATSBridge(bus *eventbus.Bus, notifications *NotificationService) *NATSBridge {
	return &NATSBridge{bus: bus, notifications: notifications}
}

// Serve subscribes and blocks until the context is canceled, then
// unsubscribes. Implements suture.Service so the supervisor restarts the
// subscription if it fails.
func (b *NATSBridge) Serve(ctx context.Context) error {
	sub, err := b.bus.SubscribeNotifications(func(ev *eventbus.NotificationEvent) {
		b.notifications.HandleBusEvent(ctx, ev)
	})
	if err != nil {
		return err
	}

	<-ctx.Done()

	if err := sub.Unsubscribe(); err != nil {
		logging.Warn().Err(err).Msg("failed to unsubscribe NATS bridge")
	}
	logging.Info().Str("component", "nats-bridge").Msg("NATS bridge stopped")
	return ctx.Err()
}

// String names the service in supervisor logs.
func (b *NATSBridge) String() string {
	return "nats-bridge"
}
