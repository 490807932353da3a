// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package eventbus

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/config"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/logging"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/metrics"
)

// Bus is a connected NATS client for publishing and consuming notification
// events. Delivery is at-most-once: a subscriber that is down misses events,
// and clients recover missed notifications from the store on reconnect.
type Bus struct {
	conn   *nats.Conn
	prefix string
}

// Connect dials NATS with unlimited reconnects and logs connection state
// transitions.
func Connect(url string, cfg *config.NATSConfig) (*Bus, error) {
	conn, err := nats.Connect(url,
		nats.Name("taskflow-realtime"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logging.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logging.Info().Msg("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}

	logging.Info().Str("url", conn.ConnectedUrl()).Msg("connected to NATS")
	return &Bus{conn: conn, prefix: cfg.SubjectPrefix}, nil
}

// PublishNotification publishes one notification event to its type subject.
func (b *Bus) PublishNotification(ev *NotificationEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal notification event: %w", err)
	}
	subject := NotificationSubject(b.prefix, ev.Type)
	if err := b.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	metrics.BusEventsPublished.Inc()
	return nil
}

// SubscribeNotifications consumes all notification events under the prefix.
// Events that fail to parse are counted and dropped; one poison message must
// not stall the feed.
func (b *Bus) SubscribeNotifications(handler func(*NotificationEvent)) (*nats.Subscription, error) {
	subject := NotificationWildcard(b.prefix)
	sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		metrics.BusEventsConsumed.Inc()

		var ev NotificationEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			metrics.BusEventsParseFailed.Inc()
			logging.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping unparseable bus event")
			return
		}
		handler(&ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	logging.Info().Str("subject", subject).Msg("subscribed to notification events")
	return sub, nil
}

// IsConnected reports whether the client currently has a live connection.
func (b *Bus) IsConnected() bool {
	return b.conn.IsConnected()
}

// Close drains in-flight messages and closes the connection.
func (b *Bus) Close() {
	if err := b.conn.Drain(); err != nil {
		logging.Warn().Err(err).Msg("NATS drain failed, closing hard")
		b.conn.Close()
	}
}
