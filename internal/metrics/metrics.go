// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the realtime server:
// - WebSocket connection counts per namespace
// - Inbound/outbound event throughput and drops
// - Notification fan-out and chat lifecycle counters
// - API endpoint latency
// - Store operation durations

var (
	// WebSocket Metrics
	WSConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ws_connections",
			Help: "Current number of active WebSocket connections",
		},
		[]string{"namespace"}, // "notifications", "chat"
	)

	WSEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_events_received_total",
			Help: "Total number of inbound WebSocket events",
		},
		[]string{"namespace", "event"},
	)

	WSEventsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_events_sent_total",
			Help: "Total number of outbound WebSocket events",
		},
		[]string{"namespace", "event"},
	)

	WSEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_events_dropped_total",
			Help: "Total number of events dropped because a connection's send buffer was full",
		},
		[]string{"namespace"},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_errors_total",
			Help: "Total number of WebSocket protocol errors sent to clients",
		},
		[]string{"namespace", "code"}, // AUTH_REQUIRED, FORBIDDEN, NOT_FOUND, VALIDATION_ERROR, CONFLICT
	)

	WSHandshakeRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_handshake_rejections_total",
			Help: "Total number of WebSocket upgrades rejected during authentication",
		},
		[]string{"namespace", "reason"}, // "missing_token", "invalid_token", "expired_token", "timeout"
	)

	WSRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_rate_limited_events_total",
			Help: "Total number of inbound events discarded by the per-connection rate limiter",
		},
	)

	// Notification Metrics
	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_published_total",
			Help: "Total number of notifications accepted for fan-out",
		},
		[]string{"type"},
	)

	NotificationsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_delivered_total",
			Help: "Total number of notification events delivered to live connections",
		},
	)

	NotificationsFiltered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_filtered_total",
			Help: "Total number of notification deliveries suppressed by category filters",
		},
	)

	// Chat Metrics
	ChatsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chats_started_total",
			Help: "Total number of support chats created",
		},
	)

	ChatsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chats_accepted_total",
			Help: "Total number of support chats accepted by an admin",
		},
	)

	ChatsClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chats_closed_total",
			Help: "Total number of support chats closed",
		},
	)

	ChatAcceptConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_accept_conflicts_total",
			Help: "Total number of accept attempts that lost the assignment race",
		},
	)

	ChatMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total number of chat messages appended",
		},
		[]string{"sender_role"},
	)

	// NATS Bridge Metrics
	BusEventsConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bus_events_consumed_total",
			Help: "Total number of notification events consumed from the bus",
		},
	)

	BusEventsParseFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bus_events_parse_failed_total",
			Help: "Total number of bus events dropped because they failed to parse",
		},
	)

	BusEventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bus_events_published_total",
			Help: "Total number of events published to the bus",
		},
	)

	// API Metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of REST API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status_code"},
	)

	// Store Metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of BadgerDB store operations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
		[]string{"operation"},
	)
)

// RecordAPIRequest tracks a completed REST request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Observe(duration.Seconds())
}

// RecordStoreOperation tracks a store call's duration.
func RecordStoreOperation(operation string, duration time.Duration) {
	StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ConnectionOpened increments the live connection gauge for a namespace.
func ConnectionOpened(namespace string) {
	WSConnections.WithLabelValues(namespace).Inc()
}

// ConnectionClosed decrements the live connection gauge for a namespace.
func ConnectionClosed(namespace string) {
	WSConnections.WithLabelValues(namespace).Dec()
}

// RecordEventReceived tracks one inbound event.
func RecordEventReceived(namespace, event string) {
	WSEventsReceived.WithLabelValues(namespace, event).Inc()
}

// RecordEventSent tracks one outbound event.
func RecordEventSent(namespace, event string) {
	WSEventsSent.WithLabelValues(namespace, event).Inc()
}

// RecordEventDropped tracks a slow-consumer drop.
func RecordEventDropped(namespace string) {
	WSEventsDropped.WithLabelValues(namespace).Inc()
}

// RecordWSError tracks an error event sent to a client.
func RecordWSError(namespace, code string) {
	WSErrors.WithLabelValues(namespace, code).Inc()
}

// RecordHandshakeRejection tracks a rejected upgrade.
func RecordHandshakeRejection(namespace, reason string) {
	WSHandshakeRejections.WithLabelValues(namespace, reason).Inc()
}
