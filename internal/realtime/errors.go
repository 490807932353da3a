// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package realtime

import (
	"errors"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/metrics"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/store"
)

// Error codes carried by the "error" event. Business errors are scoped to the
// offending connection and never tear it down; authentication failures are the
// exception and are rejected before the upgrade completes.
const (
	CodeAuthRequired    = "AUTH_REQUIRED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeValidationError = "VALIDATION_ERROR"
	CodeConflict        = "CONFLICT"
)

// ErrorPayload is the data of an "error" event. Event echoes the inbound
// event name that failed, so clients can correlate without request ids.
type ErrorPayload struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Event   string                 `json:"event,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// sendError emits an error event to one connection and counts it.
func (h *Hub) sendError(c *Client, inboundEvent, code, message string, details map[string]interface{}) {
	metrics.RecordWSError(h.namespace, code)
	h.SendTo(c, EvError, &ErrorPayload{
		Code:    code,
		Message: message,
		Event:   inboundEvent,
		Details: details,
	})
}

// sendStoreError maps store failures onto the wire taxonomy.
func (h *Hub) sendStoreError(c *Client, inboundEvent string, err error) {
	var assigned *store.AlreadyAssignedError
	var transition *store.InvalidTransitionError

	switch {
	case errors.Is(err, store.ErrNotFound):
		h.sendError(c, inboundEvent, CodeNotFound, "not found", nil)
	case errors.As(err, &assigned):
		h.sendError(c, inboundEvent, CodeConflict, "chat already assigned", map[string]interface{}{
			"assignee": assigned.Assignee,
		})
	case errors.Is(err, store.ErrChatClosed):
		h.sendError(c, inboundEvent, CodeConflict, "chat is closed", nil)
	case errors.As(err, &transition):
		h.sendError(c, inboundEvent, CodeConflict, err.Error(), nil)
	default:
		h.sendError(c, inboundEvent, CodeValidationError, "request failed", nil)
	}
}
