// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package services

import (
	"context"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/realtime"
)

// HubService supervises one namespace hub. A restart gives the hub a clean
// shutdown of its connections; clients reconnect and re-register.
type HubService struct {
	hub *realtime.Hub
}

// NewHubService wraps a hub for supervision.
func NewHubService(hub *realtime.Hub) *HubService {
	return &HubService{hub: hub}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String names the service in supervisor logs.
func (s *HubService) String() string {
	return "hub-" + s.hub.Namespace()
}
