// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/config"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/models"
)

func testRealtimeConfig() *config.RealtimeConfig {
	return &config.RealtimeConfig{
		SendBuffer:      16,
		WriteWait:       time.Second,
		PongWait:        time.Second,
		MaxMessageSize:  64 * 1024,
		EventsPerSecond: 1000,
		EventBurst:      1000,
	}
}

func newBareClient(hub *Hub, principal models.Principal) *Client {
	return NewClient(hub, nil, principal)
}

func TestRegistry_AddRemove(t *testing.T) {
	hub := NewHub(NamespaceNotifications, testRealtimeConfig())
	r := NewRegistry()

	c1 := newBareClient(hub, models.Principal{ID: "u1", Role: models.RoleUser})
	c2 := newBareClient(hub, models.Principal{ID: "u1", Role: models.RoleUser})

	r.Add(c1)
	r.Add(c2)
	assert.Equal(t, 2, r.Count())
	assert.Len(t, r.PrincipalClients("u1"), 2, "one principal may hold multiple connections")

	require.True(t, r.Remove(c1))
	assert.False(t, r.Remove(c1), "double remove reports not registered")
	assert.Len(t, r.PrincipalClients("u1"), 1)

	require.True(t, r.Remove(c2))
	assert.Empty(t, r.PrincipalClients("u1"))
	assert.Zero(t, r.Count())
}

func TestRegistry_RoomMultimap(t *testing.T) {
	hub := NewHub(NamespaceChat, testRealtimeConfig())
	r := NewRegistry()

	a := newBareClient(hub, models.Principal{ID: "admin-1", Role: models.RoleAdmin})
	b := newBareClient(hub, models.Principal{ID: "u1", Role: models.RoleUser})
	r.Add(a)
	r.Add(b)

	room := ChatRoom("c1")
	r.Join(a, room)
	r.Join(b, room)
	r.Join(b, room) // idempotent

	assert.True(t, r.InRoom(a, room))
	assert.True(t, r.InRoom(b, room))
	assert.Equal(t, 2, r.RoomCount(room))

	r.Leave(a, room)
	assert.False(t, r.InRoom(a, room))
	assert.Equal(t, 1, r.RoomCount(room))

	// Disconnect leaves all rooms.
	r.Remove(b)
	assert.Zero(t, r.RoomCount(room))
	assert.False(t, r.InRoom(b, room))
}

func TestRegistry_JoinRequiresRegistration(t *testing.T) {
	hub := NewHub(NamespaceChat, testRealtimeConfig())
	r := NewRegistry()

	c := newBareClient(hub, models.Principal{ID: "u1", Role: models.RoleUser})
	r.Join(c, ChatRoom("c1"))
	assert.False(t, r.InRoom(c, ChatRoom("c1")), "unregistered clients cannot join rooms")
}

func TestRegistry_StableOrdering(t *testing.T) {
	hub := NewHub(NamespaceNotifications, testRealtimeConfig())
	r := NewRegistry()

	var clients []*Client
	for i := 0; i < 5; i++ {
		c := newBareClient(hub, models.Principal{ID: "u1", Role: models.RoleUser})
		r.Add(c)
		clients = append(clients, c)
	}

	got := r.PrincipalClients("u1")
	require.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].ID(), got[i].ID(), "fan-out order follows client ids")
	}
	assert.Equal(t, clients[0], got[0])
}

func TestClient_FilterSemantics(t *testing.T) {
	hub := NewHub(NamespaceNotifications, testRealtimeConfig())
	c := newBareClient(hub, models.Principal{ID: "u1", Role: models.RoleUser})

	// Default: no filter means receive all categories.
	for _, typ := range models.NotificationTypes() {
		assert.True(t, c.WantsCategory(typ))
	}

	set := c.Subscribe([]models.NotificationType{models.NotificationTaskAssigned})
	assert.Equal(t, []models.NotificationType{models.NotificationTaskAssigned}, set)

	assert.True(t, c.WantsCategory(models.NotificationTaskAssigned))
	assert.False(t, c.WantsCategory(models.NotificationCommentAdded))
	assert.False(t, c.WantsCategory(models.NotificationSystemAlert))

	set = c.Subscribe([]models.NotificationType{models.NotificationSystemAlert, "bogus"})
	assert.Equal(t, []models.NotificationType{models.NotificationTaskAssigned, models.NotificationSystemAlert}, set,
		"unknown categories are ignored")

	// Removing the last filters restores receive-all.
	set = c.Unsubscribe([]models.NotificationType{models.NotificationTaskAssigned, models.NotificationSystemAlert})
	assert.Empty(t, set)
	assert.True(t, c.WantsCategory(models.NotificationCommentAdded))
}
