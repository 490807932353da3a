// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/config"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/models"
)

// raceRealtimeConfig uses a send buffer large enough that the slow-consumer
// drop path never fires; these tests exercise registration races, not
// backpressure.
func raceRealtimeConfig() *config.RealtimeConfig {
	cfg := testRealtimeConfig()
	cfg.SendBuffer = 1 << 15
	return cfg
}

func TestHub_SendToAfterUnregister(t *testing.T) {
	hub := NewHub(NamespaceNotifications, raceRealtimeConfig())
	c := newBareClient(hub, models.Principal{ID: "u1", Role: models.RoleUser})
	require.True(t, hub.Register(c))

	// A fan-out path snapshots the registry before the disconnect lands.
	snapshot := hub.Registry().PrincipalClients("u1")
	require.Len(t, snapshot, 1)

	hub.Unregister(c)

	assert.NotPanics(t, func() {
		assert.False(t, hub.SendTo(snapshot[0], EvNotificationNew, nil),
			"send to an unregistered connection reports failure")
	})
	assert.Zero(t, hub.SendToPrincipal("u1", EvNotificationNew, nil))
}

func TestHub_UnregisterRacesFanOut(t *testing.T) {
	hub := NewHub(NamespaceNotifications, raceRealtimeConfig())

	// Repeatedly disconnect one client while fan-out to the same principal
	// runs from other goroutines, the shape of a NATS-bridge delivery racing
	// a read-pump teardown.
	for i := 0; i < 50; i++ {
		c := newBareClient(hub, models.Principal{ID: "u1", Role: models.RoleUser})
		require.True(t, hub.Register(c))

		var wg sync.WaitGroup
		start := make(chan struct{})
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for j := 0; j < 20; j++ {
					hub.SendToPrincipal("u1", EvNotificationNew, nil)
				}
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			hub.Unregister(c)
		}()

		close(start)
		wg.Wait()
		assert.Zero(t, hub.Registry().Count())
	}
}

func TestHub_UnregisterIdempotent(t *testing.T) {
	hub := NewHub(NamespaceChat, raceRealtimeConfig())
	c := newBareClient(hub, models.Principal{ID: "u1", Role: models.RoleUser})
	require.True(t, hub.Register(c))

	hub.Unregister(c)
	assert.NotPanics(t, func() { hub.Unregister(c) })
}
