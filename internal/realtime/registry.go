// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package realtime

import (
	"sort"
	"sync"
)

// Room name helpers. Personal rooms and chat rooms are prefixed so the two
// key spaces cannot collide with the shared admins room.
const AdminsRoom = "admins"

// PersonalRoom names the room every connection of a principal joins at
// handshake time.
func PersonalRoom(principalID string) string {
	return "user:" + principalID
}

// ChatRoom names the multicast group for one support chat.
func ChatRoom(chatID string) string {
	return "chat:" + chatID
}

// Registry tracks live connections, the principal index and room membership
// for one namespace. It is an explicit object owned by the hub, handed to the
// notification and chat coordinators by reference. All methods are safe for
// concurrent use.
type Registry struct {
	mu sync.RWMutex

	clients     map[*Client]struct{}
	byPrincipal map[string]map[*Client]struct{}

	// rooms is the room-key -> members multimap; clientRooms is the reverse
	// index so disconnect can leave everything in O(rooms of client).
	rooms       map[string]map[*Client]struct{}
	clientRooms map[*Client]map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		clients:     make(map[*Client]struct{}),
		byPrincipal: make(map[string]map[*Client]struct{}),
		rooms:       make(map[string]map[*Client]struct{}),
		clientRooms: make(map[*Client]map[string]struct{}),
	}
}

// Add registers a connection under its principal.
func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[c] = struct{}{}
	set, ok := r.byPrincipal[c.principal.ID]
	if !ok {
		set = make(map[*Client]struct{})
		r.byPrincipal[c.principal.ID] = set
	}
	set[c] = struct{}{}
}

// Remove deregisters a connection and leaves all its rooms. Reports whether
// the client was registered, so the hub closes each send channel exactly once.
func (r *Registry) Remove(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[c]; !ok {
		return false
	}
	delete(r.clients, c)

	if set, ok := r.byPrincipal[c.principal.ID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(r.byPrincipal, c.principal.ID)
		}
	}

	for room := range r.clientRooms[c] {
		if members, ok := r.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(r.rooms, room)
			}
		}
	}
	delete(r.clientRooms, c)
	return true
}

// Join adds a connection to a room. Idempotent.
func (r *Registry) Join(c *Client, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[c]; !ok {
		return
	}

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		r.rooms[room] = members
	}
	members[c] = struct{}{}

	joined, ok := r.clientRooms[c]
	if !ok {
		joined = make(map[string]struct{})
		r.clientRooms[c] = joined
	}
	joined[room] = struct{}{}
}

// Leave removes a connection from a room.
func (r *Registry) Leave(c *Client, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	if joined, ok := r.clientRooms[c]; ok {
		delete(joined, room)
	}
}

// InRoom reports whether the connection is a member of the room.
func (r *Registry) InRoom(c *Client, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.rooms[room]
	if !ok {
		return false
	}
	_, ok = members[c]
	return ok
}

// RoomClients returns the members of a room in stable id order, so fan-out
// delivery order is deterministic in tests.
func (r *Registry) RoomClients(room string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedClients(r.rooms[room])
}

// PrincipalClients returns all live connections of one principal, stable
// order.
func (r *Registry) PrincipalClients(principalID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedClients(r.byPrincipal[principalID])
}

// AllClients returns every live connection, stable order.
func (r *Registry) AllClients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedClients(r.clients)
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// RoomCount returns the number of members in a room.
func (r *Registry) RoomCount(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

func sortedClients(set map[*Client]struct{}) []*Client {
	clients := make([]*Client, 0, len(set))
	for c := range set {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}
