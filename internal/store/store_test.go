// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/config"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(&config.StoreConfig{Dir: ""})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNotificationStore_CreateAndRecent(t *testing.T) {
	s := newTestStore(t)
	ns := NewNotificationStore(s, &config.StoreConfig{})
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		n := models.NewNotification("user-1", fmt.Sprintf("title-%d", i), "body", models.NotificationTaskAssigned)
		n.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, ns.Create(ctx, n))
	}
	// Another recipient's notification must not leak into user-1's feed.
	other := models.NewNotification("user-2", "other", "body", models.NotificationSystemAlert)
	require.NoError(t, ns.Create(ctx, other))

	recent, err := ns.Recent(ctx, "user-1", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "title-4", recent[0].Title)
	assert.Equal(t, "title-3", recent[1].Title)
	assert.Equal(t, "title-2", recent[2].Title)

	all, err := ns.Recent(ctx, "user-1", 100)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestNotificationStore_RecentEmptyRecipient(t *testing.T) {
	s := newTestStore(t)
	ns := NewNotificationStore(s, &config.StoreConfig{})

	recent, err := ns.Recent(context.Background(), "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, recent)

	count, err := ns.UnreadCount(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNotificationStore_MarkRead(t *testing.T) {
	s := newTestStore(t)
	ns := NewNotificationStore(s, &config.StoreConfig{})
	ctx := context.Background()

	n := models.NewNotification("user-1", "hello", "body", models.NotificationCommentAdded)
	require.NoError(t, ns.Create(ctx, n))

	count, err := ns.UnreadCount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, ns.MarkRead(ctx, "user-1", n.ID.String()))

	count, err = ns.UnreadCount(ctx, "user-1")
	require.NoError(t, err)
	assert.Zero(t, count)

	// Marking twice is a no-op, not an error.
	require.NoError(t, ns.MarkRead(ctx, "user-1", n.ID.String()))
}

func TestNotificationStore_MarkReadWrongRecipient(t *testing.T) {
	s := newTestStore(t)
	ns := NewNotificationStore(s, &config.StoreConfig{})
	ctx := context.Background()

	n := models.NewNotification("user-1", "hello", "body", models.NotificationCommentAdded)
	require.NoError(t, ns.Create(ctx, n))

	err := ns.MarkRead(ctx, "user-2", n.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)

	err = ns.MarkRead(ctx, "user-1", uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNotificationStore_MarkAllReadIdempotent(t *testing.T) {
	s := newTestStore(t)
	ns := NewNotificationStore(s, &config.StoreConfig{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		n := models.NewNotification("user-1", "t", "b", models.NotificationSystemAlert)
		require.NoError(t, ns.Create(ctx, n))
	}

	marked, err := ns.MarkAllRead(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, marked)

	marked, err = ns.MarkAllRead(ctx, "user-1")
	require.NoError(t, err)
	assert.Zero(t, marked, "second markAllRead must change nothing")

	stats, err := ns.Stats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.NotificationStats{Total: 3, Unread: 0}, stats)
}

func TestChatStore_Lifecycle(t *testing.T) {
	s := newTestStore(t)
	cs := NewChatStore(s)
	ctx := context.Background()

	chat := models.NewChat("Ada", "ada@example.com", "billing", models.PriorityHigh)
	require.NoError(t, cs.Create(ctx, chat))

	loaded, err := cs.Get(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChatPending, loaded.Status)
	assert.Empty(t, loaded.AssignedAdmin)

	accepted, err := cs.Accept(ctx, chat.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.ChatActive, accepted.Status)
	assert.Equal(t, "admin-1", accepted.AssignedAdmin)

	closed, err := cs.Close(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChatClosed, closed.Status)
}

func TestChatStore_AcceptConflict(t *testing.T) {
	s := newTestStore(t)
	cs := NewChatStore(s)
	ctx := context.Background()

	chat := models.NewChat("Ada", "ada@example.com", "billing", "")
	require.NoError(t, cs.Create(ctx, chat))

	_, err := cs.Accept(ctx, chat.ID, "admin-1")
	require.NoError(t, err)

	_, err = cs.Accept(ctx, chat.ID, "admin-2")
	var assigned *AlreadyAssignedError
	require.ErrorAs(t, err, &assigned)
	assert.Equal(t, "admin-1", assigned.Assignee, "conflict must name the admin who won")
}

func TestChatStore_CloseRequiresActive(t *testing.T) {
	s := newTestStore(t)
	cs := NewChatStore(s)
	ctx := context.Background()

	chat := models.NewChat("Ada", "ada@example.com", "billing", "")
	require.NoError(t, cs.Create(ctx, chat))

	_, err := cs.Close(ctx, chat.ID)
	var transition *InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, "pending", transition.From)
}

func TestChatStore_MessageOrdering(t *testing.T) {
	s := newTestStore(t)
	cs := NewChatStore(s)
	ctx := context.Background()

	chat := models.NewChat("Ada", "ada@example.com", "general", "")
	require.NoError(t, cs.Create(ctx, chat))
	_, err := cs.Accept(ctx, chat.ID, "admin-1")
	require.NoError(t, err)

	for i := 1; i <= 10; i++ {
		msg := models.NewChatMessage(chat.ID, "customer", models.RoleUser, fmt.Sprintf("msg-%d", i))
		stored, err := cs.AppendMessage(ctx, msg)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), stored.Seq)
	}

	transcript, err := cs.Messages(ctx, chat.ID, 0)
	require.NoError(t, err)
	require.Len(t, transcript, 10)
	for i, msg := range transcript {
		assert.Equal(t, uint64(i+1), msg.Seq)
		assert.Equal(t, fmt.Sprintf("msg-%d", i+1), msg.Content)
	}
}

func TestChatStore_AppendToClosedChat(t *testing.T) {
	s := newTestStore(t)
	cs := NewChatStore(s)
	ctx := context.Background()

	chat := models.NewChat("Ada", "ada@example.com", "general", "")
	require.NoError(t, cs.Create(ctx, chat))
	_, err := cs.Accept(ctx, chat.ID, "admin-1")
	require.NoError(t, err)
	_, err = cs.Close(ctx, chat.ID)
	require.NoError(t, err)

	_, err = cs.AppendMessage(ctx, models.NewChatMessage(chat.ID, "customer", models.RoleUser, "late"))
	assert.ErrorIs(t, err, ErrChatClosed)
}

func TestChatStore_AppendToUnknownChat(t *testing.T) {
	s := newTestStore(t)
	cs := NewChatStore(s)

	_, err := cs.AppendMessage(context.Background(), models.NewChatMessage(uuid.New(), "x", models.RoleUser, "hi"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChatStore_ListByStatusAndAssignee(t *testing.T) {
	s := newTestStore(t)
	cs := NewChatStore(s)
	ctx := context.Background()

	var pendingIDs []uuid.UUID
	for i := 0; i < 3; i++ {
		chat := models.NewChat(fmt.Sprintf("c-%d", i), "c@example.com", "general", "")
		chat.CreatedAt = chat.CreatedAt.Add(time.Duration(i) * time.Second)
		require.NoError(t, cs.Create(ctx, chat))
		pendingIDs = append(pendingIDs, chat.ID)
	}

	_, err := cs.Accept(ctx, pendingIDs[1], "admin-1")
	require.NoError(t, err)

	pending, err := cs.ListByStatus(ctx, models.ChatPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.True(t, pending[0].CreatedAt.Before(pending[1].CreatedAt), "pending queue is oldest first")

	mine, err := cs.ListAssignedTo(ctx, "admin-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, pendingIDs[1], mine[0].ID)

	none, err := cs.ListAssignedTo(ctx, "admin-2")
	require.NoError(t, err)
	assert.Empty(t, none)

	stats, err := cs.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ChatStats{Pending: 2, Active: 1, Closed: 0}, stats)
}

func TestOpenRejectsBadDir(t *testing.T) {
	_, err := Open(&config.StoreConfig{Dir: "/dev/null/not-a-dir"})
	assert.Error(t, err)
}

func TestContextCancellation(t *testing.T) {
	s := newTestStore(t)
	ns := NewNotificationStore(s, &config.StoreConfig{})
	cs := NewChatStore(s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ns.Create(ctx, models.NewNotification("u", "t", "b", models.NotificationTest))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = cs.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, context.Canceled)

	_, err = cs.ListByStatus(ctx, models.ChatPending)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = ns.MarkAllRead(ctx, "u")
	assert.ErrorIs(t, err, context.Canceled)
}
