// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/config"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/models"
)

const (
	notifKeyPrefix = "notif:"
	notifIDPrefix  = "notifid:"
)

// NotificationStore persists notifications with per-recipient ordering and
// read tracking. Keys embed a reverse timestamp so that a plain prefix scan
// yields newest-first without a secondary index.
type NotificationStore struct {
	store     *Store
	retention time.Duration
}

// NewNotificationStore creates a notification store over the shared database.
func NewNotificationStore(s *Store, cfg *config.StoreConfig) *NotificationStore {
	return &NotificationStore{
		store:     s,
		retention: cfg.NotificationRetention,
	}
}

// notifKey builds the primary key: notif:<recipient>:<reverse-ts>:<id>.
// Reverse timestamp = MaxInt64 - UnixNano, zero-padded so lexicographic order
// is newest-first.
func notifKey(recipientID string, createdAt time.Time, id string) []byte {
	rev := uint64(math.MaxInt64) - uint64(createdAt.UnixNano())
	return []byte(fmt.Sprintf("%s%s:%020d:%s", notifKeyPrefix, recipientID, rev, id))
}

func notifRecipientPrefix(recipientID string) []byte {
	return []byte(notifKeyPrefix + recipientID + ":")
}

func notifIDKey(id string) []byte {
	return []byte(notifIDPrefix + id)
}

// Create persists a notification. The retention TTL, when configured, expires
// both the record and its id index together.
func (ns *NotificationStore) Create(ctx context.Context, n *models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	key := notifKey(n.RecipientID, n.CreatedAt, n.ID.String())
	return ns.store.update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, data)
		idEntry := badger.NewEntry(notifIDKey(n.ID.String()), key)
		if ns.retention > 0 {
			entry = entry.WithTTL(ns.retention)
			idEntry = idEntry.WithTTL(ns.retention)
		}
		if err := txn.SetEntry(entry); err != nil {
			return err
		}
		return txn.SetEntry(idEntry)
	})
}

// Recent returns the recipient's most recent notifications, newest first,
// bounded by limit.
func (ns *NotificationStore) Recent(ctx context.Context, recipientID string, limit int) ([]*models.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []*models.Notification{}, nil
	}

	notifications := make([]*models.Notification, 0, limit)
	prefix := notifRecipientPrefix(recipientID)

	err := ns.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix) && len(notifications) < limit; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var n models.Notification
				if err := json.Unmarshal(val, &n); err != nil {
					return fmt.Errorf("unmarshal notification: %w", err)
				}
				notifications = append(notifications, &n)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// UnreadCount counts the recipient's unread notifications.
func (ns *NotificationStore) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	stats, err := ns.Stats(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	return stats.Unread, nil
}

// Stats returns total and unread counts for the recipient.
func (ns *NotificationStore) Stats(ctx context.Context, recipientID string) (models.NotificationStats, error) {
	var stats models.NotificationStats
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	prefix := notifRecipientPrefix(recipientID)
	err := ns.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var n models.Notification
				if err := json.Unmarshal(val, &n); err != nil {
					return fmt.Errorf("unmarshal notification: %w", err)
				}
				stats.Total++
				if !n.Read {
					stats.Unread++
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return stats, err
}

// MarkRead marks a single notification read. Returns ErrNotFound when the id
// is unknown or belongs to a different recipient, so callers cannot mark
// someone else's notification through id guessing.
func (ns *NotificationStore) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return ns.store.update(func(txn *badger.Txn) error {
		idItem, err := txn.Get(notifIDKey(notificationID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return ErrNotFound
			}
			return err
		}

		var key []byte
		if err := idItem.Value(func(val []byte) error {
			key = append([]byte{}, val...)
			return nil
		}); err != nil {
			return err
		}

		item, err := txn.Get(key)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return ErrNotFound
			}
			return err
		}

		var n models.Notification
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &n)
		}); err != nil {
			return fmt.Errorf("unmarshal notification: %w", err)
		}

		if n.RecipientID != recipientID {
			return ErrNotFound
		}
		if n.Read {
			return nil
		}

		n.Read = true
		data, err := json.Marshal(&n)
		if err != nil {
			return fmt.Errorf("marshal notification: %w", err)
		}
		return setPreservingTTL(txn, item, key, data)
	})
}

// MarkAllRead marks every unread notification for the recipient read and
// returns how many changed. Idempotent: a second call returns zero.
func (ns *NotificationStore) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	marked := 0
	prefix := notifRecipientPrefix(recipientID)
	err := ns.store.update(func(txn *badger.Txn) error {
		marked = 0
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var n models.Notification
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &n)
			}); err != nil {
				return fmt.Errorf("unmarshal notification: %w", err)
			}
			if n.Read {
				continue
			}

			n.Read = true
			data, err := json.Marshal(&n)
			if err != nil {
				return fmt.Errorf("marshal notification: %w", err)
			}
			if err := setPreservingTTL(txn, item, item.KeyCopy(nil), data); err != nil {
				return err
			}
			marked++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}

// setPreservingTTL rewrites a value while keeping its remaining expiry, so a
// read-state flip does not reset the retention clock.
func setPreservingTTL(txn *badger.Txn, item *badger.Item, key, data []byte) error {
	entry := badger.NewEntry(key, data)
	if exp := item.ExpiresAt(); exp > 0 {
		remaining := time.Until(time.Unix(int64(exp), 0))
		if remaining <= 0 {
			// Already past expiry; let badger reap it instead of resurrecting.
			return nil
		}
		entry = entry.WithTTL(remaining)
	}
	return txn.SetEntry(entry)
}
