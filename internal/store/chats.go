// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/models"
)

const (
	chatKeyPrefix    = "chat:"
	chatMsgKeyPrefix = "chatmsg:"
	chatSeqKeyPrefix = "chatseq:"
)

// ChatStore persists support chats and their transcripts. Message sequence
// numbers are assigned inside the append transaction, which makes server-side
// arrival order the single ordering authority per chat.
type ChatStore struct {
	store *Store
}

// NewChatStore creates a chat store over the shared database.
func NewChatStore(s *Store) *ChatStore {
	return &ChatStore{store: s}
}

func chatKey(id uuid.UUID) []byte {
	return []byte(chatKeyPrefix + id.String())
}

func chatSeqKey(id uuid.UUID) []byte {
	return []byte(chatSeqKeyPrefix + id.String())
}

func chatMsgKey(chatID uuid.UUID, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", chatMsgKeyPrefix, chatID.String(), seq))
}

func chatMsgPrefix(chatID uuid.UUID) []byte {
	return []byte(chatMsgKeyPrefix + chatID.String() + ":")
}

// Create persists a new pending chat.
func (cs *ChatStore) Create(ctx context.Context, chat *models.Chat) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(chat)
	if err != nil {
		return fmt.Errorf("marshal chat: %w", err)
	}
	return cs.store.update(func(txn *badger.Txn) error {
		return txn.Set(chatKey(chat.ID), data)
	})
}

// Get loads a chat by id.
func (cs *ChatStore) Get(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var chat models.Chat
	err := cs.store.db.View(func(txn *badger.Txn) error {
		return getChat(txn, id, &chat)
	})
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func getChat(txn *badger.Txn, id uuid.UUID, chat *models.Chat) error {
	item, err := txn.Get(chatKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		return err
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, chat); err != nil {
			return fmt.Errorf("unmarshal chat: %w", err)
		}
		return nil
	})
}

// Accept transitions a pending chat to active and records the assignee. The
// check-and-set runs in one transaction so concurrent accepts resolve to
// exactly one winner; losers get AlreadyAssignedError naming that winner.
func (cs *ChatStore) Accept(ctx context.Context, chatID uuid.UUID, adminID string) (*models.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var chat models.Chat
	err := cs.store.update(func(txn *badger.Txn) error {
		if err := getChat(txn, chatID, &chat); err != nil {
			return err
		}

		switch chat.Status {
		case models.ChatActive:
			return &AlreadyAssignedError{Assignee: chat.AssignedAdmin}
		case models.ChatClosed:
			return ErrChatClosed
		}

		chat.Status = models.ChatActive
		chat.AssignedAdmin = adminID
		chat.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(&chat)
		if err != nil {
			return fmt.Errorf("marshal chat: %w", err)
		}
		return txn.Set(chatKey(chatID), data)
	})
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// Close transitions an active chat to closed. Pending chats cannot be closed;
// the lifecycle is strictly pending -> active -> closed.
func (cs *ChatStore) Close(ctx context.Context, chatID uuid.UUID) (*models.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var chat models.Chat
	err := cs.store.update(func(txn *badger.Txn) error {
		if err := getChat(txn, chatID, &chat); err != nil {
			return err
		}
		if chat.Status != models.ChatActive {
			return &InvalidTransitionError{From: string(chat.Status), To: string(models.ChatClosed)}
		}

		chat.Status = models.ChatClosed
		chat.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(&chat)
		if err != nil {
			return fmt.Errorf("marshal chat: %w", err)
		}
		return txn.Set(chatKey(chatID), data)
	})
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// AppendMessage assigns the next sequence number for the chat and persists the
// message. Appends to a closed chat are rejected. The returned message carries
// the assigned Seq.
func (cs *ChatStore) AppendMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err := cs.store.update(func(txn *badger.Txn) error {
		var chat models.Chat
		if err := getChat(txn, msg.ChatID, &chat); err != nil {
			return err
		}
		if chat.Status == models.ChatClosed {
			return ErrChatClosed
		}

		seq, err := nextSeq(txn, msg.ChatID)
		if err != nil {
			return err
		}
		msg.Seq = seq

		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		if err := txn.Set(chatMsgKey(msg.ChatID, seq), data); err != nil {
			return err
		}

		// Touch the chat so queue views sort by last activity.
		chat.UpdatedAt = time.Now().UTC()
		chatData, err := json.Marshal(&chat)
		if err != nil {
			return fmt.Errorf("marshal chat: %w", err)
		}
		return txn.Set(chatKey(msg.ChatID), chatData)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// nextSeq increments the per-chat counter within the caller's transaction.
// Sequence numbers start at 1.
func nextSeq(txn *badger.Txn, chatID uuid.UUID) (uint64, error) {
	key := chatSeqKey(chatID)
	var seq uint64

	item, err := txn.Get(key)
	switch err {
	case nil:
		if err := item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt sequence counter for chat %s", chatID)
			}
			seq = binary.BigEndian.Uint64(val)
			return nil
		}); err != nil {
			return 0, err
		}
	case badger.ErrKeyNotFound:
		seq = 0
	default:
		return 0, err
	}

	seq++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	if err := txn.Set(key, buf); err != nil {
		return 0, err
	}
	return seq, nil
}

// Messages returns the chat transcript in sequence order, oldest first. A
// limit of zero returns the full transcript.
func (cs *ChatStore) Messages(ctx context.Context, chatID uuid.UUID, limit int) ([]*models.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	messages := make([]*models.ChatMessage, 0, 64)
	prefix := chatMsgPrefix(chatID)

	err := cs.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(messages) >= limit {
				break
			}
			err := it.Item().Value(func(val []byte) error {
				var msg models.ChatMessage
				if err := json.Unmarshal(val, &msg); err != nil {
					return fmt.Errorf("unmarshal message: %w", err)
				}
				messages = append(messages, &msg)
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
	return messages, nil
}

// ListByStatus returns all chats in the given lifecycle state, oldest first,
// which is the order admins work the pending queue in.
func (cs *ChatStore) ListByStatus(ctx context.Context, status models.ChatStatus) ([]*models.Chat, error) {
	return cs.list(ctx, func(c *models.Chat) bool {
		return c.Status == status
	})
}

// ListAssignedTo returns the active chats assigned to the given admin, used to
// rejoin rooms after an admin reconnects.
func (cs *ChatStore) ListAssignedTo(ctx context.Context, adminID string) ([]*models.Chat, error) {
	return cs.list(ctx, func(c *models.Chat) bool {
		return c.Status == models.ChatActive && c.AssignedAdmin == adminID
	})
}

func (cs *ChatStore) list(ctx context.Context, keep func(*models.Chat) bool) ([]*models.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chats := make([]*models.Chat, 0, 16)
	prefix := []byte(chatKeyPrefix)

	err := cs.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var chat models.Chat
				if err := json.Unmarshal(val, &chat); err != nil {
					return fmt.Errorf("unmarshal chat: %w", err)
				}
				if keep(&chat) {
					chats = append(chats, &chat)
				}
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

	// Keys are uuids so scan order is arbitrary; queue views want oldest first.
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].CreatedAt.Before(chats[j].CreatedAt)
	})
	return chats, nil
}

// Stats counts chats per lifecycle state for the admin dashboard.
func (cs *ChatStore) Stats(ctx context.Context) (models.ChatStats, error) {
	var stats models.ChatStats
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	all, err := cs.list(ctx, func(*models.Chat) bool { return true })
	if err != nil {
		return stats, err
	}
	for _, c := range all {
		switch c.Status {
		case models.ChatPending:
			stats.Pending++
		case models.ChatActive:
			stats.Active++
		case models.ChatClosed:
			stats.Closed++
		}
	}
	return stats, nil
}
