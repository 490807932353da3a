// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

// Package store persists notifications, chats and chat messages in BadgerDB.
//
// Durability is the store's job: the socket layer delivers at-most-once to
// live connections, and anything a client missed is recovered from here via
// getRecent and the REST history endpoints.
//
// Key layout:
//
//	notif:<recipient>:<reverse-ts>:<id>  notification JSON (newest first on prefix scan)
//	notifid:<id>                         primary key of the notification (markRead lookup)
//	chat:<id>                            chat JSON
//	chatmsg:<chat>:<seq>                 message JSON, seq zero-padded (ascending scan = transcript order)
//	chatseq:<chat>                       per-chat monotonic sequence counter
package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/config"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/logging"
)

// Sentinel errors shared by both stores.
var (
	ErrNotFound   = errors.New("store: not found")
	ErrChatClosed = errors.New("store: chat is closed")
)

// AlreadyAssignedError is returned when acceptChat races: the chat is already
// active and Assignee names the admin who won.
type AlreadyAssignedError struct {
	Assignee string
}

func (e *AlreadyAssignedError) Error() string {
	return fmt.Sprintf("store: chat already assigned to %s", e.Assignee)
}

// InvalidTransitionError reports a chat lifecycle violation. Transitions are
// strictly pending -> active -> closed.
type InvalidTransitionError struct {
	From, To string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("store: invalid chat transition %s -> %s", e.From, e.To)
}

// Store wraps a shared BadgerDB instance. The notification and chat stores
// are views over the same database.
type Store struct {
	db *badger.DB
}

// Open opens the BadgerDB at the configured directory. An empty directory
// selects an in-memory database, used by tests.
func Open(cfg *config.StoreConfig) (*Store, error) {
	var opts badger.Options
	if cfg.Dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.Dir, err)
	}

	logging.Info().Str("dir", cfg.Dir).Bool("in_memory", cfg.Dir == "").Msg("store opened")
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for maintenance tooling.
func (s *Store) DB() *badger.DB {
	return s.db
}

// update runs fn in a read-write transaction, retrying on optimistic
// conflicts. Conflicts happen when a customer and an admin append to the same
// chat concurrently.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	const maxRetries = 5
	var err error
	for i := 0; i < maxRetries; i++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}
