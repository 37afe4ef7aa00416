// Copyright (C) 2025 fabstir
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package memory implements storage.Store with plain in-process maps, for
// tests and single-process deployments.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fabstir/llm-marketplace-sdk/pkg/storage"
)

// Store implements storage.Store with in-memory maps.
type Store struct {
	conversationsMu sync.RWMutex
	conversations   map[string]*storage.ConversationRecord

	settingsMu sync.RWMutex
	settings   storage.UserSettings

	conversationStore *ConversationStore
	settingsStore     *SettingsStore
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	s := &Store{
		conversations: make(map[string]*storage.ConversationRecord),
	}
	s.conversationStore = &ConversationStore{store: s}
	s.settingsStore = &SettingsStore{store: s}
	return s
}

// Conversations returns the conversation collaborator.
func (s *Store) Conversations() storage.ConversationStore { return s.conversationStore }

// Settings returns the settings collaborator.
func (s *Store) Settings() storage.SettingsStore { return s.settingsStore }

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// Ping always succeeds for the in-memory store.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Clear removes all data. Useful between tests.
func (s *Store) Clear() {
	s.conversationsMu.Lock()
	s.conversations = make(map[string]*storage.ConversationRecord)
	s.conversationsMu.Unlock()

	s.settingsMu.Lock()
	s.settings = storage.UserSettings{}
	s.settingsMu.Unlock()
}

// ConversationStore implements storage.ConversationStore.
type ConversationStore struct {
	store *Store
}

func (c *ConversationStore) Put(ctx context.Context, record storage.ConversationRecord) error {
	c.store.conversationsMu.Lock()
	defer c.store.conversationsMu.Unlock()

	recordCopy := record
	recordCopy.Messages = append([]storage.Message(nil), record.Messages...)
	c.store.conversations[record.ID] = &recordCopy
	return nil
}

func (c *ConversationStore) Get(ctx context.Context, id string) (*storage.ConversationRecord, error) {
	c.store.conversationsMu.RLock()
	defer c.store.conversationsMu.RUnlock()

	record, ok := c.store.conversations[id]
	if !ok {
		return nil, fmt.Errorf("storage: conversation not found: %s", id)
	}
	recordCopy := *record
	recordCopy.Messages = append([]storage.Message(nil), record.Messages...)
	return &recordCopy, nil
}

func (c *ConversationStore) AppendMessage(ctx context.Context, id string, msg storage.Message) error {
	c.store.conversationsMu.Lock()
	defer c.store.conversationsMu.Unlock()

	record, ok := c.store.conversations[id]
	if !ok {
		return fmt.Errorf("storage: conversation not found: %s", id)
	}
	record.Messages = append(record.Messages, msg)
	record.UpdatedAt = time.Now()
	return nil
}

func (c *ConversationStore) UpdateStatus(ctx context.Context, id string, status string, totalTokens uint64) error {
	c.store.conversationsMu.Lock()
	defer c.store.conversationsMu.Unlock()

	record, ok := c.store.conversations[id]
	if !ok {
		return fmt.Errorf("storage: conversation not found: %s", id)
	}
	record.Metadata.Status = status
	record.Metadata.TotalTokens = totalTokens
	record.UpdatedAt = time.Now()
	return nil
}

func (c *ConversationStore) List(ctx context.Context, limit, offset int) ([]*storage.ConversationRecord, error) {
	c.store.conversationsMu.RLock()
	defer c.store.conversationsMu.RUnlock()

	all := make([]*storage.ConversationRecord, 0, len(c.store.conversations))
	for _, record := range c.store.conversations {
		recordCopy := *record
		all = append(all, &recordCopy)
	}
	sortByUpdatedAtDesc(all)

	if offset >= len(all) {
		return []*storage.ConversationRecord{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (c *ConversationStore) Delete(ctx context.Context, id string) error {
	c.store.conversationsMu.Lock()
	defer c.store.conversationsMu.Unlock()

	if _, ok := c.store.conversations[id]; !ok {
		return fmt.Errorf("storage: conversation not found: %s", id)
	}
	delete(c.store.conversations, id)
	return nil
}

func sortByUpdatedAtDesc(records []*storage.ConversationRecord) {
	for i := 1; i < len(records); i++ {
		for j := i; j > 0 && records[j].UpdatedAt.After(records[j-1].UpdatedAt); j-- {
			records[j], records[j-1] = records[j-1], records[j]
		}
	}
}

// SettingsStore implements storage.SettingsStore.
type SettingsStore struct {
	store *Store
}

func (s *SettingsStore) Get(ctx context.Context) (storage.UserSettings, error) {
	s.store.settingsMu.RLock()
	defer s.store.settingsMu.RUnlock()
	return s.store.settings, nil
}

func (s *SettingsStore) Put(ctx context.Context, settings storage.UserSettings) error {
	s.store.settingsMu.Lock()
	defer s.store.settingsMu.Unlock()
	s.store.settings = settings
	return nil
}

func (s *SettingsStore) SetLastHostAddress(ctx context.Context, hostAddress string) error {
	s.store.settingsMu.Lock()
	defer s.store.settingsMu.Unlock()
	s.store.settings.LastHostAddress = hostAddress
	return nil
}
