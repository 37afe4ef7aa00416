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

// Package storage persists the minimal session and user-settings state
// described in §6: a conversation-store collaborator keyed by session id,
// and a single settings record per user (§9 "ownership of keys" keeps
// everything else — session keys, static private keys — out of this layer
// entirely).
package storage

import "context"

// ConversationStore persists per-session conversation records.
type ConversationStore interface {
	// Put creates or overwrites the record for record.ID.
	Put(ctx context.Context, record ConversationRecord) error

	// Get retrieves a record by session id.
	Get(ctx context.Context, id string) (*ConversationRecord, error)

	// AppendMessage appends a message to a session's transcript and bumps
	// updated_at.
	AppendMessage(ctx context.Context, id string, msg Message) error

	// UpdateStatus updates a session's status and total_tokens (§4.6
	// complete_session/end_session).
	UpdateStatus(ctx context.Context, id string, status string, totalTokens uint64) error

	// List returns sessions, most recently updated first.
	List(ctx context.Context, limit, offset int) ([]*ConversationRecord, error)

	// Delete removes a session record.
	Delete(ctx context.Context, id string) error
}

// SettingsStore persists the single user-settings record (§6).
type SettingsStore interface {
	// Get retrieves the current settings, or the zero value if none have
	// been saved yet.
	Get(ctx context.Context) (UserSettings, error)

	// Put overwrites the settings record.
	Put(ctx context.Context, settings UserSettings) error

	// SetLastHostAddress updates only last_host_address (§4.6 step 5).
	SetLastHostAddress(ctx context.Context, hostAddress string) error
}

// Store combines both collaborators behind one connection/handle.
type Store interface {
	Conversations() ConversationStore
	Settings() SettingsStore

	Close() error
	Ping(ctx context.Context) error
}
