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

package storage

import "time"

// ConversationMetadata is the §6 "persisted state" metadata block for one
// session.
type ConversationMetadata struct {
	ChainID     uint64    `json:"chain_id"`
	Model       string    `json:"model"`
	Provider    string    `json:"provider"`
	Endpoint    string    `json:"endpoint"`
	JobID       string    `json:"job_id"`
	Status      string    `json:"status"`
	TotalTokens uint64    `json:"total_tokens"`
	StartTime   time.Time `json:"start_time"`
	Encryption  bool      `json:"encryption"`
}

// Message is one stored turn of a conversation. Content is stored in the
// clear; the wire-level encryption in §4.2/§4.4 protects it only in
// transit.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationRecord is the §6 persisted-state shape for one session.
type ConversationRecord struct {
	ID        string               `json:"id"`
	Metadata  ConversationMetadata `json:"metadata"`
	Messages  []Message            `json:"messages,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// UserSettings is the §6 user-settings record.
type UserSettings struct {
	SelectedModel         string `json:"selected_model"`
	PreferredPaymentToken string `json:"preferred_payment_token"`
	HostSelectionMode     string `json:"host_selection_mode"` // AUTO | CHEAPEST | SPECIFIC
	PreferredHostAddress  string `json:"preferred_host_address,omitempty"`
	LastHostAddress       string `json:"last_host_address,omitempty"`
}
