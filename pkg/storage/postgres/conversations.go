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

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fabstir/llm-marketplace-sdk/pkg/storage"
)

// ConversationStore implements storage.ConversationStore for PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE conversations (
//		id            TEXT PRIMARY KEY,
//		chain_id      BIGINT NOT NULL,
//		model         TEXT NOT NULL,
//		provider      TEXT NOT NULL,
//		endpoint      TEXT NOT NULL,
//		job_id        TEXT NOT NULL,
//		status        TEXT NOT NULL,
//		total_tokens  BIGINT NOT NULL DEFAULT 0,
//		start_time    TIMESTAMPTZ NOT NULL,
//		encryption    BOOLEAN NOT NULL,
//		messages      JSONB NOT NULL DEFAULT '[]',
//		created_at    TIMESTAMPTZ NOT NULL,
//		updated_at    TIMESTAMPTZ NOT NULL
//	);
type ConversationStore struct {
	db *pgxpool.Pool
}

func (c *ConversationStore) Put(ctx context.Context, record storage.ConversationRecord) error {
	messages, err := json.Marshal(record.Messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	query := `
		INSERT INTO conversations (id, chain_id, model, provider, endpoint, job_id, status, total_tokens, start_time, encryption, messages, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			chain_id = EXCLUDED.chain_id, model = EXCLUDED.model, provider = EXCLUDED.provider,
			endpoint = EXCLUDED.endpoint, job_id = EXCLUDED.job_id, status = EXCLUDED.status,
			total_tokens = EXCLUDED.total_tokens, start_time = EXCLUDED.start_time,
			encryption = EXCLUDED.encryption, messages = EXCLUDED.messages, updated_at = EXCLUDED.updated_at
	`

	_, err = c.db.Exec(ctx, query,
		record.ID, record.Metadata.ChainID, record.Metadata.Model, record.Metadata.Provider,
		record.Metadata.Endpoint, record.Metadata.JobID, record.Metadata.Status, record.Metadata.TotalTokens,
		record.Metadata.StartTime, record.Metadata.Encryption, messages, record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put conversation: %w", err)
	}
	return nil
}

func (c *ConversationStore) Get(ctx context.Context, id string) (*storage.ConversationRecord, error) {
	query := `
		SELECT id, chain_id, model, provider, endpoint, job_id, status, total_tokens, start_time, encryption, messages, created_at, updated_at
		FROM conversations WHERE id = $1
	`

	var record storage.ConversationRecord
	var messagesJSON []byte

	err := c.db.QueryRow(ctx, query, id).Scan(
		&record.ID, &record.Metadata.ChainID, &record.Metadata.Model, &record.Metadata.Provider,
		&record.Metadata.Endpoint, &record.Metadata.JobID, &record.Metadata.Status, &record.Metadata.TotalTokens,
		&record.Metadata.StartTime, &record.Metadata.Encryption, &messagesJSON, &record.CreatedAt, &record.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("conversation not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	if err := json.Unmarshal(messagesJSON, &record.Messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}
	return &record, nil
}

func (c *ConversationStore) AppendMessage(ctx context.Context, id string, msg storage.Message) error {
	record, err := c.Get(ctx, id)
	if err != nil {
		return err
	}
	record.Messages = append(record.Messages, msg)
	record.UpdatedAt = time.Now()

	messages, err := json.Marshal(record.Messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	result, err := c.db.Exec(ctx, `UPDATE conversations SET messages = $1, updated_at = $2 WHERE id = $3`, messages, record.UpdatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("conversation not found: %s", id)
	}
	return nil
}

func (c *ConversationStore) UpdateStatus(ctx context.Context, id string, status string, totalTokens uint64) error {
	result, err := c.db.Exec(ctx,
		`UPDATE conversations SET status = $1, total_tokens = $2, updated_at = $3 WHERE id = $4`,
		status, totalTokens, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("conversation not found: %s", id)
	}
	return nil
}

func (c *ConversationStore) List(ctx context.Context, limit, offset int) ([]*storage.ConversationRecord, error) {
	query := `
		SELECT id, chain_id, model, provider, endpoint, job_id, status, total_tokens, start_time, encryption, messages, created_at, updated_at
		FROM conversations
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := c.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var records []*storage.ConversationRecord
	for rows.Next() {
		var record storage.ConversationRecord
		var messagesJSON []byte
		if err := rows.Scan(
			&record.ID, &record.Metadata.ChainID, &record.Metadata.Model, &record.Metadata.Provider,
			&record.Metadata.Endpoint, &record.Metadata.JobID, &record.Metadata.Status, &record.Metadata.TotalTokens,
			&record.Metadata.StartTime, &record.Metadata.Encryption, &messagesJSON, &record.CreatedAt, &record.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		if err := json.Unmarshal(messagesJSON, &record.Messages); err != nil {
			return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}
	return records, nil
}

func (c *ConversationStore) Delete(ctx context.Context, id string) error {
	result, err := c.db.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("conversation not found: %s", id)
	}
	return nil
}
