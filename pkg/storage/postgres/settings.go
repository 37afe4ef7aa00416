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
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fabstir/llm-marketplace-sdk/pkg/storage"
)

// SettingsStore implements storage.SettingsStore for PostgreSQL. The SDK
// keeps a single settings row per deployment, identified by the fixed id
// "default" — multi-user deployments key this differently, left to the
// integrator's schema.
//
// Expected schema:
//
//	CREATE TABLE user_settings (
//		id                      TEXT PRIMARY KEY,
//		selected_model          TEXT NOT NULL DEFAULT '',
//		preferred_payment_token TEXT NOT NULL DEFAULT '',
//		host_selection_mode     TEXT NOT NULL DEFAULT 'AUTO',
//		preferred_host_address  TEXT NOT NULL DEFAULT '',
//		last_host_address       TEXT NOT NULL DEFAULT ''
//	);
type SettingsStore struct {
	db *pgxpool.Pool
}

const settingsRowID = "default"

func (s *SettingsStore) Get(ctx context.Context) (storage.UserSettings, error) {
	query := `
		SELECT selected_model, preferred_payment_token, host_selection_mode, preferred_host_address, last_host_address
		FROM user_settings WHERE id = $1
	`

	var settings storage.UserSettings
	err := s.db.QueryRow(ctx, query, settingsRowID).Scan(
		&settings.SelectedModel, &settings.PreferredPaymentToken, &settings.HostSelectionMode,
		&settings.PreferredHostAddress, &settings.LastHostAddress,
	)
	if err == pgx.ErrNoRows {
		return storage.UserSettings{}, nil
	}
	if err != nil {
		return storage.UserSettings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings, nil
}

func (s *SettingsStore) Put(ctx context.Context, settings storage.UserSettings) error {
	query := `
		INSERT INTO user_settings (id, selected_model, preferred_payment_token, host_selection_mode, preferred_host_address, last_host_address)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			selected_model = EXCLUDED.selected_model, preferred_payment_token = EXCLUDED.preferred_payment_token,
			host_selection_mode = EXCLUDED.host_selection_mode, preferred_host_address = EXCLUDED.preferred_host_address,
			last_host_address = EXCLUDED.last_host_address
	`
	_, err := s.db.Exec(ctx, query,
		settingsRowID, settings.SelectedModel, settings.PreferredPaymentToken,
		settings.HostSelectionMode, settings.PreferredHostAddress, settings.LastHostAddress,
	)
	if err != nil {
		return fmt.Errorf("failed to put settings: %w", err)
	}
	return nil
}

func (s *SettingsStore) SetLastHostAddress(ctx context.Context, hostAddress string) error {
	query := `
		INSERT INTO user_settings (id, last_host_address)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET last_host_address = EXCLUDED.last_host_address
	`
	_, err := s.db.Exec(ctx, query, settingsRowID, hostAddress)
	if err != nil {
		return fmt.Errorf("failed to set last host address: %w", err)
	}
	return nil
}
