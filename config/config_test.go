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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	content := `
environment: staging
chain_id: 84532
host:
  address: "0xabc"
  endpoint: "wss://host.example/session"
payment:
  price_per_token: 10
  deposit_amount: 1000000
rag_config:
  enabled: true
  top_k: 3
  threshold: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, uint64(84532), cfg.ChainID)
	assert.Equal(t, []uint64{84532}, cfg.SupportedChainIDs)
	assert.True(t, cfg.Encryption.Enabled)
	assert.Equal(t, "0xabc", cfg.Host.Address)
	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roundtrip.yaml")

	cfg := &Config{
		Environment: "production",
		ChainID:     8453,
		Payment: &PaymentConfig{
			PricePerToken: 5,
			DepositAmount: 500000,
			Duration:      time.Hour,
		},
	}
	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.ChainID, loaded.ChainID)
	assert.Equal(t, cfg.Payment.PricePerToken, loaded.Payment.PricePerToken)
}

func TestSetDefaults(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	assert.Equal(t, "development", cfg.Environment)
	require.NotNil(t, cfg.Encryption)
	assert.True(t, cfg.Encryption.Enabled)
	require.NotNil(t, cfg.Logging)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	require.NotNil(t, cfg.Metrics)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}
