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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadPicksEnvironmentFile(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "default.yaml", "chain_id: 1\npayment:\n  deposit_amount: 1\n")
	writeConfigFile(t, dir, "staging.yaml", "chain_id: 2\npayment:\n  deposit_amount: 1\n")

	cfg, err := Load(LoaderOptions{ConfigDir: dir, Environment: "staging", ApplyEnvOverrides: false})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), cfg.ChainID)
}

func TestLoadFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "default.yaml", "chain_id: 1\npayment:\n  deposit_amount: 1\n")

	cfg, err := Load(LoaderOptions{ConfigDir: dir, Environment: "nonexistent-env", ApplyEnvOverrides: false})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), cfg.ChainID)
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "default.yaml", "chain_id: 1\npayment:\n  deposit_amount: 1\n")

	t.Setenv("LLM_SDK_CHAIN_ID", "999")
	t.Setenv("LLM_SDK_LOG_LEVEL", "debug")

	cfg, err := Load(LoaderOptions{ConfigDir: dir, Environment: "default", ApplyEnvOverrides: true})
	require.NoError(t, err)
	assert.Equal(t, uint64(999), cfg.ChainID)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsMissingChainID(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "default.yaml", "payment:\n  deposit_amount: 1\n")

	_, err := Load(LoaderOptions{ConfigDir: dir, Environment: "default", ApplyEnvOverrides: false})
	assert.Error(t, err)
}

func TestLoadRejectsMissingPayment(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "default.yaml", "chain_id: 1\n")

	_, err := Load(LoaderOptions{ConfigDir: dir, Environment: "default", ApplyEnvOverrides: false})
	assert.Error(t, err)
}

func TestValidateConfigurationWarnings(t *testing.T) {
	cfg := &Config{
		ChainID: 1,
		Payment: &PaymentConfig{DepositAmount: 1},
		RAG:     &RAGConfig{Enabled: true, TopK: 50, Threshold: 2},
	}
	errs := ValidateConfiguration(cfg)

	var fields []string
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.Contains(t, fields, "payment.price_per_token")
	assert.Contains(t, fields, "rag_config.top_k")
	assert.Contains(t, fields, "rag_config.threshold")
}

func TestMustLoadPanicsOnMissingFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	tmp := t.TempDir()
	require.NoError(t, os.Chdir(tmp))
	defer os.Chdir(wd)

	assert.Panics(t, func() { MustLoad() })
}
