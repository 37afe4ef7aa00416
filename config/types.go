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

// Package config provides layered YAML/environment configuration for the
// marketplace SDK client.
package config

import "time"

// Config is the root configuration for an SDK client instance.
type Config struct {
	Environment string `yaml:"environment" json:"environment"`

	// ChainID is the network discriminator start_session validates against
	// SupportedChainIDs.
	ChainID          uint64   `yaml:"chain_id" json:"chain_id"`
	SupportedChainIDs []uint64 `yaml:"supported_chain_ids" json:"supported_chain_ids"`

	Encryption *EncryptionConfig `yaml:"encryption" json:"encryption"`
	Host       *HostConfig       `yaml:"host" json:"host"`
	Payment    *PaymentConfig    `yaml:"payment" json:"payment"`
	RAG        *RAGConfig        `yaml:"rag_config" json:"rag_config"`
	Vector     *VectorDBConfig   `yaml:"vector_database" json:"vector_database"`

	GroupID string `yaml:"group_id" json:"group_id,omitempty"`

	DirectoryEndpoint string `yaml:"directory_endpoint" json:"directory_endpoint"`
	PaymentEndpoint   string `yaml:"payment_endpoint" json:"payment_endpoint"`

	Logging *LoggingConfig `yaml:"logging" json:"logging"`
	Metrics *MetricsConfig `yaml:"metrics" json:"metrics"`
}

// EncryptionConfig controls the dual-mode session contract.
// Enabled defaults to true; this SDK never auto-falls-back from encrypted to
// plaintext once a session has started, so flipping this after
// start_session has no effect on an in-flight session.
type EncryptionConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// HostConfig carries an explicit host selection, bypassing directory lookup.
type HostConfig struct {
	Address  string `yaml:"address,omitempty" json:"address,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
}

// PaymentConfig carries the parameters passed to the payment collaborator
// at start_session.
type PaymentConfig struct {
	Token         string        `yaml:"payment_token,omitempty" json:"payment_token,omitempty"` // empty/zero = native
	PricePerToken uint64        `yaml:"price_per_token" json:"price_per_token"`
	DepositAmount uint64        `yaml:"deposit_amount" json:"deposit_amount"`
	ProofInterval time.Duration `yaml:"proof_interval" json:"proof_interval"`
	Duration      time.Duration `yaml:"duration" json:"duration"`
}

// RAGConfig controls the retrieval-augmented-generation sub-protocol.
type RAGConfig struct {
	Enabled   bool    `yaml:"enabled" json:"enabled"`
	TopK      int     `yaml:"top_k" json:"top_k"`
	Threshold float64 `yaml:"threshold" json:"threshold"`
}

// VectorDBConfig references the content-addressed vector store owned by the
// persistent-storage collaborator (out of scope, §1).
type VectorDBConfig struct {
	ManifestPath string `yaml:"manifest_path" json:"manifest_path"`
	UserAddress  string `yaml:"user_address" json:"user_address"`
}

// LoggingConfig configures internal/logger's StructuredLogger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // json, text
	Output string `yaml:"output" json:"output"` // stdout, stderr, file path
}

// MetricsConfig controls whether and where internal/metrics exposes its
// Prometheus registry.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
	Path    string `yaml:"path" json:"path"`
}
