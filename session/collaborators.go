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

package session

import (
	"context"
	"net/http"

	"github.com/fabstir/llm-marketplace-sdk/pkg/storage"
)

// HostInfo is what the Directory collaborator returns for a selected host.
type HostInfo struct {
	Address       string
	Endpoint      string
	PricePerToken uint64
}

// Directory resolves a host for a model (§4.6 step 1-2) and advertises a
// host's public key for the handshake (§4.5). A single collaborator backs
// both concerns in this SDK, matching the source's combined directory
// service.
type Directory interface {
	// SelectHost picks a host advertising modelHash under mode, honoring
	// preferredHost when mode is ModeSpecific.
	SelectHost(ctx context.Context, modelHash [32]byte, mode HostSelectionMode, preferredHost string) (HostInfo, error)

	// EffectivePrice resolves the authoritative per-token price for the
	// (host, model, paymentToken) triple; the directory's answer always
	// wins over a caller-requested price.
	EffectivePrice(ctx context.Context, hostAddress string, modelHash [32]byte, paymentToken string) (uint64, error)

	// HostPublicKey satisfies hostkey.Directory for cache-before-handshake
	// lookups.
	HostPublicKey(ctx context.Context, hostAddress string) (pubKey []byte, ok bool, err error)
}

// JobParams is the payment collaborator's input for opening a session (§4.6
// step 3).
type JobParams struct {
	ChainID       uint64
	ModelHash     [32]byte
	HostAddress   string
	PaymentToken  string
	PricePerToken uint64
	DepositAmount uint64
}

// Payment is the on-chain/off-chain payment collaborator.
type Payment interface {
	OpenJob(ctx context.Context, params JobParams) (jobID string, sessionID string, err error)
	// SubmitCheckpoint forwards a checkpoint proof together with the
	// cumulative token count it attests (§3/§4.6).
	SubmitCheckpoint(ctx context.Context, sessionID string, proof []byte, cumulativeTokens uint64) error
	CompleteSession(ctx context.Context, sessionID string, totalTokens uint64, finalProof []byte) error
}

// Manager owns a set of in-flight sessions and the collaborators needed to
// establish, drive, and tear them down.
type Manager struct {
	directory  Directory
	payment    Payment
	convos     storage.ConversationStore
	settings   storage.SettingsStore
	identity   Identity
	hostKeys   HostKeyResolver
	supported  map[uint64]bool
	defaultCfg Config

	// ragContext augments a prompt with retrieved context before it is sent
	// (§4.9). Installed through SetRAGContext (for example with a
	// rag.Injector's Augment method) so session does not import rag; nil means
	// RAG augmentation is unavailable even if a session's RAGConfig.Enabled is
	// true.
	ragContext func(ctx context.Context, sess *Session, prompt string) string

	// fallbackClient is used by SendPromptNonStreaming; nil means
	// http.DefaultClient.
	fallbackClient *http.Client
}

// SetRAGContext installs the context-injection hook used by
// SendPromptStreaming. Called once during SDK wiring; rag.Injector's
// Augment method has the matching signature.
func (m *Manager) SetRAGContext(fn func(ctx context.Context, sess *Session, prompt string) string) {
	m.ragContext = fn
}
