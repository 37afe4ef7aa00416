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

package identity

import (
	"encoding/json"
	"fmt"

	"github.com/fabstir/llm-marketplace-sdk/envelope"
	"github.com/fabstir/llm-marketplace-sdk/internal/metrics"
)

// VectorDBRef references the content-addressed vector store owned by the
// persistent-storage collaborator (out of scope for this SDK).
type VectorDBRef struct {
	ManifestPath string `json:"manifest_path"`
	UserAddress  string `json:"user_address"`
}

// SessionInitPayload is the plaintext carried inside the dual-init
// envelope: the freshly generated session_key plus the parameters the host
// needs to bind the encrypted channel to an on-chain job.
type SessionInitPayload struct {
	SessionKey    string       `json:"session_key"` // hex-encoded 32 bytes
	JobID         BigInt       `json:"job_id"`
	ModelName     string       `json:"model_name"`
	PricePerToken BigInt       `json:"price_per_token"`
	VectorDBRef   *VectorDBRef `json:"vector_db_ref,omitempty"`
}

// SessionInitEncrypt implements session_init_encrypt: JSON-encode
// payload (big integers serialized with the "<digits>n" sentinel)
// and encrypt it to hostPub using the ephemeral cipher with the
// wire-normative defaults (empty info, 32-zero-byte salt).
func (m *Manager) SessionInitEncrypt(hostPub []byte, payload SessionInitPayload) (*envelope.Envelope, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("session_init_encrypt").Inc()
		return nil, fmt.Errorf("identity: marshal session-init payload: %w", err)
	}

	env, err := envelope.Encrypt(hostPub, m.keyPair, plaintext, envelope.Options{})
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("session_init_encrypt").Inc()
		return nil, fmt.Errorf("identity: session-init encrypt: %w", err)
	}
	metrics.CryptoOperations.WithLabelValues("session_init_encrypt", envelope.Alg).Inc()
	return env, nil
}

// SessionInitResult is the decrypted and authenticated result of
// session_init_decrypt: the payload plus the sender's EIP-55 address,
// recovered without any prior key exchange.
type SessionInitResult struct {
	Payload       SessionInitPayload
	SenderAddress string
}

// SessionInitDecrypt implements session_init_decrypt: decrypt env with
// this manager's static key, parse the JSON payload (reversing the "n"
// sentinel), then recover and authenticate the sender's address. A
// decryption failure here is fatal, unlike per-chunk streaming
// failures.
func (m *Manager) SessionInitDecrypt(env *envelope.Envelope) (*SessionInitResult, error) {
	plaintext, err := envelope.Decrypt(m.keyPair, env, envelope.Options{})
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("session_init_decrypt").Inc()
		return nil, fmt.Errorf("identity: session-init decrypt: %w", err)
	}

	var payload SessionInitPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		metrics.CryptoErrors.WithLabelValues("session_init_decrypt").Inc()
		return nil, fmt.Errorf("identity: unmarshal session-init payload: %w", err)
	}

	addr, _, err := envelope.RecoverSender(env, m.keyPair.PublicKeyCompressed())
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("session_init_decrypt").Inc()
		return nil, fmt.Errorf("identity: recover session-init sender: %w", err)
	}

	metrics.CryptoOperations.WithLabelValues("session_init_decrypt", envelope.Alg).Inc()
	return &SessionInitResult{Payload: payload, SenderAddress: addr}, nil
}
