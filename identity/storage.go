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
	"crypto/rand"
	"fmt"
	"io"
	"time"

	sagecrypto "github.com/fabstir/llm-marketplace-sdk/crypto"
	"github.com/fabstir/llm-marketplace-sdk/envelope"
	"github.com/fabstir/llm-marketplace-sdk/internal/metrics"
)

// StorageEnvelope wraps an ephemeral-cipher envelope with the extra
// metadata storage_encrypt adds on top of session-init encryption:
// a random storage ID and an ISO-8601 creation timestamp.
type StorageEnvelope struct {
	Envelope  *envelope.Envelope
	StorageID string // hex-encoded 16 random bytes
	CreatedAt string // ISO-8601 / RFC3339
}

// StorageEncrypt implements storage_encrypt: identical to
// session_init_encrypt's envelope construction, with a fresh random 16-byte
// storage ID and an RFC3339 creation timestamp attached as metadata rather
// than signed content.
func (m *Manager) StorageEncrypt(recipientPub []byte, plaintext []byte) (*StorageEnvelope, error) {
	env, err := envelope.Encrypt(recipientPub, m.keyPair, plaintext, envelope.Options{})
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("storage_encrypt").Inc()
		return nil, fmt.Errorf("identity: storage encrypt: %w", err)
	}

	id := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, id); err != nil {
		metrics.CryptoErrors.WithLabelValues("storage_encrypt").Inc()
		return nil, fmt.Errorf("identity: generate storage id: %w", err)
	}

	metrics.CryptoOperations.WithLabelValues("storage_encrypt", envelope.Alg).Inc()
	return &StorageEnvelope{
		Envelope:  env,
		StorageID: sagecrypto.HexEncode(id),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// StorageDecrypt implements storage_decrypt: decrypts the wrapped
// envelope with this manager's static key. The storage ID and timestamp are
// metadata only and are not authenticated by the AEAD tag.
func (m *Manager) StorageDecrypt(se *StorageEnvelope) ([]byte, error) {
	plaintext, err := envelope.Decrypt(m.keyPair, se.Envelope, envelope.Options{})
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("storage_decrypt").Inc()
		return nil, fmt.Errorf("identity: storage decrypt: %w", err)
	}
	metrics.CryptoOperations.WithLabelValues("storage_decrypt", envelope.Alg).Inc()
	return plaintext, nil
}
