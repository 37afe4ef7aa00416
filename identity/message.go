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

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/fabstir/llm-marketplace-sdk/errs"
	"github.com/fabstir/llm-marketplace-sdk/internal/metrics"
)

// EncryptedMessage is the streaming payload wire shape: a ciphertext
// authenticated under the session key with no per-message signature —
// authenticity is inherited from the session key established at init.
type EncryptedMessage struct {
	Ciphertext []byte
	Nonce      []byte // 24 bytes
	AAD        []byte // "message_" || ascii(index)
}

// MessageAAD returns the AAD bound into a streaming message's AEAD tag,
// binding the message to its position in the outbound sequence so a
// replayed or reordered ciphertext fails to decrypt against the wrong
// index.
func MessageAAD(messageIndex uint64) []byte {
	return []byte(fmt.Sprintf("message_%d", messageIndex))
}

// MessageEncrypt implements message_encrypt: a fresh random 24-byte
// nonce, AAD binding the message to messageIndex, AEAD-sealed under
// sessionKey directly (no envelope/signature — this is a streaming payload).
func MessageEncrypt(sessionKey []byte, plaintext []byte, messageIndex uint64) (*EncryptedMessage, error) {
	if len(sessionKey) != 32 {
		metrics.CryptoErrors.WithLabelValues("message_encrypt").Inc()
		return nil, errs.ErrEncryptionKeyMissing
	}

	aead, err := chacha20poly1305.NewX(sessionKey)
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("message_encrypt").Inc()
		return nil, fmt.Errorf("identity: new aead: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		metrics.CryptoErrors.WithLabelValues("message_encrypt").Inc()
		return nil, fmt.Errorf("identity: generate nonce: %w", err)
	}

	aad := MessageAAD(messageIndex)
	ciphertext := aead.Seal(nil, nonce, plaintext, aad)

	metrics.CryptoOperations.WithLabelValues("message_encrypt", "xchacha20poly1305").Inc()
	return &EncryptedMessage{Ciphertext: ciphertext, Nonce: nonce, AAD: aad}, nil
}

// MessageDecrypt implements message_decrypt. An AEAD tag mismatch is a
// hard error to the caller; during streaming reassembly the session layer
// is responsible for recovering from it locally (log, skip a single chunk)
// rather than failing the whole stream.
func MessageDecrypt(sessionKey []byte, msg *EncryptedMessage) ([]byte, error) {
	if len(sessionKey) != 32 {
		metrics.CryptoErrors.WithLabelValues("message_decrypt").Inc()
		return nil, errs.ErrEncryptionKeyMissing
	}

	aead, err := chacha20poly1305.NewX(sessionKey)
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("message_decrypt").Inc()
		return nil, fmt.Errorf("identity: new aead: %w", err)
	}

	plaintext, err := aead.Open(nil, msg.Nonce, msg.Ciphertext, msg.AAD)
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("message_decrypt").Inc()
		return nil, errs.WithCause(errs.ErrDecryptionFailed, err)
	}

	metrics.CryptoOperations.WithLabelValues("message_decrypt", "xchacha20poly1305").Inc()
	return plaintext, nil
}
