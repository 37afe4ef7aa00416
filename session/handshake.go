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
	"encoding/hex"
	"fmt"
	"math/big"

	sagecrypto "github.com/fabstir/llm-marketplace-sdk/crypto"
	"github.com/fabstir/llm-marketplace-sdk/envelope"
	"github.com/fabstir/llm-marketplace-sdk/errs"
	"github.com/fabstir/llm-marketplace-sdk/identity"
	"github.com/fabstir/llm-marketplace-sdk/internal/logger"
	"github.com/fabstir/llm-marketplace-sdk/transport"
)

// openTransport implements the transport half of §4.6 start_session /
// §4.7: dial the host's WebSocket endpoint, start the multiplexer read
// loop, then send the dual-init frame (§4.8) matching the session's
// encryption setting.
func (m *Manager) openTransport(ctx context.Context, sess *Session) error {
	conn, err := transport.Dial(ctx, sess.hostEndpoint, transport.DialOptions{})
	if err != nil {
		return errs.WithCause(errs.ErrNetworkError, fmt.Errorf("session: dial host: %w", err))
	}

	mux := transport.New(conn, transport.WithLogger(logger.NewDefaultLogger()))
	go func() {
		_ = mux.Run(context.Background())
	}()

	sess.mu.Lock()
	sess.mux = mux
	sess.conn = conn
	sess.mu.Unlock()

	if !sess.encryption {
		frame := transport.SessionInitFrame{
			Type:        transport.TypeSessionInit,
			ChainID:     sess.chainID,
			SessionID:   sess.id,
			JobID:       sess.jobID,
			UserAddress: sess.userAddress,
		}
		if err := mux.SendWithoutAwait(frame); err != nil {
			return errs.WithCause(errs.ErrNetworkError, fmt.Errorf("session: send session_init: %w", err))
		}
		return nil
	}

	key, err := newSessionKey()
	if err != nil {
		return err
	}

	hostPub, err := m.hostKeys.Resolve(ctx, sess.hostAddress, sess.hostEndpoint)
	if err != nil {
		return errs.WithCause(errs.ErrEncryptionNotAvailable, fmt.Errorf("session: resolve host key: %w", err))
	}

	jobIDInt, ok := new(big.Int).SetString(sess.jobID, 10)
	if !ok {
		jobIDInt = new(big.Int)
	}

	payload := identity.SessionInitPayload{
		SessionKey:    hex.EncodeToString(key),
		JobID:         identity.NewBigInt(jobIDInt),
		ModelName:     sess.model,
		PricePerToken: identity.NewBigInt(new(big.Int).SetUint64(sess.pricePerToken)),
	}
	if sess.vectorDB != nil {
		payload.VectorDBRef = &identity.VectorDBRef{
			ManifestPath: sess.vectorDB.ManifestPath,
			UserAddress:  sess.vectorDB.UserAddress,
		}
	}

	env, err := m.identity.SessionInitEncrypt(hostPub, payload)
	if err != nil {
		return fmt.Errorf("session: encrypt session_init: %w", err)
	}

	sess.mu.Lock()
	sess.sessionKey = key
	sess.mu.Unlock()

	frame := transport.EncryptedSessionInitFrame{
		Type:      transport.TypeEncryptedSessionInit,
		Payload:   toWirePayload(env),
		ChainID:   sess.chainID,
		SessionID: sess.id,
		JobID:     sess.jobID,
	}
	if err := mux.SendWithoutAwait(frame); err != nil {
		return errs.WithCause(errs.ErrNetworkError, fmt.Errorf("session: send encrypted_session_init: %w", err))
	}
	return nil
}

func toWirePayload(env *envelope.Envelope) transport.EnvelopeJSON {
	j := env.ToJSON()
	return transport.EnvelopeJSON{
		EphPubHex:     j.EphPubHex,
		SaltHex:       j.SaltHex,
		NonceHex:      j.NonceHex,
		CiphertextHex: j.CiphertextHex,
		SignatureHex:  j.SignatureHex,
		Recid:         j.Recid,
		Alg:           j.Alg,
		Info:          j.Info,
		AadHex:        j.AadHex,
	}
}

// decryptPayload decrypts one streamed encrypted_chunk/encrypted_response
// payload under the session's own key (§4.4 message_decrypt).
func decryptPayload(sessionKey []byte, p *transport.PayloadHex) (string, error) {
	ciphertext, err := sagecrypto.HexDecode(p.CiphertextHex)
	if err != nil {
		return "", errs.ErrDecryptionFailed
	}
	nonce, err := sagecrypto.HexDecode(p.NonceHex)
	if err != nil {
		return "", errs.ErrDecryptionFailed
	}
	aad, err := sagecrypto.HexDecode(p.AadHex)
	if err != nil {
		return "", errs.ErrDecryptionFailed
	}

	plaintext, err := identity.MessageDecrypt(sessionKey, &identity.EncryptedMessage{
		Ciphertext: ciphertext,
		Nonce:      nonce,
		AAD:        aad,
	})
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func hexEncode(b []byte) string { return sagecrypto.HexEncode(b) }
