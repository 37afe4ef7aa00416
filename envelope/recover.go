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

package envelope

import (
	sagecrypto "github.com/fabstir/llm-marketplace-sdk/crypto"
	"github.com/fabstir/llm-marketplace-sdk/crypto/keys"
)

// RecoverSender implements §4.3: given an envelope and the recipient's own
// public key (needed to rebuild the signed digest), recovers the sender's
// compressed public key, re-verifies the signature against it, and returns
// the sender's EIP-55 EVM address. This binds an encrypted payload to an
// on-chain identity without requiring a prior key exchange.
func RecoverSender(env *Envelope, recipientPub []byte) (address string, senderPubCompressed []byte, err error) {
	if err := validate(env); err != nil {
		return "", nil, err
	}
	recipientPub, err = sagecrypto.CompressPubkey(recipientPub)
	if err != nil {
		return "", nil, err
	}

	digest := sagecrypto.SigMessage(env.EphPub, recipientPub, env.Salt, env.Nonce, env.Info, env.AAD)

	senderPub, err := keys.RecoverCompressedPubkey(digest, env.Signature)
	if err != nil {
		return "", nil, ErrDecryptionFailed
	}
	if err := keys.VerifyRecoverable(senderPub, digest, env.Signature); err != nil {
		return "", nil, ErrDecryptionFailed
	}

	addr, err := sagecrypto.PubkeyToAddress(senderPub)
	if err != nil {
		return "", nil, err
	}
	return addr, senderPub, nil
}
