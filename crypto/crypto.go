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

// Package crypto provides the wire-normative cryptographic primitives shared
// by every higher layer of the marketplace SDK: secp256k1 key handling,
// EIP-55 address derivation, HKDF-SHA256 key derivation and the canonical
// signed-context message used by the ephemeral cipher (see package envelope).
//
// The actual key-pair implementation lives in crypto/keys; this package is
// kept free of any concrete curve implementation to avoid import cycles
// between keys, envelope and identity.
package crypto

import "errors"

// Common errors returned across the crypto, envelope and identity packages.
var (
	ErrInvalidKeyType   = errors.New("crypto: invalid key type")
	ErrInvalidSignature = errors.New("crypto: invalid signature")
	ErrInvalidPublicKey = errors.New("crypto: invalid public key")
	ErrInvalidLength    = errors.New("crypto: invalid byte length")
)

// KeyType identifies the curve/algorithm backing a KeyPair.
type KeyType string

// KeyTypeSecp256k1 is the only key type the marketplace protocol uses:
// identities are wallet-compatible secp256k1/EVM keys.
const KeyTypeSecp256k1 KeyType = "Secp256k1"

// KeyPair is a static (long-lived) identity keypair capable of producing
// and verifying 65-byte recoverable ECDSA signatures (r || s || recovery_id).
//
// Recoverable signatures let a verifier reconstruct the signer's public key
// from the signature and the signed digest alone, which is how the envelope
// (§4.2/4.3) authenticates senders without a prior key exchange.
type KeyPair interface {
	// PublicKeyCompressed returns the 33-byte SEC1-compressed public key.
	PublicKeyCompressed() []byte

	// Address returns the EIP-55 mixed-case EVM address derived from the
	// public key.
	Address() string

	// SignRecoverable signs the 32-byte digest and returns a 65-byte
	// signature ending in the recovery ID (0-3).
	SignRecoverable(digest [32]byte) ([]byte, error)

	// Zero overwrites the private scalar in memory. The KeyPair must not be
	// used after Zero is called.
	Zero()
}
