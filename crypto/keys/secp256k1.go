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

// Package keys implements the concrete secp256k1 KeyPair used for both the
// ephemeral and static identity keys of the marketplace protocol.
package keys

import (
	"crypto/ecdsa"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	sagecrypto "github.com/fabstir/llm-marketplace-sdk/crypto"
)

// secp256k1KeyPair implements sagecrypto.KeyPair using go-ethereum's
// recoverable ECDSA signatures (r || s || recovery_id).
type secp256k1KeyPair struct {
	priv *ecdsa.PrivateKey
}

// GenerateKeyPair generates a fresh random secp256k1 key pair.
func GenerateKeyPair() (sagecrypto.KeyPair, error) {
	priv, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &secp256k1KeyPair{priv: priv}, nil
}

// FromPrivateKeyBytes constructs a key pair from a 32-byte scalar, e.g. one
// produced deterministically by the encryption manager's seed/address
// derivation paths.
func FromPrivateKeyBytes(b []byte) (sagecrypto.KeyPair, error) {
	if len(b) != 32 {
		return nil, sagecrypto.ErrInvalidLength
	}
	priv, err := ethcrypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &secp256k1KeyPair{priv: priv}, nil
}

// PublicKeyCompressed returns the 33-byte SEC1-compressed public key.
func (kp *secp256k1KeyPair) PublicKeyCompressed() []byte {
	return ethcrypto.CompressPubkey(&kp.priv.PublicKey)
}

// Address returns the EIP-55 checksummed EVM address for this key pair.
func (kp *secp256k1KeyPair) Address() string {
	addr, _ := sagecrypto.PubkeyToAddress(kp.PublicKeyCompressed())
	return addr
}

// SignRecoverable signs digest and returns a 65-byte r||s||recovery_id
// signature, as required to recover the signer's public key without a
// prior key exchange (§4.2 step 5, §4.3).
func (kp *secp256k1KeyPair) SignRecoverable(digest [32]byte) ([]byte, error) {
	return ethcrypto.Sign(digest[:], kp.priv)
}

// Zero overwrites the private scalar. After Zero the key pair must not be
// used for signing; it remains safe to call PublicKeyCompressed/Address
// only if the caller cached those values beforehand.
func (kp *secp256k1KeyPair) Zero() {
	if kp.priv == nil || kp.priv.D == nil {
		return
	}
	b := kp.priv.D.Bits()
	for i := range b {
		b[i] = 0
	}
	kp.priv.D.SetInt64(0)
}

// PrivateKeyBytes exposes the raw 32-byte scalar. Used only by the
// encryption manager, which owns key zeroization end-to-end; nothing else
// in the SDK should call this.
func PrivateKeyBytes(kp sagecrypto.KeyPair) []byte {
	sk, ok := kp.(*secp256k1KeyPair)
	if !ok {
		return nil
	}
	return ethcrypto.FromECDSA(sk.priv)
}

// RecoverCompressedPubkey recovers the 33-byte compressed public key of the
// signer from a 65-byte recoverable signature and the signed digest.
func RecoverCompressedPubkey(digest [32]byte, sig []byte) ([]byte, error) {
	if len(sig) != 65 {
		return nil, sagecrypto.ErrInvalidSignature
	}
	if sig[64] > 3 {
		return nil, sagecrypto.ErrInvalidSignature
	}
	pub, err := ethcrypto.SigToPub(digest[:], sig)
	if err != nil {
		return nil, sagecrypto.ErrInvalidSignature
	}
	return ethcrypto.CompressPubkey(pub), nil
}

// VerifyRecoverable verifies that sig was produced over digest by the
// holder of the private key matching pubCompressed. This is the
// defense-in-depth re-verification required after recovery in §4.2 step 3:
// a malformed recovery ID can still yield *some* public key, so the
// signature is checked against it explicitly rather than trusted blindly.
func VerifyRecoverable(pubCompressed []byte, digest [32]byte, sig []byte) error {
	if len(sig) != 65 {
		return sagecrypto.ErrInvalidSignature
	}
	// ecrecover-style signatures carry the recovery id as the last byte;
	// VerifySignature wants only the first 64 bytes (r||s).
	if !ethcrypto.VerifySignature(pubCompressed, digest[:], sig[:64]) {
		return sagecrypto.ErrInvalidSignature
	}
	return nil
}
