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

// Package identity implements the encryption manager: the caller's
// wallet-bound static keypair, its three deterministic construction paths,
// and the session-init/message/storage encrypt-decrypt operations built on
// top of package envelope.
package identity

import (
	"crypto/sha256"
	"fmt"

	sagecrypto "github.com/fabstir/llm-marketplace-sdk/crypto"
	"github.com/fabstir/llm-marketplace-sdk/crypto/keys"
)

// signatureDerivationMessage is the fixed string a wallet signs when the
// caller has no direct access to the raw private key; the signature bytes
// are hashed to a deterministic scalar (construction path 2).
const signatureDerivationMessage = "fabstir-marketplace-identity-derivation-v1"

// addressDerivationDomain separates the address+chain_id derivation
// (construction path 3, for passkey-only wallets) from every other
// deterministic-key rule in this package.
const addressDerivationDomain = "fabstir-marketplace-identity-from-address-v1"

// seedDerivationSuffix is wire-normative: changing it breaks
// continuity for every user who opted into storage-layer identity sharing.
const seedDerivationSuffix = "fabstir-encryption-key-from-s5-seed-v1"

// Manager holds the caller's static identity keypair and address and
// implements every encrypt/decrypt operation the session layer needs.
type Manager struct {
	keyPair sagecrypto.KeyPair
	address string
}

// FromPrivateKey constructs a Manager directly from a wallet's raw private
// key (construction path 1).
func FromPrivateKey(privBytes []byte) (*Manager, error) {
	kp, err := keys.FromPrivateKeyBytes(privBytes)
	if err != nil {
		return nil, fmt.Errorf("identity: from private key: %w", err)
	}
	return &Manager{keyPair: kp, address: kp.Address()}, nil
}

// FromWalletSignature derives a deterministic private key by hashing a
// wallet signature over signatureDerivationMessage (construction path 2).
// The caller is responsible for having obtained sig by having the wallet
// sign exactly that fixed string; this function does not itself prompt a
// signature.
func FromWalletSignature(sig []byte) (*Manager, error) {
	if len(sig) == 0 {
		return nil, sagecrypto.ErrInvalidLength
	}
	h := sha256.Sum256(sig)
	kp, err := keys.FromPrivateKeyBytes(h[:])
	if err != nil {
		return nil, fmt.Errorf("identity: from wallet signature: %w", err)
	}
	return &Manager{keyPair: kp, address: kp.Address()}, nil
}

// FromAddressAndChainID derives a deterministic private key from a wallet
// address and chain ID, for wallets with no signing capability exposed to
// the caller (e.g. passkey wallets; construction path 3). Cross-device
// continuity for a given user holds only when every device uses this same
// construction path with the same address and chain ID.
func FromAddressAndChainID(address string, chainID uint64) (*Manager, error) {
	if address == "" {
		return nil, sagecrypto.ErrInvalidLength
	}
	h := sha256.New()
	h.Write([]byte(addressDerivationDomain))
	h.Write([]byte(address))
	h.Write([]byte(fmt.Sprintf("%d", chainID)))
	sum := h.Sum(nil)

	kp, err := keys.FromPrivateKeyBytes(sum)
	if err != nil {
		return nil, fmt.Errorf("identity: from address and chain id: %w", err)
	}
	return &Manager{keyPair: kp, address: kp.Address()}, nil
}

// FromSeed derives a deterministic private key from an arbitrary seed using
// the storage-layer sharing rule sha256(seed || seedDerivationSuffix). Used
// when the caller opts to share identity with the persistent-storage layer.
func FromSeed(seed []byte) (*Manager, error) {
	if len(seed) == 0 {
		return nil, sagecrypto.ErrInvalidLength
	}
	h := sha256.New()
	h.Write(seed)
	h.Write([]byte(seedDerivationSuffix))
	sum := h.Sum(nil)

	kp, err := keys.FromPrivateKeyBytes(sum)
	if err != nil {
		return nil, fmt.Errorf("identity: from seed: %w", err)
	}
	return &Manager{keyPair: kp, address: kp.Address()}, nil
}

// Address returns the manager's EIP-55 checksummed EVM address.
func (m *Manager) Address() string { return m.address }

// PublicKeyCompressed returns the manager's 33-byte compressed public key.
func (m *Manager) PublicKeyCompressed() []byte { return m.keyPair.PublicKeyCompressed() }

// KeyPair exposes the underlying static keypair for callers (e.g. the host
// key resolver's challenge handshake) that need to sign with the same
// identity outside this package's encrypt/decrypt operations.
func (m *Manager) KeyPair() sagecrypto.KeyPair { return m.keyPair }

// Close zeroizes the manager's static private key. The manager must not be
// used after Close; static identity keys otherwise live as long as the
// process that constructed them.
func (m *Manager) Close() { m.keyPair.Zero() }
