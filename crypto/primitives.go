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

package crypto

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/hkdf"
)

// sigMessagePrefix is wire-normative: both endpoints of the ephemeral
// cipher must agree on it byte-for-byte (§4.1).
const sigMessagePrefix = "E2EEv1|"

// CompressPubkey accepts either a 33-byte SEC1-compressed or a 65-byte
// uncompressed secp256k1 public key and returns the 33-byte compressed form.
// Any other length, or a point not on the curve, is an error.
func CompressPubkey(pub []byte) ([]byte, error) {
	switch len(pub) {
	case 33:
		if _, err := ethcrypto.DecompressPubkey(pub); err != nil {
			return nil, ErrInvalidPublicKey
		}
		return append([]byte(nil), pub...), nil
	case 65:
		key, err := ethcrypto.UnmarshalPubkey(pub)
		if err != nil {
			return nil, ErrInvalidPublicKey
		}
		return ethcrypto.CompressPubkey(key), nil
	default:
		return nil, ErrInvalidLength
	}
}

// PubkeyToAddress derives the EIP-55 mixed-case EVM address from a
// compressed or uncompressed secp256k1 public key: it drops the 0x04 prefix
// of the uncompressed form, computes keccak256 of the 64 coordinate bytes,
// and takes the low-order 20 bytes.
func PubkeyToAddress(pub []byte) (string, error) {
	var key *ecdsa.PublicKey
	switch len(pub) {
	case 33:
		k, err := ethcrypto.DecompressPubkey(pub)
		if err != nil {
			return "", ErrInvalidPublicKey
		}
		key = k
	case 65:
		k, err := ethcrypto.UnmarshalPubkey(pub)
		if err != nil {
			return "", ErrInvalidPublicKey
		}
		key = k
	default:
		return "", ErrInvalidLength
	}
	addr := ethcrypto.PubkeyToAddress(*key)
	return toChecksumAddress(addr.Hex()), nil
}

// ChecksumAddress returns the EIP-55 mixed-case checksummed form of a raw
// 20-byte address, accepting any input case. Used where only the address
// bytes are known and no public key is available to re-derive it.
func ChecksumAddress(addr20 []byte) (string, error) {
	if len(addr20) != 20 {
		return "", ErrInvalidLength
	}
	return toChecksumAddress(hex.EncodeToString(addr20)), nil
}

// toChecksumAddress is idempotent: checksum(checksum(x)) == checksum(x).
// go-ethereum's common.Address.Hex() already returns the EIP-55 checksummed
// form, so this is a thin normalizing pass that also accepts lower/upper
// case input.
func toChecksumAddress(addr string) string {
	addr = strings.TrimPrefix(addr, "0x")
	lower := strings.ToLower(addr)
	hash := ethcrypto.Keccak256([]byte(lower))
	hashHex := hex.EncodeToString(hash)

	var b strings.Builder
	b.WriteString("0x")
	for i, c := range lower {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
			continue
		}
		// nibble i of the hash decides the case of hex letter i.
		nibble := hashHex[i]
		if nibble >= '8' {
			b.WriteRune(c - 32) // upper-case
		} else {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// SigMessage computes the 32-byte digest that the ephemeral cipher signs
// and verifies (§4.1). Field order and separators are wire-normative:
//
//	SHA256("E2EEv1|" || ephPub || "|" || recipientPub || "|" || salt || "|" || nonce || "|" || info [ || "|" || aad ])
//
// The trailing "|"||aad segment is appended iff aad is non-empty.
func SigMessage(ephPub, recipientPub, salt, nonce, info, aad []byte) [32]byte {
	var buf bytes.Buffer
	buf.WriteString(sigMessagePrefix)
	buf.Write(ephPub)
	buf.WriteByte('|')
	buf.Write(recipientPub)
	buf.WriteByte('|')
	buf.Write(salt)
	buf.WriteByte('|')
	buf.Write(nonce)
	buf.WriteByte('|')
	buf.Write(info)
	if len(aad) > 0 {
		buf.WriteByte('|')
		buf.Write(aad)
	}
	return sha256.Sum256(buf.Bytes())
}

// DefaultHKDFSalt is the wire-normative default salt for HKDF32: 32 zero
// bytes. Both endpoints must agree on it or on an explicit override.
func DefaultHKDFSalt() []byte { return make([]byte, 32) }

// HKDF32 expands ikm into a 32-byte key using HKDF-SHA256. A nil salt
// defaults to 32 zero bytes and a nil info defaults to the empty byte
// string, per §4.1 — these defaults are wire-normative for interoperability
// and are NOT a placeholder; callers who need domain separation must pass
// an explicit info.
func HKDF32(ikm, salt, info []byte) ([]byte, error) {
	if salt == nil {
		salt = DefaultHKDFSalt()
	}
	if info == nil {
		info = []byte{}
	}
	r := hkdf.New(sha256.New, ikm, salt, info)
	out := make([]byte, 32)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

// HexEncode/HexDecode give the wire-format (lowercase, no 0x prefix) used by
// every *Hex field in the envelope JSON (§6).

// HexEncode returns the lowercase hex encoding of b with no "0x" prefix.
func HexEncode(b []byte) string { return hex.EncodeToString(b) }

// HexDecode decodes a lowercase (or mixed-case) hex string with an optional
// "0x" prefix. An empty string decodes to an empty, non-nil byte slice.
func HexDecode(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return []byte{}, nil
	}
	return hex.DecodeString(s)
}
