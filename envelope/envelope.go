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

// Package envelope implements the ephemeral cipher (§4.2) and sender
// recovery (§4.3): a one-shot, self-describing encrypted envelope between a
// sender's static key and a recipient's static key, using a fresh ephemeral
// key per call so the sender never needs a prior key exchange with the
// recipient.
package envelope

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	sagecrypto "github.com/fabstir/llm-marketplace-sdk/crypto"
	"github.com/fabstir/llm-marketplace-sdk/crypto/keys"
)

// Alg identifies the AEAD/KDF combination used by an Envelope. Only one
// value exists today; the field exists so a future wire version can be
// distinguished without breaking decoders.
const Alg = "secp256k1-ecdh(ephemeral→static)+hkdf(sha256)+xchacha20-poly1305"

var (
	// ErrMalformedEnvelope is returned when an envelope field has the wrong
	// length or an invalid value (recovery ID out of range, etc.).
	ErrMalformedEnvelope = errors.New("envelope: malformed envelope")
	// ErrDecryptionFailed covers AEAD tag mismatch and signature
	// verification failure alike — §4.2 requires both to fail the whole
	// operation without distinguishing the cause to the caller.
	ErrDecryptionFailed = errors.New("envelope: decryption failed")
)

// Envelope is the wire shape of an ephemeral-cipher ciphertext (§3).
// Hex-encoded forms of these fields are what actually cross the wire (§6);
// this struct holds the raw bytes.
type Envelope struct {
	EphPub     []byte // 33 bytes, compressed
	Salt       []byte // 32 bytes
	Nonce      []byte // 24 bytes
	Ciphertext []byte // ciphertext || 16-byte Poly1305 tag
	Signature  []byte // 65 bytes, r || s || recovery_id
	Alg        string
	Info       []byte // may be empty
	AAD        []byte // may be empty
}

// Options carries the optional overrides accepted by Encrypt. A nil
// AAD/Info/Salt/Nonce uses the wire-normative default for that field; an
// empty-but-non-nil slice is honored as-is (§4.2 tie-break). Decrypt takes
// an Options argument but ignores it: every value it needs is read from the
// envelope itself.
type Options struct {
	AAD   []byte
	Info  []byte
	Salt  []byte
	Nonce []byte
}

// Encrypt implements §4.2 encrypt: a fresh ephemeral keypair is generated
// for this call only, used to derive a shared secret with recipientPub via
// ECDH, and zeroed before return regardless of outcome.
func Encrypt(recipientPub []byte, senderStatic sagecrypto.KeyPair, plaintext []byte, opts Options) (*Envelope, error) {
	recipientPub, err := sagecrypto.CompressPubkey(recipientPub)
	if err != nil {
		return nil, err
	}

	eph, err := keys.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("envelope: generate ephemeral key: %w", err)
	}
	defer eph.Zero()

	salt := opts.Salt
	if salt == nil {
		salt = sagecrypto.DefaultHKDFSalt()
	}
	info := opts.Info
	if info == nil {
		info = []byte{}
	}
	nonce := opts.Nonce
	if nonce == nil {
		nonce = make([]byte, chacha20poly1305.NonceSizeX)
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return nil, fmt.Errorf("envelope: generate nonce: %w", err)
		}
	}
	if len(nonce) != chacha20poly1305.NonceSizeX {
		return nil, ErrMalformedEnvelope
	}
	aad := opts.AAD
	if aad == nil {
		aad = []byte{}
	}

	shared, err := keys.ECDH(eph, recipientPub)
	if err != nil {
		return nil, fmt.Errorf("envelope: ecdh: %w", err)
	}
	key, err := sagecrypto.HKDF32(shared, salt, info)
	if err != nil {
		return nil, fmt.Errorf("envelope: derive key: %w", err)
	}
	zero(shared)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("envelope: new aead: %w", err)
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, aad)
	zero(key)

	ephPub := eph.PublicKeyCompressed()
	digest := sagecrypto.SigMessage(ephPub, recipientPub, salt, nonce, info, aad)
	sig, err := senderStatic.SignRecoverable(digest)
	if err != nil {
		return nil, fmt.Errorf("envelope: sign: %w", err)
	}

	return &Envelope{
		EphPub:     ephPub,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
		Signature:  sig,
		Alg:        Alg,
		Info:       info,
		AAD:        aad,
	}, nil
}

// Decrypt implements §4.2 decrypt: the sender's public key is recovered
// from the signature (not supplied by the caller), re-verified against the
// digest as defense-in-depth against a malformed recovery ID, and only then
// is the AEAD opened.
func Decrypt(recipientStatic sagecrypto.KeyPair, env *Envelope, _ Options) ([]byte, error) {
	if err := validate(env); err != nil {
		return nil, err
	}

	recipientPub := recipientStatic.PublicKeyCompressed()
	digest := sagecrypto.SigMessage(env.EphPub, recipientPub, env.Salt, env.Nonce, env.Info, env.AAD)

	senderPub, err := keys.RecoverCompressedPubkey(digest, env.Signature)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	if err := keys.VerifyRecoverable(senderPub, digest, env.Signature); err != nil {
		return nil, ErrDecryptionFailed
	}

	shared, err := keys.ECDH(recipientStatic, env.EphPub)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	key, err := sagecrypto.HKDF32(shared, env.Salt, env.Info)
	if err != nil {
		zero(shared)
		return nil, ErrDecryptionFailed
	}
	zero(shared)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		zero(key)
		return nil, ErrDecryptionFailed
	}
	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, env.AAD)
	zero(key)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// validate enforces the field-length checks §4.2 step 1 requires before any
// cryptographic recomputation: a 65-byte signature with recovery ID in
// [0,3], a 33-byte ephemeral public key, a 32-byte salt, a 24-byte nonce.
func validate(env *Envelope) error {
	if env == nil {
		return ErrMalformedEnvelope
	}
	if len(env.EphPub) != 33 {
		return ErrMalformedEnvelope
	}
	if len(env.Salt) != 32 {
		return ErrMalformedEnvelope
	}
	if len(env.Nonce) != chacha20poly1305.NonceSizeX {
		return ErrMalformedEnvelope
	}
	if len(env.Signature) != 65 {
		return ErrMalformedEnvelope
	}
	if env.Signature[64] > 3 {
		return ErrMalformedEnvelope
	}
	return nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
