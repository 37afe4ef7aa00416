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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fabstir/llm-marketplace-sdk/crypto/keys"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	sender, err := keys.GenerateKeyPair()
	require.NoError(t, err)
	recipient, err := keys.GenerateKeyPair()
	require.NoError(t, err)

	plaintext := []byte("session_key:deadbeef")
	env, err := Encrypt(recipient.PublicKeyCompressed(), sender, plaintext, Options{})
	require.NoError(t, err)
	require.Equal(t, Alg, env.Alg)
	require.Len(t, env.EphPub, 33)
	require.Len(t, env.Salt, 32)
	require.Len(t, env.Nonce, 24)
	require.Len(t, env.Signature, 65)

	got, err := Decrypt(recipient, env, Options{})
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestEncryptDecryptWithAAD(t *testing.T) {
	sender, _ := keys.GenerateKeyPair()
	recipient, _ := keys.GenerateKeyPair()

	aad := []byte("message_0")
	env, err := Encrypt(recipient.PublicKeyCompressed(), sender, []byte("hello"), Options{AAD: aad})
	require.NoError(t, err)

	got, err := Decrypt(recipient, env, Options{})
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestDecryptFailsOnCiphertextBitFlip(t *testing.T) {
	sender, _ := keys.GenerateKeyPair()
	recipient, _ := keys.GenerateKeyPair()

	env, err := Encrypt(recipient.PublicKeyCompressed(), sender, []byte("flip me"), Options{})
	require.NoError(t, err)

	env.Ciphertext[0] ^= 0x01
	_, err = Decrypt(recipient, env, Options{})
	require.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptFailsOnSignatureBitFlip(t *testing.T) {
	sender, _ := keys.GenerateKeyPair()
	recipient, _ := keys.GenerateKeyPair()

	env, err := Encrypt(recipient.PublicKeyCompressed(), sender, []byte("flip me"), Options{})
	require.NoError(t, err)

	env.Signature[63] ^= 0x01
	_, err = Decrypt(recipient, env, Options{})
	require.Error(t, err)
}

func TestDecryptFailsOnSaltBitFlip(t *testing.T) {
	sender, _ := keys.GenerateKeyPair()
	recipient, _ := keys.GenerateKeyPair()

	env, err := Encrypt(recipient.PublicKeyCompressed(), sender, []byte("flip me"), Options{})
	require.NoError(t, err)

	env.Salt[0] ^= 0x01
	_, err = Decrypt(recipient, env, Options{})
	require.Error(t, err)
}

func TestDecryptFailsOnNonceBitFlip(t *testing.T) {
	sender, _ := keys.GenerateKeyPair()
	recipient, _ := keys.GenerateKeyPair()

	env, err := Encrypt(recipient.PublicKeyCompressed(), sender, []byte("flip me"), Options{})
	require.NoError(t, err)

	env.Nonce[0] ^= 0x01
	_, err = Decrypt(recipient, env, Options{})
	require.Error(t, err)
}

func TestDecryptFailsOnAADBitFlip(t *testing.T) {
	sender, _ := keys.GenerateKeyPair()
	recipient, _ := keys.GenerateKeyPair()

	env, err := Encrypt(recipient.PublicKeyCompressed(), sender, []byte("flip me"), Options{AAD: []byte("message_0")})
	require.NoError(t, err)

	env.AAD[0] ^= 0x01
	_, err = Decrypt(recipient, env, Options{})
	require.Error(t, err)
}

func TestDecryptRejectsMalformedEnvelope(t *testing.T) {
	recipient, _ := keys.GenerateKeyPair()

	_, err := Decrypt(recipient, &Envelope{}, Options{})
	require.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestDecryptRejectsInvalidRecoveryID(t *testing.T) {
	sender, _ := keys.GenerateKeyPair()
	recipient, _ := keys.GenerateKeyPair()

	env, err := Encrypt(recipient.PublicKeyCompressed(), sender, []byte("x"), Options{})
	require.NoError(t, err)

	env.Signature[64] = 4
	_, err = Decrypt(recipient, env, Options{})
	require.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestRecoverSender(t *testing.T) {
	sender, err := keys.GenerateKeyPair()
	require.NoError(t, err)
	recipient, err := keys.GenerateKeyPair()
	require.NoError(t, err)

	env, err := Encrypt(recipient.PublicKeyCompressed(), sender, []byte("bind me"), Options{})
	require.NoError(t, err)

	addr, pub, err := RecoverSender(env, recipient.PublicKeyCompressed())
	require.NoError(t, err)
	require.Equal(t, sender.Address(), addr)
	require.Equal(t, sender.PublicKeyCompressed(), pub)
}

func TestRecoverSenderFailsOnSignatureTamper(t *testing.T) {
	sender, _ := keys.GenerateKeyPair()
	recipient, _ := keys.GenerateKeyPair()

	env, err := Encrypt(recipient.PublicKeyCompressed(), sender, []byte("bind me"), Options{})
	require.NoError(t, err)

	env.Signature[0] ^= 0xFF
	_, _, err = RecoverSender(env, recipient.PublicKeyCompressed())
	require.Error(t, err)
}

func TestEmptyAADAndEmptyInfoAreNotMissing(t *testing.T) {
	sender, _ := keys.GenerateKeyPair()
	recipient, _ := keys.GenerateKeyPair()

	env1, err := Encrypt(recipient.PublicKeyCompressed(), sender, []byte("x"), Options{AAD: []byte{}})
	require.NoError(t, err)
	env2, err := Encrypt(recipient.PublicKeyCompressed(), sender, []byte("x"), Options{AAD: nil})
	require.NoError(t, err)

	require.NotNil(t, env1.AAD)
	require.NotNil(t, env2.AAD)
	require.Len(t, env1.AAD, 0)
	require.Len(t, env2.AAD, 0)

	require.NotNil(t, env1.Info)
	require.NotNil(t, env2.Info)
	require.Len(t, env1.Info, 0)
	require.Len(t, env2.Info, 0)
}
