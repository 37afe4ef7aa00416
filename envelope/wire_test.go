// SPDX-License-Identifier: LGPL-3.0-or-later

package envelope

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabstir/llm-marketplace-sdk/crypto/keys"
)

func TestEnvelopeJSONRoundTrip(t *testing.T) {
	sender, err := keys.GenerateKeyPair()
	require.NoError(t, err)
	recipient, err := keys.GenerateKeyPair()
	require.NoError(t, err)

	env, err := Encrypt(recipient.PublicKeyCompressed(), sender, []byte("wire me"), Options{AAD: []byte("message_0")})
	require.NoError(t, err)

	wire := env.ToJSON()
	assert.Len(t, wire.SignatureHex, 130)
	assert.Equal(t, wire.SignatureHex[128:], hexByte(wire.Recid))

	data, err := json.Marshal(wire)
	require.NoError(t, err)

	var decoded JSON
	require.NoError(t, json.Unmarshal(data, &decoded))

	env2, err := FromJSON(decoded)
	require.NoError(t, err)

	plaintext, err := Decrypt(recipient, env2, Options{})
	require.NoError(t, err)
	assert.Equal(t, "wire me", string(plaintext))
}

func TestEnvelopeJSONAcceptsSignatureWithoutRecid(t *testing.T) {
	sender, err := keys.GenerateKeyPair()
	require.NoError(t, err)
	recipient, err := keys.GenerateKeyPair()
	require.NoError(t, err)

	env, err := Encrypt(recipient.PublicKeyCompressed(), sender, []byte("hi"), Options{})
	require.NoError(t, err)

	wire := env.ToJSON()
	recid := wire.Recid
	wire.SignatureHex = wire.SignatureHex[:128] // drop the recovery byte
	wire.Recid = recid

	env2, err := FromJSON(wire)
	require.NoError(t, err)
	plaintext, err := Decrypt(recipient, env2, Options{})
	require.NoError(t, err)
	assert.Equal(t, "hi", string(plaintext))
}

func hexByte(b uint8) string {
	const hextable = "0123456789abcdef"
	return string([]byte{hextable[b>>4], hextable[b&0x0f]})
}
