// SPDX-License-Identifier: LGPL-3.0-or-later

package identity

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromPrivateKeyAndAddress(t *testing.T) {
	priv := make([]byte, 32)
	priv[31] = 1
	m, err := FromPrivateKey(priv)
	require.NoError(t, err)
	assert.NotEmpty(t, m.Address())
	assert.Len(t, m.PublicKeyCompressed(), 33)
	m.Close()
}

func TestFromSeedDeterministic(t *testing.T) {
	seed := []byte("some-s5-seed")
	m1, err := FromSeed(seed)
	require.NoError(t, err)
	m2, err := FromSeed(seed)
	require.NoError(t, err)
	assert.Equal(t, m1.Address(), m2.Address())
}

func TestFromWalletSignatureDeterministic(t *testing.T) {
	sig := []byte("0xdeadbeef-signature-bytes")
	m1, err := FromWalletSignature(sig)
	require.NoError(t, err)
	m2, err := FromWalletSignature(sig)
	require.NoError(t, err)
	assert.Equal(t, m1.Address(), m2.Address())
}

func TestFromAddressAndChainIDDeterministic(t *testing.T) {
	m1, err := FromAddressAndChainID("0xabc0000000000000000000000000000000dead", 1)
	require.NoError(t, err)
	m2, err := FromAddressAndChainID("0xabc0000000000000000000000000000000dead", 1)
	require.NoError(t, err)
	assert.Equal(t, m1.Address(), m2.Address())

	m3, err := FromAddressAndChainID("0xabc0000000000000000000000000000000dead", 2)
	require.NoError(t, err)
	assert.NotEqual(t, m1.Address(), m3.Address())
}

func TestSessionInitEncryptDecryptRoundTrip(t *testing.T) {
	hostM, err := FromSeed([]byte("host-seed"))
	require.NoError(t, err)
	userM, err := FromSeed([]byte("user-seed"))
	require.NoError(t, err)

	payload := SessionInitPayload{
		SessionKey:    "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff",
		JobID:         NewBigInt(big.NewInt(123456789)),
		ModelName:     "meta-llama/Llama-3",
		PricePerToken: NewBigInt(big.NewInt(500)),
	}

	env, err := userM.SessionInitEncrypt(hostM.PublicKeyCompressed(), payload)
	require.NoError(t, err)

	result, err := hostM.SessionInitDecrypt(env)
	require.NoError(t, err)
	assert.Equal(t, userM.Address(), result.SenderAddress)
	assert.Equal(t, payload.ModelName, result.Payload.ModelName)
	assert.Equal(t, "123456789", result.Payload.JobID.String())
}

func TestMessageEncryptDecryptRoundTrip(t *testing.T) {
	sessionKey := make([]byte, 32)
	msg, err := MessageEncrypt(sessionKey, []byte("hello"), 0)
	require.NoError(t, err)
	assert.Equal(t, MessageAAD(0), msg.AAD)

	plaintext, err := MessageDecrypt(sessionKey, msg)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(plaintext))
}

func TestMessageDecryptTagMismatch(t *testing.T) {
	sessionKey := make([]byte, 32)
	msg, err := MessageEncrypt(sessionKey, []byte("hello"), 0)
	require.NoError(t, err)
	msg.Ciphertext[0] ^= 0xFF

	_, err = MessageDecrypt(sessionKey, msg)
	require.Error(t, err)
}

func TestStorageEncryptDecryptRoundTrip(t *testing.T) {
	ownerM, err := FromSeed([]byte("owner-seed"))
	require.NoError(t, err)

	se, err := ownerM.StorageEncrypt(ownerM.PublicKeyCompressed(), []byte("stored secret"))
	require.NoError(t, err)
	assert.Len(t, se.StorageID, 32) // 16 bytes hex-encoded
	assert.NotEmpty(t, se.CreatedAt)

	plaintext, err := ownerM.StorageDecrypt(se)
	require.NoError(t, err)
	assert.Equal(t, "stored secret", string(plaintext))
}
