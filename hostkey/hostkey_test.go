// SPDX-License-Identifier: LGPL-3.0-or-later

package hostkey

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sagecrypto "github.com/fabstir/llm-marketplace-sdk/crypto"
	"github.com/fabstir/llm-marketplace-sdk/crypto/keys"
	"github.com/fabstir/llm-marketplace-sdk/errs"
)

func TestResolve_ChallengeHandshakeSuccess(t *testing.T) {
	hostKP, err := keys.GenerateKeyPair()
	require.NoError(t, err)
	hostAddr := hostKP.Address()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req challengeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		challenge, err := sagecrypto.HexDecode(req.Challenge)
		require.NoError(t, err)

		digest := sha256Sum(challenge)
		sig, err := hostKP.SignRecoverable(digest)
		require.NoError(t, err)

		json.NewEncoder(w).Encode(challengeResponse{
			Signature: sagecrypto.HexEncode(sig),
			RecID:     sig[64],
		})
	}))
	defer srv.Close()

	r := New(nil)
	pub, err := r.Resolve(context.Background(), hostAddr, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, hostKP.PublicKeyCompressed(), pub)

	// second call is served from cache; server would 500 if hit again.
	srv.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	pub2, err := r.Resolve(context.Background(), hostAddr, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, pub, pub2)
}

func TestResolve_AddressMismatch(t *testing.T) {
	hostKP, err := keys.GenerateKeyPair()
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req challengeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		challenge, err := sagecrypto.HexDecode(req.Challenge)
		require.NoError(t, err)
		digest := sha256Sum(challenge)
		sig, err := hostKP.SignRecoverable(digest)
		require.NoError(t, err)
		json.NewEncoder(w).Encode(challengeResponse{
			Signature: sagecrypto.HexEncode(sig),
			RecID:     sig[64],
		})
	}))
	defer srv.Close()

	r := New(nil)
	_, err = r.Resolve(context.Background(), "0x000000000000000000000000000000000000AA", srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrHostAddressMismatch)
}

type fakeDirectory struct {
	pub []byte
	ok  bool
}

func (f fakeDirectory) HostPublicKey(ctx context.Context, hostAddress string) ([]byte, bool, error) {
	return f.pub, f.ok, nil
}

func TestResolve_FromDirectory(t *testing.T) {
	kp, err := keys.GenerateKeyPair()
	require.NoError(t, err)

	r := New(fakeDirectory{pub: kp.PublicKeyCompressed(), ok: true})
	pub, err := r.Resolve(context.Background(), kp.Address(), "http://unused.invalid")
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKeyCompressed(), pub)
}
