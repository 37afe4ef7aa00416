// SPDX-License-Identifier: LGPL-3.0-or-later

package pricing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabstir/llm-marketplace-sdk/errs"
)

func TestCost(t *testing.T) {
	assert.Equal(t, uint64(0), Cost(0, 500))
	assert.Equal(t, uint64(1), Cost(2, 500))   // floor(2*500/1000) = 1
	assert.Equal(t, uint64(1), Cost(3, 500))   // floor(3*500/1000) = 1, truncating
	assert.Equal(t, uint64(500), Cost(1000, 500))

	// idempotent re-computation
	a := Cost(12345, 777)
	b := Cost(12345, 777)
	assert.Equal(t, a, b)
}

func TestValidatePriceNative(t *testing.T) {
	require.NoError(t, ValidatePrice(Native, NativeMinPrice))
	require.NoError(t, ValidatePrice(Native, NativeMaxPrice))
	require.NoError(t, ValidatePrice(Native, 0)) // 0 means "use host default"

	err := ValidatePrice(Native, 200_000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrPricingValidation))
}

func TestValidatePriceStable(t *testing.T) {
	require.NoError(t, ValidatePrice(Stable, StableMinPrice))
	require.NoError(t, ValidatePrice(Stable, StableMaxPrice))

	err := ValidatePrice(Stable, StableMaxPrice+1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrPricingValidation))
}

func TestKindForToken(t *testing.T) {
	assert.Equal(t, Native, KindForToken(""))
	assert.Equal(t, Native, KindForToken("0x0000000000000000000000000000000000000000"))
	assert.Equal(t, Stable, KindForToken("0xabc0000000000000000000000000000000dead"))
}

func TestModelIDRepoFile(t *testing.T) {
	m, err := ParseModelID("meta-llama/Llama-3:model.gguf")
	require.NoError(t, err)
	assert.Equal(t, "meta-llama/Llama-3", m.Repo)
	assert.Equal(t, "model.gguf", m.Filename)

	hash1 := m.Canonicalize()
	hash2 := m.Canonicalize()
	assert.Equal(t, hash1, hash2)
	assert.Len(t, m.String(), 64)
}

func TestModelIDCanonicalHash(t *testing.T) {
	m1, err := ParseModelID("meta-llama/Llama-3:model.gguf")
	require.NoError(t, err)

	m2, err := ParseModelID(m1.String())
	require.NoError(t, err)
	assert.Equal(t, m1.Canonicalize(), m2.Canonicalize())
}

func TestParseModelIDInvalid(t *testing.T) {
	_, err := ParseModelID("")
	assert.ErrorIs(t, err, errs.ErrInvalidModelID)

	_, err = ParseModelID("not-a-valid-hash")
	assert.ErrorIs(t, err, errs.ErrInvalidModelID)

	_, err = ParseModelID(":missing-repo")
	assert.ErrorIs(t, err, errs.ErrInvalidModelID)
}
