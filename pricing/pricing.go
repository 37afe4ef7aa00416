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

// Package pricing implements §4.10: fixed-precision token-cost accounting
// and the dual native/stablecoin price-range validation, plus the model-id
// canonicalization rule shared by session establishment (§4.6).
package pricing

import (
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/fabstir/llm-marketplace-sdk/errs"
)

// precision is the fixed-point divisor for price_per_token (§3, §4.10).
// Changing it is a protocol version bump, never a runtime configuration
// choice (§9 Open Question 3), so it is kept as an unexported constant.
const precision = 1000

// TokenKind discriminates the two price ranges §4.10 validates separately.
type TokenKind int

const (
	// Native is the chain's native gas token.
	Native TokenKind = iota
	// Stable is an ERC-20 stablecoin payment token.
	Stable
)

// Native and stablecoin price bounds, inclusive (§4.10).
const (
	NativeMinPrice = 227_273
	NativeMaxPrice = 22_727_272_727_273_000
	StableMinPrice = 1
	StableMaxPrice = 100_000_000
)

// Cost computes floor(tokensUsed * pricePerToken / precision) with
// math/big so the intermediate product never overflows a 64-bit
// accumulator at the native-token price ceiling, per §4.10.
func Cost(tokensUsed, pricePerToken uint64) uint64 {
	product := new(big.Int).Mul(new(big.Int).SetUint64(tokensUsed), new(big.Int).SetUint64(pricePerToken))
	product.Div(product, big.NewInt(precision))
	return product.Uint64()
}

// ValidatePrice enforces the range for kind, per §4.10. A custom price of
// exactly 0 means "use host default" and always passes validation without
// being range-checked.
func ValidatePrice(kind TokenKind, price uint64) error {
	if price == 0 {
		return nil
	}
	switch kind {
	case Native:
		if price < NativeMinPrice || price > NativeMaxPrice {
			return errs.WithCause(errs.ErrPricingValidation, fmt.Errorf(
				"native price_per_token %d outside valid range [%d, %d]", price, NativeMinPrice, NativeMaxPrice))
		}
	case Stable:
		if price < StableMinPrice || price > StableMaxPrice {
			return errs.WithCause(errs.ErrPricingValidation, fmt.Errorf(
				"stable price_per_token %d outside valid range [%d, %d]", price, StableMinPrice, StableMaxPrice))
		}
	default:
		return errs.WithCause(errs.ErrPricingValidation, fmt.Errorf("unknown token kind %d", kind))
	}
	return nil
}

// KindForToken classifies a payment_token address per §3/§6: the empty
// string or the all-zero address denotes the chain's native token.
func KindForToken(paymentToken string) TokenKind {
	switch paymentToken {
	case "", "0x0000000000000000000000000000000000000000", "0x0000000000000000000000000000000000000":
		return Native
	default:
		return Stable
	}
}

// ModelID is either a 32-byte canonical hash or a {repo, filename} pair
// whose canonical hash is keccak256(repo || "/" || filename) (§3).
type ModelID struct {
	Repo     string
	Filename string
	Hash     [32]byte
	hasHash  bool
}

// NewModelIDFromHash wraps an already-canonical 32-byte model hash.
func NewModelIDFromHash(hash [32]byte) ModelID {
	return ModelID{Hash: hash, hasHash: true}
}

// NewModelIDFromRepoFile builds a ModelID from a repo/filename pair; its
// canonical hash is computed lazily by Canonicalize.
func NewModelIDFromRepoFile(repo, filename string) ModelID {
	return ModelID{Repo: repo, Filename: filename}
}

// ParseModelID parses either a bare "repo:filename" string (canonicalized
// per §4.6) or a 64-hex-character canonical hash.
func ParseModelID(s string) (ModelID, error) {
	if s == "" {
		return ModelID{}, errs.ErrInvalidModelID
	}
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			repo, filename := s[:i], s[i+1:]
			if repo == "" || filename == "" {
				return ModelID{}, errs.ErrInvalidModelID
			}
			return NewModelIDFromRepoFile(repo, filename), nil
		}
	}
	decoded, err := decodeHex32(s)
	if err != nil {
		return ModelID{}, errs.ErrInvalidModelID
	}
	return NewModelIDFromHash(decoded), nil
}

func decodeHex32(s string) ([32]byte, error) {
	var out [32]byte
	if len(s) != 64 {
		return out, fmt.Errorf("pricing: model hash must be 64 hex chars, got %d", len(s))
	}
	for i := 0; i < 32; i++ {
		hi, err1 := hexNibble(s[i*2])
		lo, err2 := hexNibble(s[i*2+1])
		if err1 != nil || err2 != nil {
			return out, fmt.Errorf("pricing: invalid hex in model hash")
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexNibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("pricing: invalid hex digit %q", c)
	}
}

// Canonicalize returns the 32-byte canonical model hash: the wrapped hash
// directly, or keccak256(repo || "/" || filename) for a repo/filename pair.
func (m ModelID) Canonicalize() [32]byte {
	if m.hasHash {
		return m.Hash
	}
	return [32]byte(ethcrypto.Keccak256([]byte(m.Repo + "/" + m.Filename)))
}

// String returns the canonical hash as a lowercase hex string.
func (m ModelID) String() string {
	h := m.Canonicalize()
	const hextable = "0123456789abcdef"
	buf := make([]byte, 64)
	for i, b := range h {
		buf[i*2] = hextable[b>>4]
		buf[i*2+1] = hextable[b&0x0f]
	}
	return string(buf)
}
