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

package identity

import (
	"fmt"
	"math/big"
)

// BigInt wraps math/big.Int so it JSON-(de)serializes using the
// "<digits>n" sentinel convention: a trailing "n" marks an
// arbitrary-precision integer so the decoder can round-trip it without
// losing precision the way a bare JSON number would above 2^53.
type BigInt struct {
	*big.Int
}

// NewBigInt wraps v as a BigInt.
func NewBigInt(v *big.Int) BigInt { return BigInt{v} }

// MarshalJSON encodes the value as a JSON string "<digits>n".
func (b BigInt) MarshalJSON() ([]byte, error) {
	if b.Int == nil {
		return []byte(`"0n"`), nil
	}
	return []byte(fmt.Sprintf(`"%sn"`, b.Int.String())), nil
}

// UnmarshalJSON decodes a JSON string "<digits>n", reversing MarshalJSON.
func (b *BigInt) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("identity: bigint: not a JSON string: %s", s)
	}
	s = s[1 : len(s)-1]
	if len(s) == 0 || s[len(s)-1] != 'n' {
		return fmt.Errorf("identity: bigint: missing trailing 'n' sentinel: %s", s)
	}
	s = s[:len(s)-1]

	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return fmt.Errorf("identity: bigint: invalid integer: %s", s)
	}
	b.Int = v
	return nil
}
