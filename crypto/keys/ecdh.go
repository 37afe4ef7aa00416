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

package keys

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	sagecrypto "github.com/fabstir/llm-marketplace-sdk/crypto"
)

// ECDH performs scalar multiplication of kp's private scalar against the
// point encoded by peerPubCompressed (33-byte SEC1-compressed) and returns
// the X-coordinate of the resulting point as 32 big-endian bytes — the IKM
// for hkdf_32 (§4.1, §4.2 step 2).
func ECDH(kp sagecrypto.KeyPair, peerPubCompressed []byte) ([]byte, error) {
	sk, ok := kp.(*secp256k1KeyPair)
	if !ok {
		return nil, sagecrypto.ErrInvalidKeyType
	}
	peer, err := ethcrypto.DecompressPubkey(peerPubCompressed)
	if err != nil {
		return nil, sagecrypto.ErrInvalidPublicKey
	}

	curve := sk.priv.Curve
	x, y := curve.ScalarMult(peer.X, peer.Y, sk.priv.D.Bytes())
	if x.Sign() == 0 && y.Sign() == 0 {
		return nil, sagecrypto.ErrInvalidPublicKey
	}

	shared := make([]byte, 32)
	xb := x.Bytes()
	copy(shared[32-len(xb):], xb)
	return shared, nil
}
