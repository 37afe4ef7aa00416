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
	sagecrypto "github.com/fabstir/llm-marketplace-sdk/crypto"
)

// JSON is the §6 wire shape of an Envelope: hex-encoded fields with no "0x"
// prefix, plus a redundant top-level recid kept for backward compatibility
// with encoders that omit the recovery byte from signatureHex (§9 Open
// Question 1 — this SDK always emits both and accepts either on decode).
type JSON struct {
	EphPubHex     string `json:"ephPubHex"`
	SaltHex       string `json:"saltHex"`
	NonceHex      string `json:"nonceHex"`
	CiphertextHex string `json:"ciphertextHex"`
	SignatureHex  string `json:"signatureHex"`
	Recid         uint8  `json:"recid"`
	Alg           string `json:"alg"`
	Info          string `json:"info"`
	AadHex        string `json:"aadHex"`
}

// ToJSON converts env to its wire representation.
func (env *Envelope) ToJSON() JSON {
	var recid uint8
	if len(env.Signature) == 65 {
		recid = env.Signature[64]
	}
	return JSON{
		EphPubHex:     sagecrypto.HexEncode(env.EphPub),
		SaltHex:       sagecrypto.HexEncode(env.Salt),
		NonceHex:      sagecrypto.HexEncode(env.Nonce),
		CiphertextHex: sagecrypto.HexEncode(env.Ciphertext),
		SignatureHex:  sagecrypto.HexEncode(env.Signature),
		Recid:         recid,
		Alg:           env.Alg,
		Info:          string(env.Info),
		AadHex:        sagecrypto.HexEncode(env.AAD),
	}
}

// FromJSON parses the wire representation back into an Envelope. If
// signatureHex is only 64 bytes (128 hex chars) — an encoder that omits the
// recovery byte from the signature itself — the top-level recid is appended
// (§9 Open Question 1).
func FromJSON(j JSON) (*Envelope, error) {
	ephPub, err := sagecrypto.HexDecode(j.EphPubHex)
	if err != nil {
		return nil, ErrMalformedEnvelope
	}
	salt, err := sagecrypto.HexDecode(j.SaltHex)
	if err != nil {
		return nil, ErrMalformedEnvelope
	}
	nonce, err := sagecrypto.HexDecode(j.NonceHex)
	if err != nil {
		return nil, ErrMalformedEnvelope
	}
	ciphertext, err := sagecrypto.HexDecode(j.CiphertextHex)
	if err != nil {
		return nil, ErrMalformedEnvelope
	}
	sig, err := sagecrypto.HexDecode(j.SignatureHex)
	if err != nil {
		return nil, ErrMalformedEnvelope
	}
	if len(sig) == 64 {
		sig = append(sig, j.Recid)
	}
	aad, err := sagecrypto.HexDecode(j.AadHex)
	if err != nil {
		return nil, ErrMalformedEnvelope
	}

	return &Envelope{
		EphPub:     ephPub,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
		Signature:  sig,
		Alg:        j.Alg,
		Info:       []byte(j.Info),
		AAD:        aad,
	}, nil
}
