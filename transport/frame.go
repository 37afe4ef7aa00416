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

// Package transport implements the transport multiplexer: a single
// full-duplex JSON-frame channel carrying both streamed inference chunks
// and request-scoped RAG RPCs, dispatched by frame "type" to the right
// handler.
package transport

import "encoding/json"

// Frame type tags.
const (
	TypeEncryptedSessionInit  = "encrypted_session_init"
	TypeSessionInit           = "session_init"
	TypeEncryptedMessage      = "encrypted_message"
	TypePrompt                = "prompt"
	TypeUploadVectors         = "uploadVectors"
	TypeSearchVectors         = "searchVectors"
	TypeEncryptedChunk        = "encrypted_chunk"
	TypeEncryptedResponse     = "encrypted_response"
	TypeStreamChunk           = "stream_chunk"
	TypeStreamEnd             = "stream_end"
	TypeResponse              = "response"
	TypeError                 = "error"
	TypeProofSubmitted        = "proof_submitted"
	TypeCheckpointSubmitted   = "checkpoint_submitted"
	TypeSessionCompleted      = "session_completed"
	TypeUploadVectorsResponse = "uploadVectorsResponse"
	TypeSearchVectorsResponse = "searchVectorsResponse"
)

// PayloadHex is the wire shape of an encrypted streaming message:
// a ciphertext, nonce and AAD all hex-encoded.
type PayloadHex struct {
	CiphertextHex string `json:"ciphertextHex"`
	NonceHex      string `json:"nonceHex"`
	AadHex        string `json:"aadHex"`
}

// EnvelopeJSON mirrors envelope.JSON's field names for frames that embed a
// full ephemeral-cipher envelope (encrypted_session_init's payload field).
type EnvelopeJSON struct {
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

// EncryptedSessionInitFrame is C→H encrypted_session_init.
type EncryptedSessionInitFrame struct {
	Type      string       `json:"type"`
	Payload   EnvelopeJSON `json:"payload"`
	ChainID   uint64       `json:"chain_id"`
	SessionID string       `json:"session_id"`
	JobID     string       `json:"job_id"`
}

// SessionInitFrame is C→H plaintext session_init.
type SessionInitFrame struct {
	Type           string          `json:"type"`
	ChainID        uint64          `json:"chain_id"`
	SessionID      string          `json:"session_id"`
	JobID          string          `json:"jobId"`
	UserAddress    string          `json:"user_address"`
	VectorDatabase json.RawMessage `json:"vector_database,omitempty"`
}

// EncryptedMessageFrame is C→H encrypted_message.
type EncryptedMessageFrame struct {
	Type      string     `json:"type"`
	SessionID string     `json:"session_id"`
	ID        string     `json:"id"`
	Payload   PayloadHex `json:"payload"`
}

// PromptRequest is the nested `request` object of a plaintext prompt frame.
type PromptRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Stream      bool    `json:"stream"`
}

// PromptFrame is C→H plaintext prompt.
type PromptFrame struct {
	Type    string        `json:"type"`
	ChainID uint64        `json:"chain_id"`
	JobID   string        `json:"jobId"`
	Prompt  string        `json:"prompt"`
	Request PromptRequest `json:"request"`
}

// VectorJSON is one vector record on the wire.
type VectorJSON struct {
	ID        string                 `json:"id"`
	Embedding []float32              `json:"embedding"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// UploadVectorsFrame is C→H uploadVectors.
type UploadVectorsFrame struct {
	Type      string       `json:"type"`
	SessionID string       `json:"session_id"`
	RequestID string       `json:"requestId"`
	Vectors   []VectorJSON `json:"vectors"`
	Replace   bool         `json:"replace"`
}

// SearchVectorsFrame is C→H searchVectors.
type SearchVectorsFrame struct {
	Type        string    `json:"type"`
	SessionID   string    `json:"session_id"`
	RequestID   string    `json:"requestId"`
	QueryVector []float32 `json:"queryVector"`
	K           int       `json:"k"`
	Threshold   float64   `json:"threshold"`
}

// SearchResult is one scored hit inside a searchVectorsResponse.
type SearchResult struct {
	ID       string                 `json:"id"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// InboundFrame is the union decoding shape for every H→C frame: fields
// irrelevant to a given type simply decode to their zero value. Using one
// loosely-typed struct keeps the dispatcher's type switch in one place
// instead of a per-type unmarshal-then-rewrap dance.
type InboundFrame struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Content   string          `json:"content,omitempty"`
	Final     bool            `json:"final,omitempty"`
	Message   string          `json:"message,omitempty"`
	Status    string          `json:"status,omitempty"`
	Uploaded  int             `json:"uploaded,omitempty"`
	Rejected  int             `json:"rejected,omitempty"`
	Errors    []string        `json:"errors,omitempty"`
	Results   []SearchResult  `json:"results,omitempty"`
}

// DecodePayloadHex decodes f.Payload as a PayloadHex (encrypted_chunk,
// encrypted_message inbound echo, etc.).
func (f *InboundFrame) DecodePayloadHex() (*PayloadHex, error) {
	var p PayloadHex
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DecodePayloadEnvelope decodes f.Payload as an EnvelopeJSON (a full
// ephemeral-key envelope). Streamed encrypted_chunk and encrypted_response
// payloads are session-key PayloadHex values; see DecodePayloadHex.
func (f *InboundFrame) DecodePayloadEnvelope() (*EnvelopeJSON, error) {
	var e EnvelopeJSON
	if err := json.Unmarshal(f.Payload, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// IsTerminal reports whether this inbound frame type terminates an
// inference-reassembly read on its own, independent of any Final flag.
func (f *InboundFrame) IsTerminal() bool {
	switch f.Type {
	case TypeEncryptedResponse, TypeResponse, TypeStreamEnd:
		return true
	case TypeEncryptedChunk, TypeStreamChunk:
		return f.Final
	default:
		return false
	}
}

// IsInformational reports whether this frame type is observed but never
// terminates a read.
func (f *InboundFrame) IsInformational() bool {
	switch f.Type {
	case TypeProofSubmitted, TypeCheckpointSubmitted, TypeSessionCompleted:
		return true
	default:
		return false
	}
}
