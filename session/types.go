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

// Package session implements the §4.6 session state machine: establishing a
// session with a host, streaming prompts over the §4.7 transport, submitting
// payment checkpoints, and tearing the session down.
package session

import (
	"sync"
	"time"

	"github.com/fabstir/llm-marketplace-sdk/transport"
)

// State is a session's lifecycle state: pending → active → (paused ↔
// active)* → terminal (completed, ended, or failed).
type State string

const (
	StatePending   State = "pending"
	StateActive    State = "active"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateEnded     State = "ended"
	StateFailed    State = "failed"
)

// HostSelectionMode controls how start_session picks a host when the caller
// does not supply an explicit host_address (§6).
type HostSelectionMode string

const (
	ModeAuto     HostSelectionMode = "AUTO"
	ModeCheapest HostSelectionMode = "CHEAPEST"
	ModeSpecific HostSelectionMode = "SPECIFIC"
)

// RAGConfig enables context-injection on prompts sent through a session
// (§4.9).
type RAGConfig struct {
	Enabled   bool
	TopK      int
	Threshold float64
}

// VectorDBRef identifies the vector database a session's RAG context is
// drawn from.
type VectorDBRef struct {
	ManifestPath string
	UserAddress  string
}

// Checkpoint is one accepted payment-proof checkpoint together with the
// cumulative token count it attests (§3: "checkpoints (ordered sequence of
// proofs with cumulative token counts)").
type Checkpoint struct {
	Proof            []byte
	CumulativeTokens uint64
	SubmittedAt      time.Time
}

// Config is the caller-supplied input to start_session (§4.6).
type Config struct {
	ChainID       uint64
	Model         string // canonical hash hex or "repo:filename"
	HostAddress   string // optional explicit host
	SelectionMode HostSelectionMode
	PaymentToken  string // empty/zero address == native
	PricePerToken uint64 // 0 == use host default
	DepositAmount uint64
	Encryption    bool // the zero value (false) opens a plaintext session; an encrypted session is never silently downgraded
	RAG           *RAGConfig
	VectorDB      *VectorDBRef
	StreamTimeout time.Duration // default 60s
	UserAddress   string
}

// Session is one client/host conversation in progress.
type Session struct {
	mu sync.Mutex

	id            string
	jobID         string
	chainID       uint64
	hostAddress   string
	hostEndpoint  string
	model         string
	paymentToken  string
	pricePerToken uint64
	encryption    bool
	state         State
	totalTokens   uint64
	checkpoints   []Checkpoint
	ragConfig     *RAGConfig
	vectorDB      *VectorDBRef
	streamTimeout time.Duration
	userAddress   string

	sessionKey   []byte // 32 random bytes, owned exclusively by the session
	messageIndex uint64

	mux       *transport.Multiplexer
	conn      transport.Conn
	createdAt time.Time
	updatedAt time.Time
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TotalTokens returns tokens accounted so far via checkpoints.
func (s *Session) TotalTokens() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalTokens
}

// Checkpoints returns the ordered sequence of accepted checkpoint proofs.
func (s *Session) Checkpoints() []Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Checkpoint, len(s.checkpoints))
	copy(out, s.checkpoints)
	return out
}

// Mux returns the session's transport multiplexer, or nil before the first
// prompt has been sent (§4.6: the transport opens lazily on first use).
func (s *Session) Mux() *transport.Multiplexer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mux
}

// HostEndpoint returns the selected host's HTTP/WebSocket base endpoint.
func (s *Session) HostEndpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostEndpoint
}

// ChainID returns the session's chain id, needed by the embedding HTTP call
// (§4.9's `/v1/embed` request body carries `chainId`).
func (s *Session) ChainID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chainID
}

// RAGConfig returns the session's RAG configuration, or nil if RAG was not
// requested at start_session.
func (s *Session) RAGConfig() *RAGConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ragConfig
}
