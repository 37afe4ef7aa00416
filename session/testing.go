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

package session

import (
	"time"

	"github.com/fabstir/llm-marketplace-sdk/transport"
)

// NewForTesting builds a minimally-populated, active Session for use by
// other packages' tests (e.g. rag's context-injection tests), which cannot
// reach Session's unexported fields directly.
func NewForTesting(id, hostEndpoint string, mux *transport.Multiplexer, rag *RAGConfig) *Session {
	now := time.Now()
	return &Session{
		id:            id,
		hostEndpoint:  hostEndpoint,
		mux:           mux,
		ragConfig:     rag,
		state:         StateActive,
		streamTimeout: 60 * time.Second,
		createdAt:     now,
		updatedAt:     now,
	}
}

// WithEncryptionForTesting enables encryption on a Session built via
// NewForTesting and installs an explicit session key, for tests that need a
// deterministic key (§8 scenario 1 uses 32 zero bytes).
func (s *Session) WithEncryptionForTesting(sessionKey []byte) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.encryption = true
	s.sessionKey = sessionKey
	return s
}

// WithStreamTimeoutForTesting overrides the sliding-window timeout used by
// SendPromptStreaming's reassembly state machine.
func (s *Session) WithStreamTimeoutForTesting(d time.Duration) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamTimeout = d
	return s
}
