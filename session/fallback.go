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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fabstir/llm-marketplace-sdk/errs"
)

// inferenceRequest is the wire body of POST /v1/inference (§6).
type inferenceRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	SessionID   string  `json:"sessionId"`
	JobID       string  `json:"jobId"`
}

// inferenceResponse accepts whichever of the four response-field spellings
// the host used (§6: `{response|text|content|generated_text}`).
type inferenceResponse struct {
	Response      string `json:"response"`
	Text          string `json:"text"`
	Content       string `json:"content"`
	GeneratedText string `json:"generated_text"`
}

func (r inferenceResponse) content() string {
	switch {
	case r.Response != "":
		return r.Response
	case r.Text != "":
		return r.Text
	case r.Content != "":
		return r.Content
	default:
		return r.GeneratedText
	}
}

// FallbackOptions configures a non-streaming inference call.
type FallbackOptions struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration // default 60s
}

// SendPromptNonStreaming implements the §6 `POST /v1/inference` fallback:
// a single request/response round trip over plain HTTP, bypassing the
// transport multiplexer entirely. Used when a host does not support (or a
// caller does not want) the WebSocket streaming path. This path never
// encrypts the prompt: a plaintext fallback against an encrypted session is
// a caller error, not something this SDK can silently paper over.
func (m *Manager) SendPromptNonStreaming(ctx context.Context, sess *Session, prompt string, opts FallbackOptions) (string, error) {
	sess.mu.Lock()
	state := sess.state
	encryption := sess.encryption
	endpoint := sess.hostEndpoint
	model := sess.model
	sessionID := sess.id
	jobID := sess.jobID
	sess.mu.Unlock()

	if state != StateActive {
		return "", errs.ErrSessionNotActive
	}
	if encryption {
		return "", errs.WithCause(errs.ErrEncryptionNotAvailable, fmt.Errorf("session: non-streaming fallback is plaintext-only; session requires encryption"))
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reqBody, err := json.Marshal(inferenceRequest{
		Model:       model,
		Prompt:      prompt,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		SessionID:   sessionID,
		JobID:       jobID,
	})
	if err != nil {
		return "", fmt.Errorf("session: marshal inference request: %w", err)
	}

	url := strings.TrimSuffix(endpoint, "/") + "/v1/inference"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("session: build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := m.fallbackClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", errs.WithCause(errs.ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errs.WithCause(errs.ErrRequestError, fmt.Errorf("session: inference endpoint returned %d", resp.StatusCode))
	}

	var ir inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return "", fmt.Errorf("session: decode inference response: %w", err)
	}
	return ir.content(), nil
}

// SetFallbackHTTPClient overrides the client used by SendPromptNonStreaming
// (tests substitute one pointed at an httptest.Server).
func (m *Manager) SetFallbackHTTPClient(c *http.Client) {
	m.fallbackClient = c
}
