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
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fabstir/llm-marketplace-sdk/errs"
	"github.com/fabstir/llm-marketplace-sdk/identity"
	"github.com/fabstir/llm-marketplace-sdk/internal/logger"
	"github.com/fabstir/llm-marketplace-sdk/transport"
)

// decryptFunc decrypts one streamed chunk's AEAD payload under the
// session's own key (message_encrypt/message_decrypt, §4.3), distinct from
// the ephemeral-cipher envelope used only at session-init (§4.2/§4.8).
type decryptFunc func(payload *transport.PayloadHex) (string, error)

// reassembly drives the §4.6 "inference reassembly sub-machine":
// awaiting_first_chunk → streaming → done, terminating on whichever
// terminator fires first and idempotently ignoring the rest.
type reassembly struct {
	mu       sync.Mutex
	resolved bool

	buf strings.Builder

	onToken func(string)
	decrypt decryptFunc // nil for plaintext sessions

	resultCh chan string
	errCh    chan error

	timer   *time.Timer
	timeout time.Duration

	log logger.Logger
}

func newReassembly(onToken func(string), decrypt decryptFunc, timeout time.Duration, log logger.Logger) *reassembly {
	r := &reassembly{
		onToken:  onToken,
		decrypt:  decrypt,
		resultCh: make(chan string, 1),
		errCh:    make(chan error, 1),
		timeout:  timeout,
		log:      log,
	}
	r.timer = time.AfterFunc(timeout, r.onTimeout)
	return r
}

func (r *reassembly) onTimeout() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved {
		return
	}
	r.resolved = true
	r.errCh <- errs.ErrResponseTimeout
}

func (r *reassembly) resolve(content string) {
	if r.resolved {
		return
	}
	r.resolved = true
	r.timer.Stop()
	r.resultCh <- content
}

func (r *reassembly) reject(err error) {
	if r.resolved {
		return
	}
	r.resolved = true
	r.timer.Stop()
	r.errCh <- err
}

// HandleFrame implements transport.Handler.
func (r *reassembly) HandleFrame(frame *transport.InboundFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved {
		return
	}

	switch frame.Type {
	case transport.TypeEncryptedChunk:
		r.acceptEncrypted(frame)
		if frame.Final {
			r.resolve(r.buf.String())
		}
	case transport.TypeStreamChunk:
		r.acceptPlain(frame.Content)
		if frame.Final {
			r.resolve(r.buf.String())
		}
	case transport.TypeEncryptedResponse:
		r.acceptEncrypted(frame)
		r.resolve(r.buf.String())
	case transport.TypeResponse:
		r.acceptPlain(frame.Content)
		r.resolve(r.buf.String())
	case transport.TypeStreamEnd:
		r.resolve(r.buf.String())
	case transport.TypeError:
		r.reject(errs.WithCause(errs.ErrRequestError, fmt.Errorf("%s", frame.Message)))
	default:
		// proof_submitted, checkpoint_submitted, session_completed: observed,
		// never terminate the read (§4.6).
	}
}

func (r *reassembly) acceptPlain(content string) {
	if content == "" {
		return
	}
	r.buf.WriteString(content)
	r.onToken(content)
	r.timer.Reset(r.timeout)
}

func (r *reassembly) acceptEncrypted(frame *transport.InboundFrame) {
	payload, err := frame.DecodePayloadHex()
	if err != nil {
		r.log.Warn("session: malformed encrypted chunk payload", logger.Error(err))
		return
	}
	plaintext, err := r.decrypt(payload)
	if err != nil {
		// §4.6 failure semantics: a chunk decryption failure is logged and
		// skipped without failing the whole stream.
		r.log.Warn("session: chunk decryption failed, skipping", logger.Error(err))
		r.timer.Reset(r.timeout)
		return
	}
	r.buf.WriteString(plaintext)
	r.onToken(plaintext)
	r.timer.Reset(r.timeout)
}

// await blocks until the reassembly resolves, rejects, ctx is cancelled, or
// the connection closes.
func (r *reassembly) await(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		r.mu.Lock()
		r.reject(ctx.Err())
		r.mu.Unlock()
		return "", ctx.Err()
	case content := <-r.resultCh:
		return content, nil
	case err := <-r.errCh:
		return "", err
	}
}

// OnToken is invoked once per accepted token/chunk of a streamed response.
type OnToken func(token string)

// SendPromptStreaming implements §4.6 send_prompt_streaming.
func (m *Manager) SendPromptStreaming(ctx context.Context, sess *Session, prompt string, onToken OnToken) (string, error) {
	sess.mu.Lock()
	if sess.state != StateActive {
		sess.mu.Unlock()
		return "", errs.ErrSessionNotActive
	}
	firstUse := sess.mux == nil
	sess.mu.Unlock()

	if firstUse {
		if err := m.openTransport(ctx, sess); err != nil {
			return "", err
		}
	}

	augmented := prompt
	if sess.ragConfig != nil && sess.ragConfig.Enabled && m.ragContext != nil {
		augmented = m.ragContext(ctx, sess, prompt)
	}

	var decrypt decryptFunc
	requestID := uuid.NewString()

	sess.mu.Lock()
	encryption := sess.encryption
	sessionKey := sess.sessionKey
	idx := sess.messageIndex
	sess.messageIndex++
	sess.mu.Unlock()

	if encryption {
		decrypt = func(payload *transport.PayloadHex) (string, error) {
			return decryptPayload(sessionKey, payload)
		}

		msg, err := identity.MessageEncrypt(sessionKey, []byte(augmented), idx)
		if err != nil {
			return "", fmt.Errorf("session: encrypt prompt: %w", err)
		}
		frame := transport.EncryptedMessageFrame{
			Type:      transport.TypeEncryptedMessage,
			SessionID: sess.id,
			ID:        requestID,
			Payload: transport.PayloadHex{
				CiphertextHex: hexEncode(msg.Ciphertext),
				NonceHex:      hexEncode(msg.Nonce),
				AadHex:        hexEncode(msg.AAD),
			},
		}
		r := newReassembly(onToken, decrypt, sess.streamTimeout, logger.NewDefaultLogger())
		sess.mux.RegisterSession(sess.id, r)
		defer sess.mux.UnregisterSession(sess.id)

		if err := sess.mux.SendWithoutAwait(frame); err != nil {
			return "", fmt.Errorf("session: send encrypted_message: %w", err)
		}
		return r.await(ctx)
	}

	frame := transport.PromptFrame{
		Type:    transport.TypePrompt,
		ChainID: sess.chainID,
		JobID:   sess.jobID,
		Prompt:  augmented,
		Request: transport.PromptRequest{
			Model:  sess.model,
			Prompt: augmented,
			Stream: true,
		},
	}
	r := newReassembly(onToken, nil, sess.streamTimeout, logger.NewDefaultLogger())
	sess.mux.RegisterSession(sess.id, r)
	defer sess.mux.UnregisterSession(sess.id)

	if err := sess.mux.SendWithoutAwait(frame); err != nil {
		return "", fmt.Errorf("session: send prompt: %w", err)
	}
	return r.await(ctx)
}
