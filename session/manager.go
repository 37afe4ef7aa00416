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
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/fabstir/llm-marketplace-sdk/envelope"
	"github.com/fabstir/llm-marketplace-sdk/errs"
	"github.com/fabstir/llm-marketplace-sdk/identity"
	"github.com/fabstir/llm-marketplace-sdk/pkg/storage"
	"github.com/fabstir/llm-marketplace-sdk/pricing"
)

// Identity is the subset of identity.Manager the session package depends
// on, kept as an interface so tests can fake a host/user without real
// secp256k1 key material.
type Identity interface {
	Address() string
	PublicKeyCompressed() []byte
	SessionInitEncrypt(hostPub []byte, payload identity.SessionInitPayload) (*envelope.Envelope, error)
}

// HostKeyResolver resolves a host's static public key (§4.5).
type HostKeyResolver interface {
	Resolve(ctx context.Context, hostAddress, endpoint string) ([]byte, error)
}

// NewManager builds a session Manager. supportedChainIDs is the configured
// set start_session validates chain_id against (§6).
func NewManager(directory Directory, payment Payment, convos storage.ConversationStore, settings storage.SettingsStore, ident Identity, hostKeys HostKeyResolver, supportedChainIDs []uint64) *Manager {
	supported := make(map[uint64]bool, len(supportedChainIDs))
	for _, id := range supportedChainIDs {
		supported[id] = true
	}
	return &Manager{
		directory: directory,
		payment:   payment,
		convos:    convos,
		settings:  settings,
		identity:  ident,
		hostKeys:  hostKeys,
		supported: supported,
	}
}

// StartSession implements §4.6 start_session.
func (m *Manager) StartSession(ctx context.Context, cfg Config) (*Session, error) {
	if len(m.supported) > 0 && !m.supported[cfg.ChainID] {
		return nil, errs.ErrUnsupportedChain
	}
	if cfg.ChainID == 0 {
		return nil, errs.ErrMissingChainID
	}

	modelID, err := pricing.ParseModelID(cfg.Model)
	if err != nil {
		return nil, err
	}
	modelHash := modelID.Canonicalize()

	tokenKind := pricing.KindForToken(cfg.PaymentToken)
	if err := pricing.ValidatePrice(tokenKind, cfg.PricePerToken); err != nil {
		return nil, err
	}

	mode := cfg.SelectionMode
	if mode == "" {
		mode = ModeAuto
	}
	host, err := m.directory.SelectHost(ctx, modelHash, mode, cfg.HostAddress)
	if err != nil {
		return nil, fmt.Errorf("session: select host: %w", errs.WithCause(errs.ErrNoHostsAvailable, err))
	}

	price, err := m.directory.EffectivePrice(ctx, host.Address, modelHash, cfg.PaymentToken)
	if err != nil {
		return nil, fmt.Errorf("session: effective price: %w", err)
	}
	if price == 0 {
		return nil, errs.WithCause(errs.ErrPricingValidation, fmt.Errorf("effective price_per_token must be positive"))
	}
	if err := pricing.ValidatePrice(tokenKind, price); err != nil {
		return nil, err
	}

	jobID, sessionID, err := m.payment.OpenJob(ctx, JobParams{
		ChainID:       cfg.ChainID,
		ModelHash:     modelHash,
		HostAddress:   host.Address,
		PaymentToken:  cfg.PaymentToken,
		PricePerToken: price,
		DepositAmount: cfg.DepositAmount,
	})
	if err != nil {
		return nil, fmt.Errorf("session: open job: %w", err)
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	streamTimeout := cfg.StreamTimeout
	if streamTimeout == 0 {
		streamTimeout = 60 * time.Second
	}

	encryption := cfg.Encryption

	now := time.Now()
	sess := &Session{
		id:            sessionID,
		jobID:         jobID,
		chainID:       cfg.ChainID,
		hostAddress:   host.Address,
		hostEndpoint:  host.Endpoint,
		model:         cfg.Model,
		paymentToken:  cfg.PaymentToken,
		pricePerToken: price,
		encryption:    encryption,
		state:         StateActive,
		ragConfig:     cfg.RAG,
		vectorDB:      cfg.VectorDB,
		streamTimeout: streamTimeout,
		userAddress:   cfg.UserAddress,
		createdAt:     now,
		updatedAt:     now,
	}

	record := storage.ConversationRecord{
		ID: sessionID,
		Metadata: storage.ConversationMetadata{
			ChainID:    cfg.ChainID,
			Model:      cfg.Model,
			Provider:   host.Address,
			Endpoint:   host.Endpoint,
			JobID:      jobID,
			Status:     string(StateActive),
			Encryption: encryption,
			StartTime:  now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.convos.Put(ctx, record); err != nil {
		return nil, fmt.Errorf("session: persist conversation record: %w", err)
	}

	if err := m.settings.SetLastHostAddress(ctx, host.Address); err != nil {
		return nil, fmt.Errorf("session: persist last host: %w", err)
	}

	return sess, nil
}

// SubmitCheckpoint implements §4.6 submit_checkpoint: forwards proof and its
// cumulative token count to the payment collaborator, then appends the
// checkpoint and advances total_tokens. §3's invariant ("total tokens ...
// must never decrease") is enforced before the call reaches the
// collaborator at all.
func (m *Manager) SubmitCheckpoint(ctx context.Context, sess *Session, proof []byte, cumulativeTokens uint64) error {
	sess.mu.Lock()
	if cumulativeTokens < sess.totalTokens {
		sess.mu.Unlock()
		return errs.WithCause(errs.ErrInvalidParameter, fmt.Errorf("session: cumulative token count must not decrease"))
	}
	sess.mu.Unlock()

	if err := m.payment.SubmitCheckpoint(ctx, sess.id, proof, cumulativeTokens); err != nil {
		return fmt.Errorf("session: submit checkpoint: %w", err)
	}

	sess.mu.Lock()
	sess.checkpoints = append(sess.checkpoints, Checkpoint{
		Proof:            proof,
		CumulativeTokens: cumulativeTokens,
		SubmittedAt:      time.Now(),
	})
	sess.totalTokens = cumulativeTokens
	sess.updatedAt = time.Now()
	sess.mu.Unlock()
	return nil
}

// CompleteSession implements §4.6 complete_session: idempotent, attempts
// completion even if the session is already terminal or untracked.
func (m *Manager) CompleteSession(ctx context.Context, sess *Session, totalTokens uint64, finalProof []byte) error {
	if err := m.payment.CompleteSession(ctx, sess.id, totalTokens, finalProof); err != nil {
		sess.mu.Lock()
		sess.state = StateFailed
		sess.updatedAt = time.Now()
		if sess.mux != nil {
			sess.mux.UnregisterSession(sess.id)
			_ = sess.mux.Close()
		}
		sess.mu.Unlock()
		_ = m.convos.UpdateStatus(ctx, sess.id, string(StateFailed), sess.TotalTokens())
		return fmt.Errorf("session: complete session: %w", err)
	}

	sess.mu.Lock()
	sess.state = StateCompleted
	sess.totalTokens = totalTokens
	sess.updatedAt = time.Now()
	if sess.mux != nil {
		sess.mux.UnregisterSession(sess.id)
		_ = sess.mux.Close()
	}
	sess.mu.Unlock()

	return m.convos.UpdateStatus(ctx, sess.id, string(StateCompleted), totalTokens)
}

// EndSession implements §4.6 end_session: user-initiated close.
func (m *Manager) EndSession(ctx context.Context, sess *Session) error {
	sess.mu.Lock()
	sess.state = StateEnded
	sess.updatedAt = time.Now()
	if sess.mux != nil {
		sess.mux.UnregisterSession(sess.id)
		_ = sess.mux.Close()
	}
	sess.mu.Unlock()

	return m.convos.UpdateStatus(ctx, sess.id, string(StateEnded), sess.TotalTokens())
}

func newSessionKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("session: generate session key: %w", err)
	}
	return key, nil
}
