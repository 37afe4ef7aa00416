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

// Package hostkey implements the host key resolver (§4.5): a process-wide,
// read-mostly cache of host static public keys, backed by a directory
// lookup and, failing that, a signature-challenge handshake against the
// host's /v1/auth/challenge endpoint.
package hostkey

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	sagecrypto "github.com/fabstir/llm-marketplace-sdk/crypto"
	"github.com/fabstir/llm-marketplace-sdk/crypto/keys"
	"github.com/fabstir/llm-marketplace-sdk/errs"
	"github.com/fabstir/llm-marketplace-sdk/internal/logger"
	"github.com/fabstir/llm-marketplace-sdk/internal/metrics"
)

// Directory is the external model/host-catalog collaborator (§1 out of
// scope): the resolver consults it before falling back to the on-the-wire
// challenge handshake.
type Directory interface {
	// HostPublicKey returns the host's compressed static public key if the
	// directory record carries one, or ok==false if it does not.
	HostPublicKey(ctx context.Context, hostAddress string) (pubKey []byte, ok bool, err error)
}

// cacheEntry is a process-wide, read-mostly insert: once a host address is
// resolved it is never evicted, matching §5's "idempotent inserts" model.
type cacheEntry struct {
	pubKey []byte
}

// Resolver implements §4.5's three-step resolution: cache, directory,
// signature-challenge handshake.
type Resolver struct {
	directory Directory
	client    *http.Client
	log       logger.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry

	// group de-duplicates concurrent resolutions of the same host address
	// so a thundering herd of sessions opening against the same host
	// issues exactly one challenge handshake (§5 shared host-pubkey cache).
	group singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient overrides the default http.Client (e.g. for tests).
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// WithLogger overrides the default logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// New constructs a Resolver. directory may be nil if no directory
// collaborator is available, in which case resolution always falls through
// to the challenge handshake.
func New(directory Directory, opts ...Option) *Resolver {
	r := &Resolver{
		directory: directory,
		client:    &http.Client{Timeout: 15 * time.Second},
		log:       logger.GetDefaultLogger(),
		cache:     make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// challengeRequest/challengeResponse are the wire shapes of POST
// /v1/auth/challenge (§6).
type challengeRequest struct {
	Challenge string `json:"challenge"`
}

type challengeResponse struct {
	Signature string `json:"signature"`
	RecID     uint8  `json:"recid"`
}

// Resolve returns the host's 33-byte compressed static public key, per
// §4.5: cache lookup, then directory, then signed-challenge handshake
// against endpoint. hostAddress must match the recovered signer's
// EIP-55 address case-insensitively or resolution fails.
func (r *Resolver) Resolve(ctx context.Context, hostAddress, endpoint string) ([]byte, error) {
	if cached, ok := r.fromCache(hostAddress); ok {
		metrics.HostKeyResolutions.WithLabelValues("cache").Inc()
		return cached, nil
	}

	v, err, _ := r.group.Do(hostAddress, func() (interface{}, error) {
		// Re-check cache: a concurrent resolution may have completed while
		// this goroutine was waiting to enter the singleflight group.
		if cached, ok := r.fromCache(hostAddress); ok {
			metrics.HostKeyResolutions.WithLabelValues("cache").Inc()
			return cached, nil
		}

		if r.directory != nil {
			pub, ok, dirErr := r.directory.HostPublicKey(ctx, hostAddress)
			if dirErr != nil {
				return nil, fmt.Errorf("hostkey: directory lookup: %w", dirErr)
			}
			if ok {
				compressed, cErr := sagecrypto.CompressPubkey(pub)
				if cErr != nil {
					return nil, fmt.Errorf("hostkey: directory returned invalid public key: %w", cErr)
				}
				r.store(hostAddress, compressed)
				metrics.HostKeyResolutions.WithLabelValues("directory").Inc()
				return compressed, nil
			}
		}

		pub, err := r.challengeHandshake(ctx, hostAddress, endpoint)
		if err != nil {
			return nil, err
		}
		r.store(hostAddress, pub)
		metrics.HostKeyResolutions.WithLabelValues("challenge").Inc()
		return pub, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (r *Resolver) fromCache(hostAddress string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.cache[strings.ToLower(hostAddress)]
	if !ok {
		return nil, false
	}
	return e.pubKey, true
}

func (r *Resolver) store(hostAddress string, pub []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[strings.ToLower(hostAddress)] = cacheEntry{pubKey: pub}
}

// challengeHandshake implements §4.5 step 3: a fresh 32-byte random
// challenge is posted to endpoint + "/v1/auth/challenge"; the host replies
// with a recoverable signature over SHA-256(challenge); the recovered
// address must match hostAddress case-insensitively.
func (r *Resolver) challengeHandshake(ctx context.Context, hostAddress, endpoint string) ([]byte, error) {
	start := time.Now()

	challenge := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, challenge); err != nil {
		return nil, fmt.Errorf("hostkey: generate challenge: %w", err)
	}

	body, err := json.Marshal(challengeRequest{Challenge: sagecrypto.HexEncode(challenge)})
	if err != nil {
		return nil, fmt.Errorf("hostkey: marshal challenge request: %w", err)
	}

	url := strings.TrimSuffix(endpoint, "/") + "/v1/auth/challenge"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errs.WithCause(errs.ErrNetworkError, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	metrics.HostKeyHandshakeDuration.WithLabelValues("challenge").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.HostKeyHandshakesCompleted.WithLabelValues("failure").Inc()
		return nil, errs.WithCause(errs.ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.HostKeyHandshakesCompleted.WithLabelValues("failure").Inc()
		return nil, errs.WithCause(errs.ErrNetworkError, fmt.Errorf("hostkey: challenge endpoint returned %d", resp.StatusCode))
	}

	var cr challengeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		metrics.HostKeyHandshakesCompleted.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("hostkey: decode challenge response: %w", err)
	}

	verifyStart := time.Now()
	sig, err := sagecrypto.HexDecode(cr.Signature)
	if err != nil {
		metrics.HostKeyHandshakesCompleted.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("hostkey: decode signature: %w", err)
	}
	// The source coexists two encoders: one that embeds the recovery byte
	// as the 65th byte of the signature, one that carries it only in the
	// separate recid field. Accept either (§9 Open Question 1).
	if len(sig) == 64 {
		sig = append(sig, cr.RecID)
	}

	digest := sha256Sum(challenge)
	pub, err := keys.RecoverCompressedPubkey(digest, sig)
	if err != nil {
		metrics.HostKeyHandshakesCompleted.WithLabelValues("failure").Inc()
		return nil, errs.WithCause(errs.ErrSignatureVerificationFailed, err)
	}
	if err := keys.VerifyRecoverable(pub, digest, sig); err != nil {
		metrics.HostKeyHandshakesCompleted.WithLabelValues("failure").Inc()
		return nil, errs.WithCause(errs.ErrSignatureVerificationFailed, err)
	}

	addr, err := sagecrypto.PubkeyToAddress(pub)
	if err != nil {
		metrics.HostKeyHandshakesCompleted.WithLabelValues("failure").Inc()
		return nil, err
	}
	metrics.HostKeyHandshakeDuration.WithLabelValues("verify").Observe(time.Since(verifyStart).Seconds())

	if !strings.EqualFold(addr, hostAddress) {
		metrics.HostKeyHandshakesCompleted.WithLabelValues("address_mismatch").Inc()
		r.log.Warn("hostkey: recovered address mismatch",
			logger.String("expected", hostAddress), logger.String("recovered", addr))
		return nil, errs.ErrHostAddressMismatch
	}

	metrics.HostKeyHandshakesCompleted.WithLabelValues("success").Inc()
	return pub, nil
}
