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

package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fabstir/llm-marketplace-sdk/errs"
	"github.com/fabstir/llm-marketplace-sdk/internal/logger"
)

// Conn abstracts the wire connection so the multiplexer can be driven by a
// real *websocket.Conn or any other implementation; the tests use real
// *websocket.Conn values dialed against an httptest server.
type Conn interface {
	WriteJSON(v interface{}) error
	ReadJSON(v interface{}) error
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Handler receives inbound frames addressed to a session rather than to a
// pending request — the streamed inference chunks a session's own
// reassembly state machine consumes.
type Handler interface {
	HandleFrame(frame *InboundFrame)
}

type pendingEntry struct {
	resultCh chan *InboundFrame
	errCh    chan error
	timer    *time.Timer
	once     sync.Once
}

func (p *pendingEntry) resolve(f *InboundFrame) {
	p.once.Do(func() {
		p.timer.Stop()
		p.resultCh <- f
	})
}

func (p *pendingEntry) reject(err error) {
	p.once.Do(func() {
		p.timer.Stop()
		p.errCh <- err
	})
}

// Multiplexer is the single full-duplex JSON-frame channel used for a
// session's transport: one connection, many in-flight request/response
// pairs and many streaming sessions, dispatched by frame type and
// correlation id. It holds only the sessionID → Handler map it needs for
// dispatch; sessions hold a reference back to the Multiplexer, never the
// other way around.
type Multiplexer struct {
	conn Conn
	log  logger.Logger

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]*pendingEntry

	sessionMu sync.RWMutex
	sessions  map[string]Handler

	closeOnce sync.Once
	done      chan struct{}
}

// Option configures a Multiplexer.
type Option func(*Multiplexer)

// WithLogger overrides the default logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Multiplexer) { m.log = l }
}

// New wraps conn in a Multiplexer. Call Run in its own goroutine to start
// dispatching inbound frames.
func New(conn Conn, opts ...Option) *Multiplexer {
	m := &Multiplexer{
		conn:     conn,
		log:      logger.NewDefaultLogger(),
		pending:  make(map[string]*pendingEntry),
		sessions: make(map[string]Handler),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterSession attaches h to receive frames carrying this session id that
// are not resolutions of an outstanding request-scoped call.
func (m *Multiplexer) RegisterSession(sessionID string, h Handler) {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()
	m.sessions[sessionID] = h
}

// UnregisterSession detaches a session's handler on terminal state cleanup.
func (m *Multiplexer) UnregisterSession(sessionID string) {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()
	delete(m.sessions, sessionID)
}

// SendWithoutAwait writes frame and returns as soon as the write completes,
// for fire-and-forget frames such as plaintext prompt or session_init.
func (m *Multiplexer) SendWithoutAwait(frame interface{}) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := m.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("transport: write frame: %w", err)
	}
	return nil
}

// SendAndAwait writes frame and blocks until a frame carrying requestID
// arrives, ctx is cancelled, or timeout elapses — whichever comes first.
// Pending calls are tracked in a request_id → {resolver, rejecter, timer} table.
func (m *Multiplexer) SendAndAwait(ctx context.Context, requestID string, frame interface{}, timeout time.Duration) (*InboundFrame, error) {
	entry := &pendingEntry{
		resultCh: make(chan *InboundFrame, 1),
		errCh:    make(chan error, 1),
	}
	entry.timer = time.AfterFunc(timeout, func() {
		m.removePending(requestID)
		entry.reject(errs.ErrResponseTimeout)
	})

	m.pendingMu.Lock()
	m.pending[requestID] = entry
	m.pendingMu.Unlock()

	if err := m.SendWithoutAwait(frame); err != nil {
		m.removePending(requestID)
		entry.timer.Stop()
		return nil, err
	}

	select {
	case <-ctx.Done():
		m.removePending(requestID)
		entry.reject(ctx.Err())
		return nil, ctx.Err()
	case <-m.done:
		m.removePending(requestID)
		return nil, errs.ErrNetworkError
	case f := <-entry.resultCh:
		return f, nil
	case err := <-entry.errCh:
		return nil, err
	}
}

func (m *Multiplexer) removePending(requestID string) {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	delete(m.pending, requestID)
}

// Run reads frames until the connection closes or ctx is cancelled,
// dispatching each to the pending-request table (by requestId) or to a
// registered session Handler (by session_id). Run blocks; call it in its
// own goroutine.
func (m *Multiplexer) Run(ctx context.Context) error {
	defer m.closeOnce.Do(func() { close(m.done) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var frame InboundFrame
		if err := m.conn.ReadJSON(&frame); err != nil {
			m.failAllPending(errs.WithCause(errs.ErrNetworkError, err))
			return fmt.Errorf("transport: read frame: %w", err)
		}
		m.dispatch(&frame)
	}
}

func (m *Multiplexer) dispatch(frame *InboundFrame) {
	switch frame.Type {
	case TypeUploadVectorsResponse, TypeSearchVectorsResponse:
		if frame.RequestID != "" {
			m.pendingMu.Lock()
			entry, ok := m.pending[frame.RequestID]
			delete(m.pending, frame.RequestID)
			m.pendingMu.Unlock()
			if ok {
				entry.resolve(frame)
				return
			}
		}
	case TypeError:
		if frame.RequestID != "" {
			m.pendingMu.Lock()
			entry, ok := m.pending[frame.RequestID]
			delete(m.pending, frame.RequestID)
			m.pendingMu.Unlock()
			if ok {
				entry.reject(errs.WithCause(errs.ErrRequestError, fmt.Errorf("%s", frame.Message)))
				return
			}
		}
	}

	if frame.SessionID != "" {
		m.sessionMu.RLock()
		h, ok := m.sessions[frame.SessionID]
		m.sessionMu.RUnlock()
		if ok {
			h.HandleFrame(frame)
			return
		}
	}

	m.log.Warn("transport: dropped unroutable frame",
		logger.String("type", frame.Type),
		logger.String("session_id", frame.SessionID),
		logger.String("request_id", frame.RequestID))
}

func (m *Multiplexer) failAllPending(err error) {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	for id, entry := range m.pending {
		entry.reject(err)
		delete(m.pending, id)
	}
}

// Close shuts down the underlying connection and unblocks any in-flight
// SendAndAwait calls with errs.ErrNetworkError.
func (m *Multiplexer) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	m.failAllPending(errs.ErrNetworkError)
	return m.conn.Close()
}
