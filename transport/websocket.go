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
	"time"

	"github.com/gorilla/websocket"
)

// wsConn adapts *websocket.Conn to the Conn interface the Multiplexer
// expects, grounded on the teacher's WSTransport connection handling.
type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) WriteJSON(v interface{}) error      { return c.conn.WriteJSON(v) }
func (c *wsConn) ReadJSON(v interface{}) error       { return c.conn.ReadJSON(v) }
func (c *wsConn) Close() error                       { return c.conn.Close() }
func (c *wsConn) SetReadDeadline(t time.Time) error  { return c.conn.SetReadDeadline(t) }
func (c *wsConn) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }

// DialOptions configures a WebSocket dial.
type DialOptions struct {
	HandshakeTimeout time.Duration
	Header           map[string][]string
}

// Dial opens a WebSocket connection to url and wraps it as a Conn suitable
// for New. Grounded on the teacher's NewWSTransport/Connect pairing, folded
// into a single call since this SDK dials once per session rather than
// lazily reconnecting.
func Dial(ctx context.Context, url string, opts DialOptions) (Conn, error) {
	timeout := opts.HandshakeTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	dialer := &websocket.Dialer{HandshakeTimeout: timeout}

	conn, resp, err := dialer.DialContext(ctx, url, opts.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("transport: websocket dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("transport: websocket dial failed: %w", err)
	}
	return &wsConn{conn: conn}, nil
}
