// SPDX-License-Identifier: LGPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabstir/llm-marketplace-sdk/errs"
	"github.com/fabstir/llm-marketplace-sdk/identity"
	"github.com/fabstir/llm-marketplace-sdk/transport"
)

// dialFakeHost spins up an httptest WebSocket server whose behavior is
// fully scripted by handler and returns a client-side Multiplexer dialed
// against it, mirroring transport's own newPair test helper.
func dialFakeHost(t *testing.T, handler func(conn *websocket.Conn)) *transport.Multiplexer {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		go handler(conn)
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := transport.Dial(context.Background(), wsURL, transport.DialOptions{})
	require.NoError(t, err)

	mux := transport.New(conn)
	go mux.Run(context.Background())
	t.Cleanup(func() { mux.Close() })
	return mux
}

func encryptedChunkFrame(t *testing.T, sessionID string, key []byte, plaintext string, final bool) transport.InboundFrame {
	t.Helper()
	msg, err := identity.MessageEncrypt(key, []byte(plaintext), 0)
	require.NoError(t, err)

	payload, err := json.Marshal(transport.PayloadHex{
		CiphertextHex: hexEncode(msg.Ciphertext),
		NonceHex:      hexEncode(msg.Nonce),
		AadHex:        hexEncode(msg.AAD),
	})
	require.NoError(t, err)

	return transport.InboundFrame{
		Type:      transport.TypeEncryptedChunk,
		SessionID: sessionID,
		Payload:   payload,
		Final:     final,
	}
}

// TestSendPromptStreaming_HappyPathEncrypted covers §8 scenario 1: three
// chunks decrypted and delivered to on_token in order, the third carrying
// final=true, resolving with their concatenation while the session stays
// active.
func TestSendPromptStreaming_HappyPathEncrypted(t *testing.T) {
	zeroKey := make([]byte, 32)

	mux := dialFakeHost(t, func(conn *websocket.Conn) {
		var outbound transport.EncryptedMessageFrame
		require.NoError(t, conn.ReadJSON(&outbound))

		require.NoError(t, conn.WriteJSON(encryptedChunkFrame(t, "sess-1", zeroKey, "Hello ", false)))
		require.NoError(t, conn.WriteJSON(encryptedChunkFrame(t, "sess-1", zeroKey, "world", false)))
		require.NoError(t, conn.WriteJSON(encryptedChunkFrame(t, "sess-1", zeroKey, "", true)))
	})

	sess := NewForTesting("sess-1", "", mux, nil).WithEncryptionForTesting(zeroKey)

	var tokens []string
	m := &Manager{}
	result, err := m.SendPromptStreaming(context.Background(), sess, "what's up?", func(tok string) {
		tokens = append(tokens, tok)
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello world", result)
	assert.Equal(t, []string{"Hello ", "world", ""}, tokens)
	assert.Equal(t, StateActive, sess.State())
}

// TestSendPromptStreaming_SlidingTimeout covers §8 scenario 2: chunks reset
// the inactivity timer, but once the host goes silent for longer than the
// sliding window the send fails with ResponseTimeout and the accumulated
// content is discarded.
func TestSendPromptStreaming_SlidingTimeout(t *testing.T) {
	started := make(chan struct{})
	mux := dialFakeHost(t, func(conn *websocket.Conn) {
		var outbound transport.PromptFrame
		require.NoError(t, conn.ReadJSON(&outbound))
		close(started)

		require.NoError(t, conn.WriteJSON(transport.InboundFrame{
			Type: transport.TypeStreamChunk, SessionID: "sess-2", Content: "partial",
		}))
		time.Sleep(80 * time.Millisecond)
		require.NoError(t, conn.WriteJSON(transport.InboundFrame{
			Type: transport.TypeStreamChunk, SessionID: "sess-2", Content: " more",
		}))
		// then silence past the sliding window
	})

	sess := NewForTesting("sess-2", "", mux, nil).WithStreamTimeoutForTesting(150 * time.Millisecond)

	m := &Manager{}
	result, err := m.SendPromptStreaming(context.Background(), sess, "hello", func(string) {})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrResponseTimeout))
	assert.Equal(t, "", result)
	assert.Equal(t, StateActive, sess.State())
	<-started
}
