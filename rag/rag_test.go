// SPDX-License-Identifier: LGPL-3.0-or-later

package rag

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabstir/llm-marketplace-sdk/transport"
)

// newFakeHost spins up an httptest WebSocket server scripted by the test and
// returns a client Multiplexer dialed against it, mirroring
// transport.newPair for the same reason (§8 test tooling: a fake transport
// server, no real network I/O against an inference host).
func newFakeHost(t *testing.T, handler func(conn *websocket.Conn)) *transport.Multiplexer {
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

	m := transport.New(conn)
	go m.Run(context.Background())
	t.Cleanup(func() { m.Close() })
	return m
}

func validVector(id string) Vector {
	emb := make([]float32, EmbeddingDim)
	for i := range emb {
		emb[i] = float32(i) / EmbeddingDim
	}
	return Vector{ID: id, Embedding: emb, Metadata: map[string]interface{}{"text": "chunk " + id}}
}

func TestUploadVectors_SingleBatchSuccess(t *testing.T) {
	m := newFakeHost(t, func(conn *websocket.Conn) {
		var req transport.UploadVectorsFrame
		require.NoError(t, conn.ReadJSON(&req))
		assert.True(t, req.Replace)
		assert.Len(t, req.Vectors, 3)
		resp := transport.InboundFrame{
			Type:      transport.TypeUploadVectorsResponse,
			RequestID: req.RequestID,
			Status:    "success",
			Uploaded:  3,
		}
		require.NoError(t, conn.WriteJSON(resp))
	})

	vectors := []Vector{validVector("1"), validVector("2"), validVector("3")}
	summary, err := UploadVectors(context.Background(), m, "sess-1", vectors, true)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Uploaded)
	assert.Equal(t, 0, summary.Rejected)
	assert.Empty(t, summary.Errors)
}

func TestUploadVectors_RejectsWrongDimension(t *testing.T) {
	m := newFakeHost(t, func(conn *websocket.Conn) {
		var req transport.UploadVectorsFrame
		require.NoError(t, conn.ReadJSON(&req))
		assert.Len(t, req.Vectors, 1) // only the valid one is sent
		resp := transport.InboundFrame{Type: transport.TypeUploadVectorsResponse, RequestID: req.RequestID, Uploaded: 1}
		require.NoError(t, conn.WriteJSON(resp))
	})

	vectors := []Vector{validVector("ok"), {ID: "bad", Embedding: []float32{1, 2, 3}}}
	summary, err := UploadVectors(context.Background(), m, "sess-1", vectors, false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Uploaded)
	assert.Equal(t, 1, summary.Rejected)
}

func TestUploadVectors_BatchingAndPartialFailure(t *testing.T) {
	// 2500 vectors -> batches of 1000/1000/500; only batch 1 carries replace;
	// batch 2 never answered (simulated timeout via a short deadline in the
	// caller is impractical at 30s, so this test instead answers batch 2 with
	// an error and asserts the other batches are still counted). Batches are
	// sent concurrently, so batch 2 is recognized by its shape (replace=false,
	// 1000 vectors) rather than by arrival order.
	var seenReplace []bool
	m := newFakeHost(t, func(conn *websocket.Conn) {
		for i := 0; i < 3; i++ {
			var req transport.UploadVectorsFrame
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			seenReplace = append(seenReplace, req.Replace)
			status := "success"
			uploaded := len(req.Vectors)
			if !req.Replace && len(req.Vectors) == 1000 {
				status = "error"
				uploaded = 0
			}
			resp := transport.InboundFrame{
				Type: transport.TypeUploadVectorsResponse, RequestID: req.RequestID,
				Status: status, Uploaded: uploaded, Rejected: len(req.Vectors) - uploaded,
			}
			require.NoError(t, conn.WriteJSON(resp))
		}
	})

	vectors := make([]Vector, 2500)
	for i := range vectors {
		vectors[i] = validVector(string(rune(i)))
	}
	summary, err := UploadVectors(context.Background(), m, "sess-1", vectors, true)
	require.NoError(t, err)
	assert.Equal(t, 1500, summary.Uploaded) // batches 1 and 3 (1000 + 500) succeed
}

func TestSearchVectors_ValidatesParameters(t *testing.T) {
	m := newFakeHost(t, func(conn *websocket.Conn) {})

	_, err := SearchVectors(context.Background(), m, "sess-1", make([]float32, 10), 5, 0.7)
	assert.Error(t, err)

	_, err = SearchVectors(context.Background(), m, "sess-1", make([]float32, EmbeddingDim), 0, 0.7)
	assert.Error(t, err)

	_, err = SearchVectors(context.Background(), m, "sess-1", make([]float32, EmbeddingDim), 5, 1.5)
	assert.Error(t, err)
}

func TestSearchVectors_SortsByDescendingScore(t *testing.T) {
	m := newFakeHost(t, func(conn *websocket.Conn) {
		var req transport.SearchVectorsFrame
		require.NoError(t, conn.ReadJSON(&req))
		resp := transport.InboundFrame{
			Type:      transport.TypeSearchVectorsResponse,
			RequestID: req.RequestID,
			Results: []transport.SearchResult{
				{ID: "low", Score: 0.5},
				{ID: "high", Score: 0.9},
			},
		}
		require.NoError(t, conn.WriteJSON(resp))
	})

	hits, err := SearchVectors(context.Background(), m, "sess-1", make([]float32, EmbeddingDim), 5, 0.7)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "high", hits[0].ID)
	assert.Equal(t, "low", hits[1].ID)
}

func TestSearchVectors_Timeout(t *testing.T) {
	m := newFakeHost(t, func(conn *websocket.Conn) {
		var req transport.SearchVectorsFrame
		_ = conn.ReadJSON(&req) // never answered
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := SearchVectors(ctx, m, "sess-1", make([]float32, EmbeddingDim), 5, 0.7)
	assert.Error(t, err)
}
