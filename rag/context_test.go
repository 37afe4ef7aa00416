// SPDX-License-Identifier: LGPL-3.0-or-later

package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabstir/llm-marketplace-sdk/session"
	"github.com/fabstir/llm-marketplace-sdk/transport"
)

func TestAugment_GracefullyDegradesWithoutRAGConfig(t *testing.T) {
	inj := NewInjector(nil)
	sess := &session.Session{}
	out := inj.Augment(context.Background(), sess, "what is the capital of France?")
	assert.Equal(t, "what is the capital of France?", out)
}

func TestAugment_PrependsContextOnSuccess(t *testing.T) {
	embedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embed", r.URL.Path)
		emb := make([]float32, EmbeddingDim)
		_ = json.NewEncoder(w).Encode(embedResponse{
			Model: embedModel,
			Embeddings: []embedResultJSON{
				{Embedding: emb, Text: "what is the capital of France?"},
			},
		})
	}))
	defer embedSrv.Close()

	upgrader := websocket.Upgrader{}
	wsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		go func() {
			var req transport.SearchVectorsFrame
			require.NoError(t, conn.ReadJSON(&req))
			resp := transport.InboundFrame{
				Type:      transport.TypeSearchVectorsResponse,
				RequestID: req.RequestID,
				Results: []transport.SearchResult{
					{ID: "doc-1", Score: 0.88, Metadata: map[string]interface{}{"text": "Paris is the capital of France."}},
				},
			}
			require.NoError(t, conn.WriteJSON(resp))
		}()
	}))
	defer wsSrv.Close()

	wsURL := "ws" + strings.TrimPrefix(wsSrv.URL, "http")
	conn, err := transport.Dial(context.Background(), wsURL, transport.DialOptions{})
	require.NoError(t, err)
	mux := transport.New(conn)
	go mux.Run(context.Background())
	defer mux.Close()

	sess := session.NewForTesting("sess-1", embedSrv.URL, mux, &session.RAGConfig{Enabled: true, TopK: 3})

	inj := NewInjector(nil)
	out := inj.Augment(context.Background(), sess, "what is the capital of France?")
	assert.Contains(t, out, "Context:\nParis is the capital of France.")
	assert.Contains(t, out, "Question: what is the capital of France?")
}
