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

package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fabstir/llm-marketplace-sdk/internal/logger"
	"github.com/fabstir/llm-marketplace-sdk/internal/metrics"
	"github.com/fabstir/llm-marketplace-sdk/session"
)

// embedModel is the only embedding model this protocol version speaks
// (§6's /v1/embed request body).
const embedModel = "all-MiniLM-L6-v2"

// defaultThreshold is the fixed score cutoff used for context-injection
// searches, independent of a session's own RAGConfig.Threshold (§4.9: "a
// searchVectors at a default threshold of 0.7").
const defaultThreshold = 0.7

// defaultTopK is used when a session's RAGConfig.TopK is unset.
const defaultTopK = 5

type embedRequest struct {
	Texts   []string `json:"texts"`
	Model   string   `json:"model"`
	ChainID uint64   `json:"chainId"`
}

type embedResultJSON struct {
	Embedding  []float32 `json:"embedding"`
	Text       string    `json:"text"`
	TokenCount int       `json:"tokenCount"`
}

type embedResponse struct {
	Model      string            `json:"model"`
	ChainID    uint64            `json:"chainId"`
	Embeddings []embedResultJSON `json:"embeddings"`
}

// Injector holds the HTTP client used to reach a host's embedding endpoint.
type Injector struct {
	client *http.Client
	log    logger.Logger
}

// NewInjector builds a context Injector. A nil client gets a default
// 15s-timeout http.Client.
func NewInjector(client *http.Client) *Injector {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Injector{client: client, log: logger.GetDefaultLogger()}
}

// Augment implements §4.9 context injection: embed the question via the
// host's /v1/embed endpoint, searchVectors at the default threshold, and
// prepend the retrieved chunks. Any failure along the way degrades
// gracefully to the original, unmodified question.
func (inj *Injector) Augment(ctx context.Context, sess *session.Session, prompt string) string {
	cfg := sess.RAGConfig()
	if cfg == nil || !cfg.Enabled {
		return prompt
	}
	mux := sess.Mux()
	if mux == nil {
		metrics.ContextInjectionFallbacks.Inc()
		return prompt
	}

	embedding, err := inj.embed(ctx, sess.HostEndpoint(), sess.ChainID(), prompt)
	if err != nil {
		inj.log.Warn("rag: embed failed, sending unaugmented prompt", logger.Error(err))
		metrics.ContextInjectionFallbacks.Inc()
		return prompt
	}

	k := cfg.TopK
	if k <= 0 {
		k = defaultTopK
	}

	hits, err := SearchVectors(ctx, mux, sess.ID(), embedding, k, defaultThreshold)
	if err != nil {
		inj.log.Warn("rag: context search failed, sending unaugmented prompt", logger.Error(err))
		metrics.ContextInjectionFallbacks.Inc()
		return prompt
	}
	if len(hits) == 0 {
		return prompt
	}

	chunks := make([]string, 0, len(hits))
	for _, h := range hits {
		text, _ := h.Metadata["text"].(string)
		if text == "" {
			continue
		}
		chunks = append(chunks, text)
	}
	if len(chunks) == 0 {
		return prompt
	}

	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", strings.Join(chunks, "\n\n"), prompt)
}

func (inj *Injector) embed(ctx context.Context, hostEndpoint string, chainID uint64, text string) ([]float32, error) {
	reqBody, err := json.Marshal(embedRequest{Texts: []string{text}, Model: embedModel, ChainID: chainID})
	if err != nil {
		return nil, fmt.Errorf("rag: marshal embed request: %w", err)
	}

	url := strings.TrimSuffix(hostEndpoint, "/") + "/v1/embed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("rag: build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := inj.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rag: embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rag: embed endpoint returned %d", resp.StatusCode)
	}

	var er embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("rag: decode embed response: %w", err)
	}
	if len(er.Embeddings) == 0 {
		return nil, fmt.Errorf("rag: embed response carried no embeddings")
	}
	return er.Embeddings[0].Embedding, nil
}
