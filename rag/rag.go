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

// Package rag implements the §4.9 vector-database augmentation sub-protocol:
// uploadVectors/searchVectors RPCs multiplexed over the session's transport,
// and context injection ahead of a prompt.
package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fabstir/llm-marketplace-sdk/errs"
	"github.com/fabstir/llm-marketplace-sdk/internal/metrics"
	"github.com/fabstir/llm-marketplace-sdk/transport"
)

// EmbeddingDim is the fixed embedding length every vector record and query
// vector must carry (§3).
const EmbeddingDim = 384

const (
	uploadBatchSize = 1000
	uploadTimeout   = 30 * time.Second
	searchTimeout   = 10 * time.Second

	minK = 1
	maxK = 20
)

// Vector is one opaque-id, fixed-length embedding, free-form-metadata record
// (§3). Metadata may carry a "text" field contributing to context
// injection, and an optional "folder_path".
type Vector struct {
	ID        string                 `json:"id"`
	Embedding []float32              `json:"embedding"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// UploadSummary aggregates the best-effort result of uploadVectors across
// all batches (§4.9).
type UploadSummary struct {
	Uploaded int
	Rejected int
	Errors   []string
}

// SearchHit is one scored result of searchVectors.
type SearchHit struct {
	ID       string
	Score    float64
	Metadata map[string]interface{}
}

// UploadVectors implements §4.9 uploadVectors: validates every vector is
// exactly EmbeddingDim float32 values, splits into batches of at most 1000,
// and sends each batch independently — the first batch alone carries the
// caller's replace flag, every later batch is forced to replace=false. Each
// batch is awaited with its own 30s timeout via the transport's pending-
// request table; a failing batch counts as fully rejected without aborting
// the others (best-effort, §4.9).
func UploadVectors(ctx context.Context, mux *transport.Multiplexer, sessionID string, vectors []Vector, replace bool) (*UploadSummary, error) {
	valid := make([]Vector, 0, len(vectors))
	rejectedCount := 0
	for _, v := range vectors {
		if len(v.Embedding) != EmbeddingDim {
			rejectedCount++
			continue
		}
		valid = append(valid, v)
	}

	batches := chunkVectors(valid, uploadBatchSize)

	summary := &UploadSummary{Rejected: rejectedCount}
	var mu sync.Mutex

	var g errgroup.Group
	for i, batch := range batches {
		i, batch := i, batch
		batchReplace := replace && i == 0
		g.Go(func() error {
			uploaded, rejected, batchErr := uploadBatch(ctx, mux, sessionID, batch, batchReplace)
			mu.Lock()
			defer mu.Unlock()
			summary.Uploaded += uploaded
			summary.Rejected += rejected
			if batchErr != nil {
				summary.Errors = append(summary.Errors, batchErr.Error())
			}
			return nil
		})
	}
	_ = g.Wait()

	return summary, nil
}

func chunkVectors(vectors []Vector, size int) [][]Vector {
	if len(vectors) == 0 {
		return nil
	}
	var batches [][]Vector
	for start := 0; start < len(vectors); start += size {
		end := start + size
		if end > len(vectors) {
			end = len(vectors)
		}
		batches = append(batches, vectors[start:end])
	}
	return batches
}

func uploadBatch(ctx context.Context, mux *transport.Multiplexer, sessionID string, batch []Vector, replace bool) (uploaded, rejected int, err error) {
	start := time.Now()
	requestID := uuid.NewString()

	vectorsJSON := make([]transport.VectorJSON, len(batch))
	for i, v := range batch {
		vectorsJSON[i] = transport.VectorJSON{ID: v.ID, Embedding: v.Embedding, Metadata: v.Metadata}
	}

	frame := transport.UploadVectorsFrame{
		Type:      transport.TypeUploadVectors,
		SessionID: sessionID,
		RequestID: requestID,
		Vectors:   vectorsJSON,
		Replace:   replace,
	}

	resp, err := mux.SendAndAwait(ctx, requestID, frame, uploadTimeout)
	metrics.UploadBatchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, errs.ErrResponseTimeout) {
			metrics.UploadBatchTimeouts.Inc()
		}
		metrics.VectorsUploaded.WithLabelValues("rejected").Add(float64(len(batch)))
		return 0, len(batch), fmt.Errorf("rag: upload batch: %w", err)
	}

	if resp.Type == transport.TypeError {
		metrics.VectorsUploaded.WithLabelValues("rejected").Add(float64(len(batch)))
		return 0, len(batch), errs.WithCause(errs.ErrRequestError, fmt.Errorf("%s", resp.Message))
	}

	metrics.VectorsUploaded.WithLabelValues("uploaded").Add(float64(resp.Uploaded))
	metrics.VectorsUploaded.WithLabelValues("rejected").Add(float64(resp.Rejected))
	return resp.Uploaded, resp.Rejected, nil
}

// SearchVectors implements §4.9 searchVectors: validates the query vector
// length, k in [1,20], threshold in [0,1], then awaits a single
// searchVectorsResponse with a 10s timeout. Results arrive sorted by
// descending score (host-guaranteed) but are re-sorted defensively.
func SearchVectors(ctx context.Context, mux *transport.Multiplexer, sessionID string, queryVector []float32, k int, threshold float64) ([]SearchHit, error) {
	if len(queryVector) != EmbeddingDim {
		metrics.SearchesPerformed.WithLabelValues("error").Inc()
		return nil, errs.WithCause(errs.ErrInvalidParameter, fmt.Errorf("rag: query_vector must have %d dimensions", EmbeddingDim))
	}
	if k < minK || k > maxK {
		metrics.SearchesPerformed.WithLabelValues("error").Inc()
		return nil, errs.WithCause(errs.ErrInvalidParameter, fmt.Errorf("rag: k must be in [%d,%d]", minK, maxK))
	}
	if threshold < 0 || threshold > 1 {
		metrics.SearchesPerformed.WithLabelValues("error").Inc()
		return nil, errs.WithCause(errs.ErrInvalidParameter, fmt.Errorf("rag: threshold must be in [0,1]"))
	}

	requestID := uuid.NewString()
	frame := transport.SearchVectorsFrame{
		Type:        transport.TypeSearchVectors,
		SessionID:   sessionID,
		RequestID:   requestID,
		QueryVector: queryVector,
		K:           k,
		Threshold:   threshold,
	}

	resp, err := mux.SendAndAwait(ctx, requestID, frame, searchTimeout)
	if err != nil {
		if errors.Is(err, errs.ErrResponseTimeout) {
			metrics.SearchesPerformed.WithLabelValues("timeout").Inc()
		} else {
			metrics.SearchesPerformed.WithLabelValues("error").Inc()
		}
		return nil, errs.WithCause(errs.ErrSearchError, err)
	}
	if resp.Type == transport.TypeError {
		metrics.SearchesPerformed.WithLabelValues("error").Inc()
		return nil, errs.WithCause(errs.ErrSearchError, fmt.Errorf("%s", resp.Message))
	}

	hits := make([]SearchHit, len(resp.Results))
	for i, r := range resp.Results {
		hits[i] = SearchHit{ID: r.ID, Score: r.Score, Metadata: r.Metadata}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	metrics.SearchesPerformed.WithLabelValues("success").Inc()
	return hits, nil
}
