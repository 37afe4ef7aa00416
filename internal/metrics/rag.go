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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VectorsUploaded tracks vectors accepted/rejected across upload batches.
	VectorsUploaded = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "vectors_uploaded_total",
			Help:      "Total number of vectors processed by uploadVectors batches",
		},
		[]string{"outcome"}, // uploaded, rejected
	)

	// UploadBatchDuration tracks per-batch upload round-trip duration.
	UploadBatchDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "upload_batch_duration_seconds",
			Help:      "uploadVectors batch round-trip duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// UploadBatchTimeouts counts batches that failed to resolve within 30s.
	UploadBatchTimeouts = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "upload_batch_timeouts_total",
			Help:      "Total number of uploadVectors batches that timed out",
		},
	)

	// SearchesPerformed tracks searchVectors calls by outcome.
	SearchesPerformed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "searches_total",
			Help:      "Total number of searchVectors calls",
		},
		[]string{"status"}, // success, timeout, error
	)

	// ContextInjectionFallbacks counts prompts sent unaugmented after a
	// failed embed/search pair (graceful degradation per the RAG contract).
	ContextInjectionFallbacks = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "context_injection_fallbacks_total",
			Help:      "Total number of prompts sent without RAG context due to embed/search failure",
		},
	)
)
