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
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRegistration(t *testing.T) {
	if HostKeyResolutions == nil {
		t.Error("HostKeyResolutions metric is nil")
	}
	if HostKeyHandshakesCompleted == nil {
		t.Error("HostKeyHandshakesCompleted metric is nil")
	}
	if HostKeyHandshakeDuration == nil {
		t.Error("HostKeyHandshakeDuration metric is nil")
	}

	if SessionsCreated == nil {
		t.Error("SessionsCreated metric is nil")
	}
	if SessionsActive == nil {
		t.Error("SessionsActive metric is nil")
	}
	if SessionsExpired == nil {
		t.Error("SessionsExpired metric is nil")
	}
	if SessionDuration == nil {
		t.Error("SessionDuration metric is nil")
	}
	if SessionMessageSize == nil {
		t.Error("SessionMessageSize metric is nil")
	}

	if CryptoOperations == nil {
		t.Error("CryptoOperations metric is nil")
	}

	if VectorsUploaded == nil {
		t.Error("VectorsUploaded metric is nil")
	}
	if SearchesPerformed == nil {
		t.Error("SearchesPerformed metric is nil")
	}
}

func TestMetricsIncrement(t *testing.T) {
	HostKeyResolutions.WithLabelValues("cache").Inc()
	HostKeyHandshakesCompleted.WithLabelValues("success").Inc()
	HostKeyHandshakeDuration.WithLabelValues("challenge").Observe(0.5)

	SessionsCreated.WithLabelValues("success").Inc()
	SessionsActive.Inc()
	SessionsExpired.Inc()
	SessionDuration.WithLabelValues("send_prompt").Observe(1.5)
	SessionMessageSize.WithLabelValues("outbound").Observe(1024)

	CryptoOperations.WithLabelValues("encrypt", "xchacha20-poly1305").Inc()
	CryptoOperations.WithLabelValues("decrypt", "xchacha20-poly1305").Inc()

	VectorsUploaded.WithLabelValues("uploaded").Add(1000)
	SearchesPerformed.WithLabelValues("success").Inc()

	if count := testutil.CollectAndCount(HostKeyResolutions); count == 0 {
		t.Error("HostKeyResolutions has no metrics collected")
	}
	if count := testutil.CollectAndCount(SessionsCreated); count == 0 {
		t.Error("SessionsCreated has no metrics collected")
	}
	if count := testutil.CollectAndCount(CryptoOperations); count == 0 {
		t.Error("CryptoOperations has no metrics collected")
	}
}

func TestCollectorSnapshot(t *testing.T) {
	c := NewCollector()
	c.RecordEnvelopeEncrypt(100)
	c.RecordEnvelopeDecrypt(50, false)
	c.RecordEnvelopeDecrypt(50, true)
	c.RecordHostKeyResolution(true, 0)
	c.RecordHostKeyResolution(false, 200)
	c.RecordRAGBatch(false)
	c.RecordRAGBatch(true)

	snap := c.Snapshot()
	if snap.EnvelopeEncrypts != 1 {
		t.Errorf("EnvelopeEncrypts = %d, want 1", snap.EnvelopeEncrypts)
	}
	if snap.EnvelopeDecrypts != 2 {
		t.Errorf("EnvelopeDecrypts = %d, want 2", snap.EnvelopeDecrypts)
	}
	if snap.EnvelopeTampered != 1 {
		t.Errorf("EnvelopeTampered = %d, want 1", snap.EnvelopeTampered)
	}
	if snap.HostKeyCacheHits != 1 || snap.HostKeyCacheMisses != 1 {
		t.Errorf("cache hits/misses = %d/%d, want 1/1", snap.HostKeyCacheHits, snap.HostKeyCacheMisses)
	}
	if rate := snap.HostKeyCacheHitRate(); rate != 50 {
		t.Errorf("HostKeyCacheHitRate() = %v, want 50", rate)
	}
	if snap.RAGBatchesUploaded != 2 || snap.RAGBatchesTimedOut != 1 {
		t.Errorf("RAG batches = %d uploaded, %d timed out; want 2/1", snap.RAGBatchesUploaded, snap.RAGBatchesTimedOut)
	}
}
