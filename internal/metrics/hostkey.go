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
	// HostKeyResolutions tracks host public-key resolutions by source.
	HostKeyResolutions = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hostkey",
			Name:      "resolutions_total",
			Help:      "Total number of host public-key resolutions",
		},
		[]string{"source"}, // cache, directory, challenge
	)

	// HostKeyHandshakesCompleted tracks signature-challenge handshake outcomes.
	HostKeyHandshakesCompleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hostkey",
			Name:      "handshakes_completed_total",
			Help:      "Total number of signed-challenge handshakes completed",
		},
		[]string{"status"}, // success, address_mismatch, failure
	)

	// HostKeyHandshakeDuration tracks challenge/response round-trip duration.
	HostKeyHandshakeDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "hostkey",
			Name:      "handshake_duration_seconds",
			Help:      "Signed-challenge handshake round-trip duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to 2s
		},
		[]string{"stage"}, // challenge, verify
	)
)
