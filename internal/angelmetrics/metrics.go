/*
 * Copyright (c) 2026, AngelWhisper Authors
 * All rights reserved.
 *
 * Redistribution and use in source and binary forms, with or without
 * modification, are permitted provided that the following conditions are met:
 *
 *  * Redistributions of source code must retain the above copyright notice,
 *    this list of conditions and the following disclaimer.
 *
 *  * Redistributions in binary form must reproduce the above copyright notice,
 *    this list of conditions and the following disclaimer in the documentation
 *    and/or other materials provided with the distribution.
 *
 * THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
 * AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
 * IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
 * ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
 * LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
 * CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
 * SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
 * INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
 * CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
 * ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
 * POSSIBILITY OF SUCH DAMAGE.
 */

// Package angelmetrics holds the Prometheus collectors exported by an
// AngelWhisper server: per-frame-kind counters, handshake failure counters
// broken down by error kind, and a gauge tracking live registry entries.
package angelmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector a Dispatcher-fronted server registers.
// Construct one with New and pass it a *prometheus.Registry (or register
// it against prometheus.DefaultRegisterer) before serving /metrics.
type Metrics struct {
	FramesTotal     *prometheus.CounterVec
	HandshakeErrors *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	MessageLatency  prometheus.Histogram
}

// New constructs a Metrics bundle and registers every collector against
// reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FramesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "angelwhisper",
			Name:      "frames_total",
			Help:      "Frames processed by the dispatcher, by kind.",
		}, []string{"kind"}),
		HandshakeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "angelwhisper",
			Name:      "handshake_errors_total",
			Help:      "Handshake frames rejected, by error kind.",
		}, []string{"error_kind"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "angelwhisper",
			Name:      "active_sessions",
			Help:      "Sessions currently registered in the store.",
		}),
		MessageLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "angelwhisper",
			Name:      "message_handle_seconds",
			Help:      "Time spent in the application Handler per Message frame.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
