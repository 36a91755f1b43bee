// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxydemo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type serverMetrics struct {
	sessions       prometheus.Counter
	active         prometheus.Gauge
	rejected       *prometheus.CounterVec
	tunnels        prometheus.Counter
	upstreamErrors prometheus.Counter
	rx             prometheus.Counter
	tx             prometheus.Counter
}

func newServerMetrics(r prometheus.Registerer, namespace string) *serverMetrics {
	if r == nil {
		r = prometheus.NewRegistry() // This registry will be discarded.
	}
	f := promauto.With(r)

	return &serverMetrics{
		sessions: f.NewCounter(prometheus.CounterOpts{
			Name:      "proxy_sessions_total",
			Namespace: namespace,
			Help:      "Number of client sessions",
		}),
		active: f.NewGauge(prometheus.GaugeOpts{
			Name:      "proxy_sessions_active",
			Namespace: namespace,
			Help:      "Number of client sessions in progress",
		}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "proxy_rejected_total",
			Namespace: namespace,
			Help:      "Number of rejected requests by reason",
		}, []string{"reason"}),
		tunnels: f.NewCounter(prometheus.CounterOpts{
			Name:      "proxy_connect_total",
			Namespace: namespace,
			Help:      "Number of accepted CONNECT requests",
		}),
		upstreamErrors: f.NewCounter(prometheus.CounterOpts{
			Name:      "proxy_upstream_errors_total",
			Namespace: namespace,
			Help:      "Number of failed upstream connections",
		}),
		rx: f.NewCounter(prometheus.CounterOpts{
			Name:      "proxy_client_rx_bytes_total",
			Namespace: namespace,
			Help:      "Number of bytes relayed from clients",
		}),
		tx: f.NewCounter(prometheus.CounterOpts{
			Name:      "proxy_client_tx_bytes_total",
			Namespace: namespace,
			Help:      "Number of bytes relayed to clients",
		}),
	}
}

func (m *serverMetrics) open() {
	m.sessions.Inc()
	m.active.Inc()
}

func (m *serverMetrics) close() {
	m.active.Dec()
}

func (m *serverMetrics) reject(reason string) {
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *serverMetrics) tunnel() {
	m.tunnels.Inc()
}

func (m *serverMetrics) upstreamError() {
	m.upstreamErrors.Inc()
}

func (m *serverMetrics) traffic(rx, tx uint64) {
	m.rx.Add(float64(rx))
	m.tx.Add(float64(tx))
}
