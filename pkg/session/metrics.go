// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "anemostat"

// Metrics exports session activity as Prometheus collectors.
type Metrics struct {
	Messages       *prometheus.CounterVec
	DecodeFailures *prometheus.CounterVec
	Commands       *prometheus.CounterVec
	LinkState      *prometheus.GaugeVec
	Reconnects     prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_total",
			Help:      "Inbound telemetry messages by topic.",
		}, []string{"topic"}),
		DecodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "decode_failures_total",
			Help:      "Inbound messages dropped because they could not be decoded, by topic.",
		}, []string{"topic"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "commands_total",
			Help:      "Operator commands by command and result.",
		}, []string{"command", "result"}),
		LinkState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "link_state",
			Help:      "1 for the current broker link state, 0 otherwise.",
		}, []string{"state"}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reconnect_attempts_total",
			Help:      "Connection attempts made after a lost or failed connection.",
		}),
	}

	m.setLinkState(Disconnected)

	if reg != nil {
		reg.MustRegister(m.Messages, m.DecodeFailures, m.Commands, m.LinkState, m.Reconnects)
	}
	return m
}

func (m *Metrics) setLinkState(current LinkState) {
	for _, s := range LinkStates {
		v := 0.0
		if s == current {
			v = 1
		}
		m.LinkState.WithLabelValues(s.String()).Set(v)
	}
}
