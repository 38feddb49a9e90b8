// Copyright 2025 Certen Protocol
//
// Cohort-level Prometheus collectors. cmd/coordinator registers a Set and
// serves its registry over HTTP; the scanner and reducer do not update
// these collectors.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Set groups the cohort-level counters and gauges. Nothing in this module
// updates them after registration.
type Set struct {
	EventsProcessed   *prometheus.CounterVec
	SlashIntents      *prometheus.CounterVec
	AttemptsBumped    *prometheus.CounterVec
	ProcessorMessages *prometheus.CounterVec
	LastBlockHeight   *prometheus.GaugeVec
}

// NewSet registers a fresh Set of collectors against reg.
func NewSet(reg prometheus.Registerer) *Set {
	s := &Set{
		EventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tss_coordinator",
			Name:      "events_processed_total",
			Help:      "Log events processed by the reducer, by genesis.",
		}, []string{"genesis"}),
		SlashIntents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tss_coordinator",
			Name:      "slash_intents_total",
			Help:      "Slash intents emitted by the reducer, by severity.",
		}, []string{"genesis", "severity"}),
		AttemptsBumped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tss_coordinator",
			Name:      "attempts_bumped_total",
			Help:      "CurrentAttempt bumps, by zone.",
		}, []string{"genesis", "zone"}),
		ProcessorMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tss_coordinator",
			Name:      "processor_messages_total",
			Help:      "Outbound processor messages emitted, by kind.",
		}, []string{"genesis", "kind"}),
		LastBlockHeight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tss_coordinator",
			Name:      "last_block_height",
			Help:      "Height of the last fully processed log block.",
		}, []string{"genesis"}),
	}
	reg.MustRegister(s.EventsProcessed, s.SlashIntents, s.AttemptsBumped, s.ProcessorMessages, s.LastBlockHeight)
	return s
}
