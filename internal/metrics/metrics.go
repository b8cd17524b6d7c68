// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "action_feed"

var (
	SummaryRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "summary_requests_total",
		Help:      "Summary reads by resolved Today Card kind.",
	}, []string{"card"})

	SummaryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "summary_duration_seconds",
		Help:      "Time spent assembling a summary.",
		Buckets:   prometheus.DefBuckets,
	})

	RankedActions = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ranked_candidates",
		Help:      "Eligible candidates per ranking run, before truncation.",
		Buckets:   []float64{0, 1, 3, 5, 10, 25, 50, 100},
	})

	PulseGenerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pulse_generations_total",
		Help:      "Daily pulse reads by outcome (stored, generated, fallback).",
	}, []string{"outcome"})

	ProviderState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "provider_state",
		Help:      "Health check state per check: 0 online, 1 degraded, 2 offline.",
	}, []string{"check", "kind"})

	ProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_check_latency_seconds",
		Help:      "Latency of provider and indexer health probes.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 1.2, 2.5, 5, 10},
	}, []string{"check", "kind"})

	NotificationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_decisions_total",
		Help:      "Throttle decisions by category and reason.",
	}, []string{"category", "reason"})

	RecordsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_records_consumed_total",
		Help:      "Provider record events consumed from Kafka by event type and result.",
	}, []string{"event_type", "result"})
)
