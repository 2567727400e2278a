package recorder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trackday_poll_ticks_total",
		Help: "Number of sampling cycles attempted.",
	})

	metricSourceFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trackday_source_failures_total",
		Help: "Number of ticks on which the telemetry source was unavailable.",
	})

	metricMalformedReads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trackday_malformed_snapshots_total",
		Help: "Number of discarded reads that did not match the telemetry schema.",
	})

	metricEventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackday_events_emitted_total",
		Help: "Number of lifecycle events emitted by the tracker.",
	}, []string{"kind"})

	metricEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trackday_events_dropped_total",
		Help: "Number of live update events evicted from a full queue.",
	})

	metricPersistenceRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trackday_persistence_retries_total",
		Help: "Number of retried session upserts.",
	})

	metricPersistenceFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trackday_persistence_failures_total",
		Help: "Number of failed session upserts.",
	})
)
