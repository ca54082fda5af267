// Package metrics provides Prometheus metrics for the mirroring daemon.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sidkik/foldersync/pkg/sync"
)

var (
	cyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foldersync_cycles_total",
			Help: "Total number of completed sync cycles",
		},
	)

	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "foldersync_cycle_duration_seconds",
			Help:    "Sync cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	entriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foldersync_entries_total",
			Help: "Total number of entries changed in the destination",
		},
		[]string{"action"},
	)

	entryErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foldersync_entry_errors_total",
			Help: "Total number of entries that failed to sync",
		},
	)

	lastCycleTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "foldersync_last_cycle_timestamp_seconds",
			Help: "Unix time at which the last sync cycle finished",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordCycle records the outcome of a sync cycle that finished at `end`.
func RecordCycle(report sync.Report, duration time.Duration, end time.Time) {
	cyclesTotal.Inc()
	cycleDuration.Observe(duration.Seconds())
	entriesTotal.WithLabelValues("create").Add(float64(report.Created))
	entriesTotal.WithLabelValues("update").Add(float64(report.Updated))
	entriesTotal.WithLabelValues("delete").Add(float64(report.Deleted))
	entryErrorsTotal.Add(float64(report.Failed))
	lastCycleTimestamp.Set(float64(end.Unix()))
}
