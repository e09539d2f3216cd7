// Package metrics exposes Prometheus collectors for the archiver.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	archiverPagesTotal         *prometheus.CounterVec
	archiverBytesTotal         *prometheus.CounterVec
	archiverDedupHitsTotal     *prometheus.CounterVec
	archiverActiveWorkers      prometheus.Gauge
	archiverRateLimitDelaySecs *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		archiverPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archiver_pages_total",
				Help: "Total frontier entries processed, labeled by site and outcome.",
			},
			[]string{"site", "status"},
		)

		archiverBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archiver_bytes_total",
				Help: "Total bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		archiverDedupHitsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archiver_dedup_hits_total",
				Help: "Fetched objects whose bytes were already in the content store.",
			},
			[]string{"site"},
		)

		archiverActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "archiver_active_workers",
				Help: "Number of workers currently processing a frontier entry.",
			},
		)

		archiverRateLimitDelaySecs = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "archiver_rate_limit_delay_seconds",
				Help:    "Histogram of politeness wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"site"},
		)
	})
}

// Handler returns an http.Handler exposing the Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveEntry counts one processed frontier entry.
func ObserveEntry(site, status string, bytesFetched int) {
	if archiverPagesTotal == nil {
		return
	}
	archiverPagesTotal.WithLabelValues(site, status).Inc()
	if bytesFetched > 0 {
		archiverBytesTotal.WithLabelValues(site).Add(float64(bytesFetched))
	}
}

// ObserveDedupHit counts a content-store hit (no new write).
func ObserveDedupHit(site string) {
	if archiverDedupHitsTotal == nil {
		return
	}
	archiverDedupHitsTotal.WithLabelValues(site).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	if archiverActiveWorkers != nil {
		archiverActiveWorkers.Inc()
	}
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	if archiverActiveWorkers != nil {
		archiverActiveWorkers.Dec()
	}
}

// ObserveRateLimitDelay records one politeness wait.
func ObserveRateLimitDelay(site string, d time.Duration) {
	if archiverRateLimitDelaySecs != nil {
		archiverRateLimitDelaySecs.WithLabelValues(site).Observe(d.Seconds())
	}
}
