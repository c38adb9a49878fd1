// Package metrics exposes the gateway's Prometheus series and the
// Collector that implements every narrow metrics interface the other
// packages define (session.Metrics, backend.MetricsSink,
// translate.CacheMetrics), the same way the teacher's metrics package was
// the single place every query-cache series lived.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	queryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgwire_iris_query_total",
			Help: "Total number of queries processed, by kind",
		},
		[]string{"kind"},
	)

	queryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgwire_iris_query_latency_seconds",
			Help:    "Query latency in seconds, by kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgwire_iris_sessions_active",
			Help: "Number of currently open client sessions",
		},
	)

	translateCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pgwire_iris_translate_cache_hits_total",
			Help: "Total translation cache hits",
		},
	)

	translateCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pgwire_iris_translate_cache_misses_total",
			Help: "Total translation cache misses",
		},
	)

	batchDegradations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pgwire_iris_batch_degradations_total",
			Help: "Number of ExecuteMany calls that fell back to per-row literal substitution",
		},
	)

	copyRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgwire_iris_copy_rows_total",
			Help: "Total rows moved through COPY, by direction",
		},
		[]string{"direction"},
	)

	copyFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgwire_iris_copy_failures_total",
			Help: "Total COPY operations that ended in an error, by direction",
		},
		[]string{"direction"},
	)

	authAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgwire_iris_auth_attempts_total",
			Help: "Total authentication attempts, by outcome",
		},
		[]string{"outcome"},
	)

	cancelRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgwire_iris_cancel_requests_total",
			Help: "Total CancelRequest messages received, by outcome",
		},
		[]string{"outcome"},
	)

	poolConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgwire_iris_pool_connections_active",
			Help: "Backend connections currently checked out of the pool",
		},
	)

	once sync.Once
)

// Init registers every series with the default Prometheus registry.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			queryTotal,
			queryLatency,
			sessionsActive,
			translateCacheHits,
			translateCacheMisses,
			batchDegradations,
			copyRows,
			copyFailures,
			authAttempts,
			cancelRequests,
			poolConnectionsActive,
		)
	})
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Collector implements session.Metrics, backend.MetricsSink and
// translate.CacheMetrics over the package's series, so one value can be
// threaded through every constructor that needs a metrics sink.
type Collector struct{}

func (Collector) IncQueryTotal(kind string) {
	queryTotal.WithLabelValues(kind).Inc()
}

func (Collector) ObserveQueryLatencySeconds(kind string, seconds float64) {
	queryLatency.WithLabelValues(kind).Observe(seconds)
}

func (Collector) IncSessionsActive(delta int) {
	sessionsActive.Add(float64(delta))
}

func (Collector) IncTranslateCacheHit() {
	translateCacheHits.Inc()
}

func (Collector) IncTranslateCacheMiss() {
	translateCacheMisses.Inc()
}

func (Collector) IncBatchDegradation() {
	batchDegradations.Inc()
}

func (Collector) IncCopyRows(direction string, n int64) {
	copyRows.WithLabelValues(direction).Add(float64(n))
}

func (Collector) IncCopyFailure(direction string) {
	copyFailures.WithLabelValues(direction).Inc()
}

func (Collector) IncAuthAttempt(outcome string) {
	authAttempts.WithLabelValues(outcome).Inc()
}

func (Collector) IncCancelRequest(outcome string) {
	cancelRequests.WithLabelValues(outcome).Inc()
}

func (Collector) SetPoolConnectionsActive(n int) {
	poolConnectionsActive.Set(float64(n))
}
