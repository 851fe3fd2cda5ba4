// Package metrics exposes Prometheus collectors for the HTTP surface, the
// ledger and the database pool.
package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "questboard"

var (
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	RequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	LedgerEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "entries_total",
			Help:      "Committed ledger entries",
		},
		[]string{"tier", "direction"},
	)
	CoinsMoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "coins_total",
			Help:      "Coins moved by committed ledger entries",
		},
		[]string{"tier", "direction"},
	)

	TxConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "tx_conflicts_total",
			Help:      "Transactions retried after a lock conflict",
		},
	)
	DBConnPoolStats = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "connection_pool",
			Help:      "Database connection pool statistics",
		},
		[]string{"stat"},
	)
)

// RecordEntry counts one committed ledger entry.
func RecordEntry(tier, direction string, amount int64) {
	LedgerEntries.WithLabelValues(tier, direction).Inc()
	CoinsMoved.WithLabelValues(tier, direction).Add(float64(amount))
}

// RecordDBPoolStats copies pool statistics into the pool gauge.
func RecordDBPoolStats(s sql.DBStats) {
	DBConnPoolStats.WithLabelValues("open").Set(float64(s.OpenConnections))
	DBConnPoolStats.WithLabelValues("in_use").Set(float64(s.InUse))
	DBConnPoolStats.WithLabelValues("idle").Set(float64(s.Idle))
	DBConnPoolStats.WithLabelValues("wait_count").Set(float64(s.WaitCount))
	DBConnPoolStats.WithLabelValues("wait_duration_ms").Set(float64(s.WaitDuration.Milliseconds()))
}

// Middleware records count, duration and in-flight requests. Requests are
// labelled by chi route pattern so path ids don't blow up cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RequestsInFlight.Inc()
		defer RequestsInFlight.Dec()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}

		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		RequestCounter.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
