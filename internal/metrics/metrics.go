package metrics

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cartOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_operations_total",
			Help: "Total number of cart operations, by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cart_api_request_duration_seconds",
			Help:    "Duration of cart API calls in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	syncAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_sync_attempts_total",
			Help: "Guest cart reconciliation attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	signalsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_signals_emitted_total",
			Help: "Cart event bus emissions, by signal.",
		},
		[]string{"signal"},
	)
)

func init() {
	if err := prometheus.Register(collectors.NewGoCollector()); err != nil {
		slog.Debug("GoCollector registration skipped (likely already registered)",
			slog.String("error", err.Error()))
	}
}

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

func ObserveCartOp(op, outcome string) {
	cartOpsTotal.WithLabelValues(op, outcome).Inc()
}

func ObserveAPIDuration(op string, d time.Duration) {
	apiRequestDuration.WithLabelValues(op).Observe(d.Seconds())
}

func ObserveSyncAttempt(outcome string) {
	syncAttemptsTotal.WithLabelValues(outcome).Inc()
}

func ObserveSignal(signal string) {
	signalsEmittedTotal.WithLabelValues(signal).Inc()
}
