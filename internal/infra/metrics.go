package infra

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"donationledger/internal/domain"
)

var BackendOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledger",
	Name:      "backend_operations_total",
	Help:      "Backend operations by backend, operation and result kind.",
}, []string{"backend", "op", "result"})

var BackendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "ledger",
	Name:      "backend_operation_seconds",
	Help:      "Latency of backend operations.",
	Buckets:   prometheus.DefBuckets,
}, []string{"backend", "op"})

var FallbackServed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledger",
	Name:      "fallback_served_total",
	Help:      "Operations answered by the in-memory fallback cache after a backend failure.",
}, []string{"op"})

// ObserveOp records the outcome and latency of one backend call.
func ObserveOp(backend domain.BackendKind, op string, started time.Time, err error) {
	BackendLatency.WithLabelValues(string(backend), op).Observe(time.Since(started).Seconds())
	BackendOperations.WithLabelValues(string(backend), op, ResultKind(err)).Inc()
}

// ResultKind classifies err into a low-cardinality label.
func ResultKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrBackendUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrUnsupported):
		return "unsupported"
	}
	return "error"
}
