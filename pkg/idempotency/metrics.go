package idempotency

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds idempotency Prometheus collectors
type Metrics struct {
	Hits                *prometheus.CounterVec
	Misses              *prometheus.CounterVec
	ParameterMismatches *prometheus.CounterVec
	ConcurrentRequests  *prometheus.CounterVec
	StorageErrors       *prometheus.CounterVec
	LockDuration        *prometheus.HistogramVec
}

// NewMetrics registers the collectors on registry, the default registerer when nil
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)
	labels := []string{"service", "endpoint", "method"}

	return &Metrics{
		Hits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wms", Subsystem: "idempotency", Name: "hits_total",
			Help: "Requests answered from a stored response",
		}, labels),
		Misses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wms", Subsystem: "idempotency", Name: "misses_total",
			Help: "Requests processed for the first time",
		}, labels),
		ParameterMismatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wms", Subsystem: "idempotency", Name: "parameter_mismatches_total",
			Help: "Keys reused with a different request",
		}, labels),
		ConcurrentRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wms", Subsystem: "idempotency", Name: "concurrent_requests_total",
			Help: "Requests rejected because the key was in flight",
		}, labels),
		StorageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wms", Subsystem: "idempotency", Name: "storage_errors_total",
			Help: "Idempotency storage failures",
		}, []string{"service", "operation"}),
		LockDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wms", Subsystem: "idempotency", Name: "lock_duration_seconds",
			Help:    "Time to acquire an idempotency lock",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, labels),
	}
}

func (m *Metrics) hit(service, endpoint, method string) {
	if m != nil {
		m.Hits.WithLabelValues(service, endpoint, method).Inc()
	}
}

func (m *Metrics) miss(service, endpoint, method string) {
	if m != nil {
		m.Misses.WithLabelValues(service, endpoint, method).Inc()
	}
}

func (m *Metrics) mismatch(service, endpoint, method string) {
	if m != nil {
		m.ParameterMismatches.WithLabelValues(service, endpoint, method).Inc()
	}
}

func (m *Metrics) concurrent(service, endpoint, method string) {
	if m != nil {
		m.ConcurrentRequests.WithLabelValues(service, endpoint, method).Inc()
	}
}

func (m *Metrics) storageError(service, operation string) {
	if m != nil {
		m.StorageErrors.WithLabelValues(service, operation).Inc()
	}
}

func (m *Metrics) lockDuration(service, endpoint, method string, seconds float64) {
	if m != nil {
		m.LockDuration.WithLabelValues(service, endpoint, method).Observe(seconds)
	}
}
