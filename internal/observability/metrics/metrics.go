package metrics

import "github.com/prometheus/client_golang/prometheus"

// VisitMetrics exposes counters/histograms for the visit lifecycle flows.
type VisitMetrics struct {
	checkInsTotal    *prometheus.CounterVec
	allocationsTotal *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
}

func NewVisitMetrics(reg prometheus.Registerer) *VisitMetrics {
	m := &VisitMetrics{
		checkInsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicflow",
			Subsystem: "visits",
			Name:      "check_ins_total",
			Help:      "Total patient check-in attempts",
		}, []string{"status"}),
		allocationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicflow",
			Subsystem: "sequence",
			Name:      "allocations_total",
			Help:      "Total sequence numbers issued, by sequence name",
		}, []string{"name"}),
		operationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinicflow",
			Subsystem: "visits",
			Name:      "operation_latency_seconds",
			Help:      "Latency of transactional visit operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.checkInsTotal, m.allocationsTotal, m.operationLatency)
	return m
}

func (m *VisitMetrics) ObserveCheckIn(status string) {
	if m == nil {
		return
	}
	m.checkInsTotal.WithLabelValues(status).Inc()
}

func (m *VisitMetrics) ObserveAllocation(name string) {
	if m == nil {
		return
	}
	m.allocationsTotal.WithLabelValues(name).Inc()
}

func (m *VisitMetrics) ObserveOperation(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.operationLatency.WithLabelValues(operation).Observe(seconds)
}
