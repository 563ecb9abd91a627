// Package metrics exposes Prometheus collectors for check-in and queue flows.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// ClinicMetrics exposes counters/histograms for check-in flows.
type ClinicMetrics struct {
	checkIns        *prometheus.CounterVec
	admissions      *prometheus.CounterVec
	checkInLatency  prometheus.Histogram
	queueWaiting    prometheus.Gauge
	pinAttempts     *prometheus.CounterVec
	pipelineChanges *prometheus.CounterVec
}

// NewClinicMetrics registers the collectors on reg, or the default registerer when nil.
func NewClinicMetrics(reg prometheus.Registerer) *ClinicMetrics {
	m := &ClinicMetrics{
		checkIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "checkin",
			Name:      "total",
			Help:      "Check-in attempts by outcome",
		}, []string{"outcome"}),
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "checkin",
			Name:      "admissions_total",
			Help:      "Service selections by admission decision",
		}, []string{"service_id", "decision"}),
		checkInLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "checkin",
			Name:      "latency_seconds",
			Help:      "Latency of the check-in transaction",
			Buckets:   prometheus.DefBuckets,
		}),
		queueWaiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clinic",
			Subsystem: "queue",
			Name:      "waiting_clients",
			Help:      "Clients on the wait list at the last dashboard refresh",
		}),
		pinAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "auth",
			Name:      "pin_attempts_total",
			Help:      "PIN login attempts by outcome",
		}, []string{"outcome"}),
		pipelineChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "pipeline",
			Name:      "transitions_total",
			Help:      "Visit service status transitions",
		}, []string{"from", "to"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.checkIns, m.admissions, m.checkInLatency, m.queueWaiting, m.pinAttempts, m.pipelineChanges)
	return m
}

// ObserveCheckIn records a finished check-in; outcome is first, repeat or error.
func (m *ClinicMetrics) ObserveCheckIn(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.checkIns.WithLabelValues(outcome).Inc()
	m.checkInLatency.Observe(seconds)
}

// ObserveAdmission records one gate decision, labelled by service id.
func (m *ClinicMetrics) ObserveAdmission(serviceID, decision string) {
	if m == nil {
		return
	}
	m.admissions.WithLabelValues(serviceID, decision).Inc()
}

// SetWaiting records the current wait list length.
func (m *ClinicMetrics) SetWaiting(n int) {
	if m == nil {
		return
	}
	m.queueWaiting.Set(float64(n))
}

// ObservePINAttempt records a PIN login outcome: ok, invalid or limited.
func (m *ClinicMetrics) ObservePINAttempt(outcome string) {
	if m == nil {
		return
	}
	m.pinAttempts.WithLabelValues(outcome).Inc()
}

// ObserveTransition records a pipeline status change.
func (m *ClinicMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.pipelineChanges.WithLabelValues(from, to).Inc()
}
