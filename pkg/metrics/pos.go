package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// POSMetrics records counters for the scan/detect/checkout request paths.
type POSMetrics struct {
	detectionDuration *prometheus.HistogramVec
	detectionFailures *prometheus.CounterVec
	scans             *prometheus.CounterVec
	checkouts         *prometheus.CounterVec
}

// NewPOSMetrics registers the POS metrics on the provided registerer.
func NewPOSMetrics(reg prometheus.Registerer) *POSMetrics {
	if reg == nil {
		return &POSMetrics{}
	}
	detectionDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "detection_duration_seconds",
		Help:    "Duration of vision model detection calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})
	detectionFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "detection_failures",
		Help: "Failed vision model detection calls.",
	}, []string{"model"})
	scans := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_scans",
		Help: "Scan operations by resolution outcome.",
	}, []string{"outcome"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkouts",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(detectionDuration, detectionFailures, scans, checkouts)
	return &POSMetrics{
		detectionDuration: detectionDuration,
		detectionFailures: detectionFailures,
		scans:             scans,
		checkouts:         checkouts,
	}
}

// ObserveDetection records the duration of a detection call.
func (m *POSMetrics) ObserveDetection(model string, duration time.Duration) {
	if m == nil || m.detectionDuration == nil {
		return
	}
	m.detectionDuration.WithLabelValues(normalizeLabel(model)).Observe(duration.Seconds())
}

// IncDetectionFailure increments the failure counter for the named model.
func (m *POSMetrics) IncDetectionFailure(model string) {
	if m == nil || m.detectionFailures == nil {
		return
	}
	m.detectionFailures.WithLabelValues(normalizeLabel(model)).Inc()
}

// IncScan increments the scan counter with the resolution outcome.
func (m *POSMetrics) IncScan(outcome string) {
	if m == nil || m.scans == nil {
		return
	}
	m.scans.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncCheckout increments the checkout counter with the attempt outcome.
func (m *POSMetrics) IncCheckout(outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
