// Package monitoring exposes Prometheus metrics for dataset population and
// feature extraction passes.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Monitor is the collection of metrics updated by a dataset. A nil *Monitor
// is valid and records nothing.
type Monitor struct {
	// Records written by populate, per dataset.
	populatedRecords *prometheus.CounterVec
	// Values computed by extractors, per feature.
	computedFeatures *prometheus.CounterVec
	// Records skipped because the feature was already present.
	skippedFeatures *prometheus.CounterVec
	// Duration of a whole extraction pass, per feature.
	passDuration *prometheus.HistogramVec
	// Extractor errors, per feature.
	extractorErrors *prometheus.CounterVec
}

// NewMonitor creates the metrics and registers them with registry
func NewMonitor(registry prometheus.Registerer) *Monitor {
	populatedRecords := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sqfeat_populated_records_total",
		Help: "Number of records written by dataset population",
	}, []string{"dataset"})
	computedFeatures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sqfeat_feature_computed_total",
		Help: "Number of feature values computed by an extractor",
	}, []string{"feature"})
	skippedFeatures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sqfeat_feature_skipped_total",
		Help: "Number of records skipped because the feature was already stored",
	}, []string{"feature"})
	passDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sqfeat_extraction_pass_duration_seconds",
		Help:    "Duration of a feature extraction pass",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 21), // 0.001s to ~1048s
	}, []string{"feature"})
	extractorErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sqfeat_extractor_errors_total",
		Help: "Number of extraction passes aborted by an extractor error",
	}, []string{"feature"})

	registry.MustRegister(
		populatedRecords,
		computedFeatures,
		skippedFeatures,
		passDuration,
		extractorErrors,
	)
	return &Monitor{
		populatedRecords: populatedRecords,
		computedFeatures: computedFeatures,
		skippedFeatures:  skippedFeatures,
		passDuration:     passDuration,
		extractorErrors:  extractorErrors,
	}
}

// Populated records n new records for dataset
func (m *Monitor) Populated(dataset string, n int) {
	if m == nil {
		return
	}
	m.populatedRecords.WithLabelValues(dataset).Add(float64(n))
}

// Extracted records the outcome of one pass over feature
func (m *Monitor) Extracted(feature string, computed, skipped int) {
	if m == nil {
		return
	}
	m.computedFeatures.WithLabelValues(feature).Add(float64(computed))
	m.skippedFeatures.WithLabelValues(feature).Add(float64(skipped))
}

// ExtractorFailed counts an aborted pass
func (m *Monitor) ExtractorFailed(feature string) {
	if m == nil {
		return
	}
	m.extractorErrors.WithLabelValues(feature).Inc()
}

// StartPass starts timing a pass; call the returned func when it ends
func (m *Monitor) StartPass(feature string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	observer := m.passDuration.WithLabelValues(feature)
	return func() {
		observer.Observe(time.Since(start).Seconds())
	}
}
