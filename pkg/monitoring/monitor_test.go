package monitoring

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	monitor := NewMonitor(registry)

	monitor.Populated("test.db", 3)
	monitor.Extracted("size", 3, 0)
	monitor.Extracted("size", 0, 3)
	monitor.ExtractorFailed("mean")

	expected := `
        # HELP sqfeat_feature_computed_total Number of feature values computed by an extractor
        # TYPE sqfeat_feature_computed_total counter
        sqfeat_feature_computed_total{feature="size"} 3
        # HELP sqfeat_feature_skipped_total Number of records skipped because the feature was already stored
        # TYPE sqfeat_feature_skipped_total counter
        sqfeat_feature_skipped_total{feature="size"} 3
    `
	err := testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"sqfeat_feature_computed_total", "sqfeat_feature_skipped_total")
	require.NoError(t, err)

	assert.Equal(t, 3.0, testutil.ToFloat64(monitor.populatedRecords.WithLabelValues("test.db")))
	assert.Equal(t, 1.0, testutil.ToFloat64(monitor.extractorErrors.WithLabelValues("mean")))
}

func TestMonitorPassDuration(t *testing.T) {
	registry := prometheus.NewRegistry()
	monitor := NewMonitor(registry)

	done := monitor.StartPass("entropy")
	done()

	assert.Equal(t, 1, testutil.CollectAndCount(monitor.passDuration, "sqfeat_extraction_pass_duration_seconds"))
}

func TestNilMonitor(t *testing.T) {
	var monitor *Monitor

	assert.NotPanics(t, func() {
		monitor.Populated("x", 1)
		monitor.Extracted("x", 1, 1)
		monitor.ExtractorFailed("x")
		monitor.StartPass("x")()
	})
}
