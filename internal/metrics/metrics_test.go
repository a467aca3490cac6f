package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectors(t *testing.T) {
	m := New()
	m.RunFinished("completed")
	m.RunFinished("completed")
	m.DocumentExcluded("parse")
	m.SectionsExtracted(12)
	m.SectionsRanked(5, 1)
	m.ObserveStage("parse", 40*time.Millisecond)
	m.ObserveHTTP("POST", "/api/rank", 201, time.Second)
	m.ObserveHTTP("POST", "/api/rank", 413, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.documentsExcluded.WithLabelValues("parse")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.sectionsExtracted))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.sectionsSelected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sectionsDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("POST", "/api/rank", "4xx")))

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["docrank_stage_duration_seconds"])
	assert.True(t, names["go_goroutines"])
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RunFinished("failed")
		m.DocumentExcluded("parse")
		m.SectionsExtracted(1)
		m.SectionsRanked(1, 1)
		m.ObserveStage("rank", time.Second)
		m.ObserveHTTP("GET", "/health", 200, time.Millisecond)
	})
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(200))
	assert.Equal(t, "3xx", statusClass(304))
	assert.Equal(t, "4xx", statusClass(401))
	assert.Equal(t, "5xx", statusClass(503))
}
