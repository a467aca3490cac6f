// Package metrics defines the Prometheus collectors for ranking runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "docrank"

// Metrics holds the collectors on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	runsTotal          *prometheus.CounterVec
	documentsExcluded  *prometheus.CounterVec
	sectionsExtracted  prometheus.Counter
	sectionsDropped    prometheus.Counter
	sectionsSelected   prometheus.Counter
	stageDuration      *prometheus.HistogramVec
	httpRequestsTotal  *prometheus.CounterVec
	httpRequestSeconds *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Ranking runs by outcome",
		}, []string{"status"}),
		documentsExcluded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_excluded_total",
			Help:      "Documents excluded from a run, by failing stage",
		}, []string{"stage"}),
		sectionsExtracted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sections_extracted_total",
			Help:      "Sections produced by structure extraction",
		}),
		sectionsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sections_dropped_total",
			Help:      "Sections dropped because they could not be embedded",
		}),
		sectionsSelected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sections_selected_total",
			Help:      "Sections selected into output records",
		}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"stage"}),
		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpRequestSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) RunFinished(status string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) DocumentExcluded(stage string) {
	if m == nil {
		return
	}
	m.documentsExcluded.WithLabelValues(stage).Inc()
}

func (m *Metrics) SectionsExtracted(n int) {
	if m == nil {
		return
	}
	m.sectionsExtracted.Add(float64(n))
}

func (m *Metrics) SectionsRanked(selected, dropped int) {
	if m == nil {
		return
	}
	m.sectionsSelected.Add(float64(selected))
	m.sectionsDropped.Add(float64(dropped))
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, statusClass(status)).Inc()
	m.httpRequestSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
