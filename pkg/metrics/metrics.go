// Package metrics exposes Prometheus instrumentation for ingestion runs and
// score recalculation. All methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	itemsTotal    *prometheus.CounterVec
	fetchFailures *prometheus.CounterVec
	recalculated  prometheus.Counter
	runDuration   *prometheus.HistogramVec
	lastSuccessTS *prometheus.GaugeVec
}

// New builds the metric set on its own registry, so tests and multiple
// instances never collide on the global one.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "merchpulse",
		Name:      "scrape_runs_total",
		Help:      "Ingestion runs by platform and final status",
	}, []string{"platform", "status"})
	m.itemsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "merchpulse",
		Name:      "items_ingested_total",
		Help:      "Scraped records by platform and outcome (new, updated, dropped)",
	}, []string{"platform", "outcome"})
	m.fetchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "merchpulse",
		Name:      "fetch_failures_total",
		Help:      "Pages or search terms that could not be fetched",
	}, []string{"platform"})
	m.recalculated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "merchpulse",
		Name:      "scores_recalculated_total",
		Help:      "Events whose derived scores were recomputed",
	})
	m.runDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "merchpulse",
		Name:      "scrape_duration_seconds",
		Help:      "Wall time of one platform ingestion run",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"platform"})
	m.lastSuccessTS = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "merchpulse",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful run per platform",
	}, []string{"platform"})

	m.registry.MustRegister(
		m.runsTotal, m.itemsTotal, m.fetchFailures,
		m.recalculated, m.runDuration, m.lastSuccessTS,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRun records one finished platform run.
func (m *Metrics) ObserveRun(platform, status string, duration time.Duration, newItems, updated, dropped int) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(platform, status).Inc()
	m.runDuration.WithLabelValues(platform).Observe(duration.Seconds())
	m.itemsTotal.WithLabelValues(platform, "new").Add(float64(newItems))
	m.itemsTotal.WithLabelValues(platform, "updated").Add(float64(updated))
	m.itemsTotal.WithLabelValues(platform, "dropped").Add(float64(dropped))
	if status != "failed" {
		m.lastSuccessTS.WithLabelValues(platform).SetToCurrentTime()
	}
}

func (m *Metrics) FetchFailures(platform string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.fetchFailures.WithLabelValues(platform).Add(float64(n))
}

func (m *Metrics) Recalculated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recalculated.Add(float64(n))
}
