package engine

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentinelops/lewsboard/model"
)

// Metrics exposes the engine's state to Prometheus.
type Metrics struct {
	reg *prometheus.Registry

	decision    prometheus.Gauge
	confidence  prometheus.Gauge
	alarmFiring prometheus.Gauge
	cycles      *prometheus.CounterVec
	cacheServes *prometheus.CounterVec
}

// NewMetrics creates a metrics set on its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		reg: reg,
		decision: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lews_decision",
			Help: "Resolved evacuate decision (1=YES, 0=NO).",
		}),
		confidence: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lews_confidence",
			Help: "Resolved decision confidence in [0,1].",
		}),
		alarmFiring: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lews_alarm_firing",
			Help: "Whether the audible alarm is active (1=firing).",
		}),
		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lews_poll_cycles_total",
			Help: "Acquisition cycles by data path outcome.",
		}, []string{"path"}),
		cacheServes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lews_cache_serves_total",
			Help: "Cache router responses by rule and source.",
		}, []string{"rule", "source"}),
	}
}

// ObserveCycle records the outcome of one acquisition cycle.
func (m *Metrics) ObserveCycle(c model.Cycle, firing bool) {
	if c.Resolved.Decision.IsYes() {
		m.decision.Set(1)
	} else {
		m.decision.Set(0)
	}
	m.confidence.Set(c.Resolved.Confidence)
	if firing {
		m.alarmFiring.Set(1)
	} else {
		m.alarmFiring.Set(0)
	}
	m.cycles.WithLabelValues(c.Path.String()).Inc()
}

// ObserveCacheServe records one cache-router response, keyed by rule name
// and whether it came off the wire or out of the cache.
func (m *Metrics) ObserveCacheServe(rule, source string) {
	m.cacheServes.WithLabelValues(rule, source).Inc()
}

// Handler returns the scrape handler for this metrics set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Serve starts the metrics endpoint in the background.
func (m *Metrics) Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("lewsboard: metrics endpoint: %v", err)
		}
	}()
}
