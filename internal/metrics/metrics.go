package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "attribution"

// Run outcomes
const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid"
	OutcomeFailed  = "failed"
)

// Metrics holds the service's Prometheus collectors
type Metrics struct {
	registry            *prometheus.Registry
	runs                *prometheus.CounterVec
	touchpointsIngested prometheus.Counter
	duplicatesDropped   prometheus.Counter
	markovSolve         prometheus.Histogram
	lastRunConverters   prometheus.Gauge
}

// New creates the collectors on a dedicated registry, together with the
// standard Go and process collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of attribution runs by outcome.",
		}, []string{"outcome"}),
		touchpointsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "touchpoints_ingested_total",
			Help: "Total number of touchpoints written to storage.",
		}),
		duplicatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "touchpoints_duplicates_dropped_total",
			Help: "Total number of redelivered touchpoints dropped before insert.",
		}),
		markovSolve: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "markov_solve_seconds",
			Help:      "Duration of a single Markov graph build and absorbing-chain solve.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		lastRunConverters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_converters",
			Help:      "Number of converting users in the most recent successful run.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.runs,
		m.touchpointsIngested,
		m.duplicatesDropped,
		m.markovSolve,
		m.lastRunConverters,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RunFinished records the outcome of an attribution run. converters is only
// recorded on success.
func (m *Metrics) RunFinished(outcome string, converters int) {
	m.runs.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		m.lastRunConverters.Set(float64(converters))
	}
}

// ObserveSolve records one Markov solve. Its signature matches the solver's
// OnSolve hook.
func (m *Metrics) ObserveSolve(_ string, elapsed time.Duration) {
	m.markovSolve.Observe(elapsed.Seconds())
}

// TouchpointsIngested adds n stored touchpoints
func (m *Metrics) TouchpointsIngested(n int) {
	m.touchpointsIngested.Add(float64(n))
}

// DuplicatesDropped adds n dropped duplicates
func (m *Metrics) DuplicatesDropped(n int) {
	m.duplicatesDropped.Add(float64(n))
}
