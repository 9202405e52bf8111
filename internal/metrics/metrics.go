package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sentiscope"

// Metrics is nil-safe: every recorder is a no-op on a nil receiver so
// components can run without a registry in tests and the CLI.
type Metrics struct {
	Requests      *prometheus.CounterVec
	Latency       *prometheus.HistogramVec
	PipelineInits *prometheus.CounterVec
	Pending       prometheus.Gauge
	Discarded     prometheus.Counter
	CacheHits     *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Analysis requests by task and outcome.",
		}, []string{"task", "outcome"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Time spent running a pipeline.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"task"}),
		PipelineInits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_inits_total",
			Help:      "Pipeline constructions by task and outcome.",
		}, []string{"task", "outcome"}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "correlator_pending",
			Help:      "Requests waiting for an out-of-process response.",
		}),
		Discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "correlator_discarded_total",
			Help:      "Responses dropped because no waiter was registered.",
		}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_cache_lookups_total",
			Help:      "Result cache lookups by task and hit/miss.",
		}, []string{"task", "result"}),
	}

	if reg != nil {
		reg.MustRegister(m.Requests, m.Latency, m.PipelineInits, m.Pending, m.Discarded, m.CacheHits)
	}
	return m
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveRequest(task string, err error) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(task, outcome(err)).Inc()
}

func (m *Metrics) ObserveInference(task string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Latency.WithLabelValues(task).Observe(elapsed.Seconds())
}

func (m *Metrics) ObservePipelineInit(task string, err error) {
	if m == nil {
		return
	}
	m.PipelineInits.WithLabelValues(task, outcome(err)).Inc()
}

func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.Pending.Set(float64(n))
}

func (m *Metrics) IncDiscarded() {
	if m == nil {
		return
	}
	m.Discarded.Inc()
}

func (m *Metrics) ObserveCacheLookup(task string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheHits.WithLabelValues(task, result).Inc()
}
