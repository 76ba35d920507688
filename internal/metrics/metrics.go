package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pkt.systems/dropterm/schema"
)

const namespace = "dropterm"

// Recorder implements core.Metrics on a private prometheus registry.
type Recorder struct {
	registry *prometheus.Registry
	started  prometheus.Counter
	finished *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRecorder registers the run collectors on a fresh registry.
func NewRecorder() *Recorder {
	started := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_started_total",
		Help:      "Total commands handed to the shell.",
	})
	finished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_finished_total",
		Help:      "Total runs that reached a terminal status, labeled by status.",
	}, []string{"status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Histogram of run durations.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{"status"})
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		started:  started,
		finished: finished,
		duration: duration,
	}
	r.registry.MustRegister(r.started, r.finished, r.duration)
	return r
}

// RunStarted implements core.Metrics.
func (r *Recorder) RunStarted() {
	r.started.Inc()
}

// RunFinished implements core.Metrics.
func (r *Recorder) RunFinished(status schema.RunStatus, duration time.Duration) {
	r.finished.WithLabelValues(string(status)).Inc()
	r.duration.WithLabelValues(string(status)).Observe(duration.Seconds())
}

// Registry returns the registry backing the recorder.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the recorder's metrics in the prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
