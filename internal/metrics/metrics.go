// Package metrics exposes simulation progress as Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "omicsim"

// Recorder owns its registry so several sessions in one process (or tests)
// never collide on the default registerer. A nil *Recorder is a no-op.
type Recorder struct {
	registry      *prometheus.Registry
	steps         prometheus.Counter
	runsStarted   prometheus.Counter
	runsCompleted prometheus.Counter
	simTime       prometheus.Gauge
	stepDuration  prometheus.Histogram
	risk          *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Simulation steps executed.",
		}),
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Runs started from the idle state.",
		}),
		runsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_completed_total",
			Help:      "Runs that reached the time horizon.",
		}),
		simTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "simulated_time_hours",
			Help:      "Current simulated time of the active session.",
		}),
		stepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Wall time spent computing one step.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		risk: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "disease_risk_percent",
			Help:      "Latest disease risk score.",
		}, []string{"disease"}),
	}
	r.registry.MustRegister(r.steps, r.runsStarted, r.runsCompleted, r.simTime, r.stepDuration, r.risk)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) RunStarted() {
	if r == nil {
		return
	}
	r.runsStarted.Inc()
}

func (r *Recorder) RunCompleted() {
	if r == nil {
		return
	}
	r.runsCompleted.Inc()
}

func (r *Recorder) Step(simTime float64, took time.Duration) {
	if r == nil {
		return
	}
	r.steps.Inc()
	r.simTime.Set(simTime)
	r.stepDuration.Observe(took.Seconds())
}

func (r *Recorder) Reset() {
	if r == nil {
		return
	}
	r.simTime.Set(0)
	r.risk.Reset()
}

func (r *Recorder) Risk(disease string, value float64) {
	if r == nil {
		return
	}
	r.risk.WithLabelValues(disease).Set(value)
}

// Handler serves the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
