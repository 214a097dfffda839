// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package metrics records reconciliation and polling counters on a private
// registry that can be flushed to a node-exporter textfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cde"

// Recorder is safe to use as a nil pointer; every method is then a no-op.
type Recorder struct {
	registry *prometheus.Registry

	pollAttempts     prometheus.Counter
	pollTimeouts     prometheus.Counter
	pollDuration     prometheus.Histogram
	mutations        *prometheus.CounterVec
	warnings         prometheus.Counter
	reconcileOutcome *prometheus.CounterVec
	observedState    *prometheus.CounterVec
	infoQueries      *prometheus.CounterVec
	infoServices     prometheus.Gauge
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		pollAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_attempts_total",
			Help:      "Describe calls issued while waiting for a target state",
		}),
		pollTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_timeouts_total",
			Help:      "Waits that ended before the target state was reached",
		}),
		pollDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Wall time spent waiting for a target state",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Mutating control plane calls issued",
		}, []string{"action"}),
		warnings: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Warnings raised during reconciliation",
		}),
		reconcileOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_total",
			Help:      "Reconciliation passes by outcome",
		}, []string{"outcome"}),
		observedState: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observed_state_total",
			Help:      "Observed service classes at dispatch time",
		}, []string{"observed", "desired"}),
		infoQueries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "info_queries_total",
			Help:      "Read-only service queries by outcome",
		}, []string{"outcome"}),
		infoServices: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "info_services_returned",
			Help:      "Services returned by the last read-only query",
		}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) PollAttempt() {
	if r == nil {
		return
	}
	r.pollAttempts.Inc()
}

// PollFinished records a completed wait. reached is false on timeout.
func (r *Recorder) PollFinished(elapsed time.Duration, reached bool) {
	if r == nil {
		return
	}
	r.pollDuration.Observe(elapsed.Seconds())
	if !reached {
		r.pollTimeouts.Inc()
	}
}

func (r *Recorder) Mutation(action string) {
	if r == nil {
		return
	}
	r.mutations.WithLabelValues(action).Inc()
}

func (r *Recorder) Warning() {
	if r == nil {
		return
	}
	r.warnings.Inc()
}

func (r *Recorder) Observed(observed, desired string) {
	if r == nil {
		return
	}
	r.observedState.WithLabelValues(observed, desired).Inc()
}

// Outcome records the end of a reconciliation: "ok", "warning" or "error".
func (r *Recorder) Outcome(outcome string) {
	if r == nil {
		return
	}
	r.reconcileOutcome.WithLabelValues(outcome).Inc()
}

// InfoQuery records a read-only query. returned is ignored when the query failed.
func (r *Recorder) InfoQuery(returned int, err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.infoQueries.WithLabelValues("error").Inc()
		return
	}
	r.infoQueries.WithLabelValues("ok").Inc()
	r.infoServices.Set(float64(returned))
}

// WriteTextfile writes the registry in the text exposition format for the
// node-exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
