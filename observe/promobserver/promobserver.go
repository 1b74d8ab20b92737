// Package promobserver exports failover invocation metrics to Prometheus.
package promobserver

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alternatefutures/package-cloud-sdk/failover"
	"github.com/alternatefutures/package-cloud-sdk/observe"
)

// Outcome label values.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeCancelled = "cancelled"
	OutcomeError     = "error"
	OutcomeTimeout   = "timeout"
)

// Observer records counters and latency histograms for every invocation.
type Observer struct {
	observe.BaseObserver

	invocations        *prometheus.CounterVec
	attempts           *prometheus.CounterVec
	failovers          *prometheus.CounterVec
	attemptDuration    *prometheus.HistogramVec
	invocationDuration *prometheus.HistogramVec
}

// New creates an Observer and registers its collectors with reg. An empty
// namespace defaults to "afcloud".
func New(reg prometheus.Registerer, namespace string) (*Observer, error) {
	if namespace == "" {
		namespace = "afcloud"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &Observer{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "failover",
			Name:      "invocations_total",
			Help:      "Failover invocations by final outcome.",
		}, []string{"outcome"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "failover",
			Name:      "attempts_total",
			Help:      "Attempts by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		failovers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "failover",
			Name:      "failovers_total",
			Help:      "Moves from an exhausted endpoint to the next one.",
		}, []string{"from", "to"}),
		attemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "failover",
			Name:      "attempt_duration_seconds",
			Help:      "Attempt latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		invocationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "failover",
			Name:      "invocation_duration_seconds",
			Help:      "End-to-end invocation latency including retry delays.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{o.invocations, o.attempts, o.failovers, o.attemptDuration, o.invocationDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *Observer) OnAttempt(_ context.Context, rec observe.AttemptRecord) {
	outcome := OutcomeSuccess
	switch {
	case rec.Timeout:
		outcome = OutcomeTimeout
	case rec.Err != nil:
		outcome = OutcomeError
	}
	o.attempts.WithLabelValues(rec.Endpoint, outcome).Inc()
	o.attemptDuration.WithLabelValues(rec.Endpoint).Observe(rec.Duration().Seconds())
}

func (o *Observer) OnFailover(_ context.Context, from, to string) {
	o.failovers.WithLabelValues(from, to).Inc()
}

func (o *Observer) OnSuccess(_ context.Context, tl observe.Timeline) {
	o.finish(OutcomeSuccess, tl)
}

func (o *Observer) OnFailure(_ context.Context, tl observe.Timeline) {
	outcome := OutcomeFailure
	var cerr *failover.CancelledError
	if errors.As(tl.FinalErr, &cerr) {
		outcome = OutcomeCancelled
	}
	o.finish(outcome, tl)
}

func (o *Observer) finish(outcome string, tl observe.Timeline) {
	o.invocations.WithLabelValues(outcome).Inc()
	o.invocationDuration.WithLabelValues(outcome).Observe(tl.End.Sub(tl.Start).Seconds())
}
