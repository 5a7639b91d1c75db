// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package metrics exports Prometheus metrics for the retry loop.
//
//	c, err := metrics.New(prometheus.DefaultRegisterer)
//	...
//	c.Install(client.Handlers)
package metrics

import (
	"github.com/gogama/httpretry"
	"github.com/gogama/httpretry/request"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "httpretry"

// Attempt outcomes used as the value of the outcome label.
const (
	OutcomeSuccess = "success"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

// A Collector holds the retry loop metrics. One Collector may be
// installed on any number of handler groups.
type Collector struct {
	attempts   *prometheus.CounterVec   // method, outcome
	retries    *prometheus.CounterVec   // method
	executions *prometheus.CounterVec   // method, verdict
	retryWait  prometheus.Histogram
	duration   *prometheus.HistogramVec // method
}

// New creates a Collector and registers its metrics with reg. If reg
// is nil the metrics are created but not registered.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Total number of attempts, by method and outcome",
		}, []string{"method", "outcome"}),

		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Total number of retries scheduled, by method",
		}, []string{"method"}),

		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Total number of logical requests, by method and final verdict",
		}, []string{"method", "verdict"}),

		retryWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retry_wait_seconds",
			Help:      "Backoff wait scheduled before a retry",
			Buckets:   []float64{0, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Duration of logical requests including retries and waits",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	if reg != nil {
		for _, col := range []prometheus.Collector{c.attempts, c.retries, c.executions, c.retryWait, c.duration} {
			if err := reg.Register(col); err != nil {
				return nil, err
			}
		}
	}

	return c, nil
}

// Install pushes the handlers that feed c onto g.
func (c *Collector) Install(g *httpretry.HandlerGroup) {
	g.PushBack(httpretry.AfterAttempt, httpretry.HandlerFunc(c.afterAttempt))
	g.PushBack(httpretry.BeforeRetryWait, httpretry.HandlerFunc(c.beforeRetryWait))
	g.PushBack(httpretry.AfterExecutionEnd, httpretry.HandlerFunc(c.afterExecutionEnd))
}

func (c *Collector) afterAttempt(_ httpretry.Event, e *request.Execution) {
	outcome := OutcomeSuccess
	if e.Timeout() {
		outcome = OutcomeTimeout
	} else if e.Err != nil {
		outcome = OutcomeError
	}
	c.attempts.WithLabelValues(e.Method(), outcome).Inc()
}

func (c *Collector) beforeRetryWait(_ httpretry.Event, e *request.Execution) {
	c.retries.WithLabelValues(e.Method()).Inc()
	c.retryWait.Observe(e.Wait.Seconds())
}

func (c *Collector) afterExecutionEnd(_ httpretry.Event, e *request.Execution) {
	c.executions.WithLabelValues(e.Method(), e.Verdict.String()).Inc()
	c.duration.WithLabelValues(e.Method()).Observe(e.Duration().Seconds())
}
