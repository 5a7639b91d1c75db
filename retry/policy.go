// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gogama/httpretry/request"
)

const (
	// DefaultMax is the default number of retries after the initial
	// attempt.
	DefaultMax = 2
	// DefaultBackoffFactor is the default backoff multiplier. A factor
	// of one gives a constant wait of Interval before every retry.
	DefaultBackoffFactor = 1.0
)

// DefaultExceptions are the error kinds retried by default.
var DefaultExceptions = []Kind{Timeout}

// DefaultIdempotentMethods are the methods retried without a retry
// predicate by default.
var DefaultIdempotentMethods = []string{http.MethodGet}

// DefaultPolicy is the policy built by New with no options.
var DefaultPolicy = New()

// Never is a policy that never retries.
var Never = NewMax(0)

// A Policy decides whether a failed attempt is retried and how long to
// wait first.
//
// A Policy is immutable and safe for concurrent use by multiple
// goroutines. It carries no per-request state: the remaining retry
// budget of a request is kept by the caller and passed in to Decide and
// Amount.
type Policy struct {
	max                int
	interval           time.Duration
	maxInterval        time.Duration
	backoffFactor      float64
	intervalRandomness float64
	exceptions         []Kind
	predicate          Predicate
	idempotent         map[string]bool
	rand               Rand
}

// An Option configures a Policy under construction.
type Option func(*Policy)

// New builds a Policy from options. Options not given take their
// defaults: DefaultMax retries, no interval, DefaultBackoffFactor, no
// randomness, DefaultExceptions, no retry predicate, and
// DefaultIdempotentMethods.
//
// New panics if the resulting configuration is invalid, for example a
// negative retry budget or a backoff factor below one.
func New(opts ...Option) *Policy {
	p := build(opts)
	if err := p.validate(); err != nil {
		panic(err.Error())
	}
	return p
}

// NewMax builds a Policy allowing max retries, with every other setting
// at its default. It is the legacy shorthand for New(WithMax(max)).
func NewMax(max int) *Policy {
	return New(WithMax(max))
}

// WithMax sets the number of retries after the initial attempt.
func WithMax(n int) Option {
	return func(p *Policy) {
		p.max = n
	}
}

// WithInterval sets the wait before the first retry.
func WithInterval(d time.Duration) Option {
	return func(p *Policy) {
		p.interval = d
	}
}

// WithMaxInterval caps every wait at d. Zero means no cap.
func WithMaxInterval(d time.Duration) Option {
	return func(p *Policy) {
		p.maxInterval = d
	}
}

// WithBackoffFactor sets the multiplier applied to the wait for each
// retry after the first. It must be at least one.
func WithBackoffFactor(f float64) Option {
	return func(p *Policy) {
		p.backoffFactor = f
	}
}

// WithIntervalRandomness sets the jitter fraction r, in [0, 1]. A wait
// of d becomes a uniformly random wait in [d, d*(1+r)).
func WithIntervalRandomness(r float64) Option {
	return func(p *Policy) {
		p.intervalRandomness = r
	}
}

// WithExceptions replaces the set of retryable error kinds.
func WithExceptions(kinds ...Kind) Option {
	return func(p *Policy) {
		p.exceptions = append([]Kind(nil), kinds...)
	}
}

// WithRetryIf installs a predicate deciding whether a failed request
// with a non-idempotent method is retried. Without one, such requests
// are never retried. The predicate is never consulted for idempotent
// methods.
func WithRetryIf(pred Predicate) Option {
	return func(p *Policy) {
		p.predicate = pred
	}
}

// WithIdempotentMethods replaces the set of methods retried without
// consulting the retry predicate. Methods are matched case-insensitively.
func WithIdempotentMethods(methods ...string) Option {
	return func(p *Policy) {
		p.idempotent = make(map[string]bool, len(methods))
		for _, m := range methods {
			p.idempotent[strings.ToUpper(m)] = true
		}
	}
}

// WithRand replaces the jitter source. It must return uniformly
// distributed values in [0, 1) and be safe for concurrent use if the
// policy is shared.
func WithRand(r Rand) Option {
	return func(p *Policy) {
		p.rand = r
	}
}

func build(opts []Option) *Policy {
	p := &Policy{
		max:           DefaultMax,
		backoffFactor: DefaultBackoffFactor,
		exceptions:    append([]Kind(nil), DefaultExceptions...),
		rand:          defaultRand,
	}
	WithIdempotentMethods(DefaultIdempotentMethods...)(p)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Policy) validate() error {
	switch {
	case p.max < 0:
		return errors.New("httpretry/retry: max may not be negative")
	case p.interval < 0:
		return errors.New("httpretry/retry: interval may not be negative")
	case p.maxInterval < 0:
		return errors.New("httpretry/retry: max interval may not be negative")
	case !(p.backoffFactor >= 1) || math.IsInf(p.backoffFactor, 0):
		return errors.New("httpretry/retry: backoff factor must be at least 1")
	case !(p.intervalRandomness >= 0 && p.intervalRandomness <= 1):
		return errors.New("httpretry/retry: interval randomness must be between 0 and 1")
	case p.rand == nil:
		return errors.New("httpretry/retry: nil rand")
	}
	for _, k := range p.exceptions {
		if k == nil {
			return errors.New("httpretry/retry: nil exception kind")
		}
	}
	return nil
}

// Max returns the number of retries allowed after the initial attempt.
func (p *Policy) Max() int {
	return p.max
}

// Interval returns the wait before the first retry.
func (p *Policy) Interval() time.Duration {
	return p.interval
}

// MaxInterval returns the cap on every wait, or zero if uncapped.
func (p *Policy) MaxInterval() time.Duration {
	return p.maxInterval
}

// BackoffFactor returns the per-retry wait multiplier.
func (p *Policy) BackoffFactor() float64 {
	return p.backoffFactor
}

// IntervalRandomness returns the jitter fraction.
func (p *Policy) IntervalRandomness() float64 {
	return p.intervalRandomness
}

// Idempotent reports whether method is retried without consulting the
// retry predicate. The empty method means GET.
func (p *Policy) Idempotent(method string) bool {
	if method == "" {
		method = http.MethodGet
	}
	return p.idempotent[strings.ToUpper(method)]
}

// Retryable reports whether err matches one of the retryable error
// kinds. A nil error is never retryable.
func (p *Policy) Retryable(err error) bool {
	if err == nil {
		return false
	}
	for _, k := range p.exceptions {
		if k.Match(err) {
			return true
		}
	}
	return false
}

// Decide returns the verdict for an attempt of e that failed with err,
// given the number of retries remaining before this decision.
//
// The checks run in order, and the first one that fails sets the
// verdict. The error must match a retryable kind, else NotRetryable.
// A non-idempotent method needs a retry predicate that returns true,
// else Refused. The budget must not be spent, else Exhausted. Only then
// is the verdict Retry.
//
// The predicate sees e exactly as the failed attempt left it. If the
// predicate panics, the panic propagates to the caller.
func (p *Policy) Decide(e *request.Execution, err error, remaining int) request.Verdict {
	if !p.Retryable(err) {
		return request.NotRetryable
	}
	if !p.Idempotent(e.Method()) && !p.shouldRetryNonIdempotent(e, err) {
		return request.Refused
	}
	if remaining <= 0 {
		return request.Exhausted
	}
	return request.Retry
}

func (p *Policy) shouldRetryNonIdempotent(e *request.Execution, err error) bool {
	if p.predicate == nil {
		return false
	}
	return p.predicate.ShouldRetry(e, err)
}
