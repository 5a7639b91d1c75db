// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpretry

import (
	"context"
	"errors"
	"time"

	"github.com/gogama/httpretry/request"
	"github.com/gogama/httpretry/retry"
	"github.com/google/uuid"
)

// An Attempter performs a single attempt of a logical request. It is
// the next handler the retry middleware delegates to.
//
// Attempt sends the current e.Plan once and records the outcome on e,
// typically in e.Response and e.Body. It returns nil if the attempt
// succeeded and a non-nil error if it failed. The middleware stores the
// returned error in e.Err itself.
//
// Attempt may mutate e.Plan freely. The middleware restores the plan
// before the next attempt.
type Attempter interface {
	Attempt(e *request.Execution) error
}

// The AttemptFunc type is an adapter to allow the use of ordinary
// functions as an Attempter.
type AttemptFunc func(e *request.Execution) error

// Attempt calls f(e).
func (f AttemptFunc) Attempt(e *request.Execution) error {
	return f(e)
}

// A Middleware wraps a next handler and re-invokes it when an attempt
// fails with a retryable error, waiting between attempts according to
// the backoff schedule of its retry policy.
//
// A Middleware holds no per-request state. The retry budget of each
// logical request lives on the stack of the Do or Attempt call that
// executes it, so one Middleware may serve any number of concurrent
// requests as long as its Next handler is safe for concurrent use.
//
// Middleware itself implements Attempter, so it can be the next handler
// of another piece of middleware.
type Middleware struct {
	// Policy decides which failures are retried, how often, and how
	// long to wait between attempts.
	//
	// If Policy is nil, retry.DefaultPolicy is used.
	Policy *retry.Policy
	// Next performs each attempt. It must not be nil.
	Next Attempter
	// Handlers allows custom handler chains to be invoked when
	// designated events occur during the retry loop.
	//
	// If Handlers is nil, no custom handlers will be run.
	Handlers *HandlerGroup
}

// Do executes the plan p through the retry loop and returns the final
// execution state together with the error of the last attempt, if any.
//
// The returned Execution is never nil. If the error is non-nil, the
// Err field of the Execution references the same error.
func (m *Middleware) Do(p *request.Plan) (*request.Execution, error) {
	if p == nil {
		panic("httpretry: nil plan")
	}
	e := &request.Execution{Plan: p}
	err := m.Attempt(e)
	return e, err
}

// Attempt runs the retry loop over the plan of e.
//
// Before each attempt the plan is restored to the state it had once
// the BeforeExecutionStart handlers ran, so a request body consumed or modified by a
// failed attempt is resent intact. After a failed attempt the policy
// decides, in order: whether the error is retryable at all; whether the
// method may be retried; and whether any retries remain. A retried
// attempt is preceded by the wait the policy computes for the number of
// retries remaining.
//
// The error returned is the error of the last attempt, unchanged, or
// the plan context error if the plan context ended during a wait. A
// failure is never turned into a success, and a success ends the loop
// immediately.
func (m *Middleware) Attempt(e *request.Execution) error {
	if e.Plan == nil {
		panic("httpretry: nil plan")
	}
	next := m.next()
	policy := m.policy()
	handlers := m.Handlers

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	handlers.run(BeforeExecutionStart, e)
	if e.Plan == nil {
		panic("httpretry: nil plan")
	}

	ctx := e.Plan.Context()
	snapshot := request.Capture(e.Plan)
	remaining := policy.Max()
	e.Start = time.Now()

	for {
		snapshot.Restore(e)
		e.Request = nil
		e.Response = nil
		e.Body = nil
		e.Verdict = request.Undecided
		e.Wait = 0
		handlers.run(BeforeAttempt, e)

		err := next.Attempt(e)
		e.Err = err
		if err == nil {
			e.Verdict = request.Succeeded
			handlers.run(AfterAttempt, e)
			break
		}
		if e.Timeout() {
			e.AttemptTimeouts++
			handlers.run(AfterAttemptTimeout, e)
		}

		planCtxErr := ctx.Err()
		if planCtxErr != nil {
			e.Verdict = request.Cancelled
		} else {
			e.Verdict = policy.Decide(e, err, remaining)
		}
		if e.Verdict == request.Retry {
			e.Wait = policy.Amount(remaining)
		}
		handlers.run(AfterAttempt, e)
		if errors.Is(planCtxErr, context.DeadlineExceeded) {
			handlers.run(AfterPlanTimeout, e)
		}
		if e.Verdict != request.Retry {
			break
		}

		remaining--
		handlers.run(BeforeRetryWait, e)
		if !sleep(ctx, e.Wait) {
			e.Err = ctx.Err()
			e.Verdict = request.Cancelled
			if errors.Is(e.Err, context.DeadlineExceeded) {
				handlers.run(AfterPlanTimeout, e)
			}
			break
		}
		e.Attempt++
	}

	e.End = time.Now()
	handlers.run(AfterExecutionEnd, e)
	return e.Err
}

func (m *Middleware) next() Attempter {
	if m.Next == nil {
		panic("httpretry: nil next handler")
	}
	return m.Next
}

func (m *Middleware) policy() *retry.Policy {
	if m.Policy == nil {
		return retry.DefaultPolicy
	}
	return m.Policy
}

// sleep waits for d or until ctx is done, whichever comes first. It
// returns false if ctx ended before the wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
