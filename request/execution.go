// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"net/http"
	"time"

	"github.com/gogama/httpretry/transient"
)

// An Execution is the request context of one logical request as it
// passes through the retry middleware.
//
// The middleware creates the Execution, hands it to the next handler on
// every attempt, and returns it when the retry loop ends. The next
// handler fills in Response, Body and Err. A failed attempt may also
// mutate the Plan; the middleware restores it from a Snapshot before
// the next attempt.
//
// An Execution belongs to a single goroutine and is never shared
// between logical requests.
type Execution struct {
	// Plan is the request being executed. The middleware restores it
	// before every attempt.
	Plan *Plan

	// ID identifies the logical request in logs and traces. It is
	// assigned when the execution starts.
	ID string

	// Start is when the execution started.
	Start time.Time

	// End is when the execution ended. It is zero while the execution
	// is in flight.
	End time.Time

	// Attempt is the zero-based number of the current attempt: zero on
	// the initial attempt, one on the first retry, and so on. After the
	// execution ends it is the number of the last attempt made.
	Attempt int

	// AttemptTimeouts counts the attempts that ended in a timeout.
	AttemptTimeouts int

	// Request is the HTTP request sent by the current attempt, if the
	// next handler speaks HTTP.
	Request *http.Request

	// Response is the HTTP response received by the current attempt,
	// if any.
	Response *http.Response

	// Body is the response body slot of the current attempt.
	Body []byte

	// Err is the error returned by the next handler on the current
	// attempt. Once the execution has ended it is the error returned
	// to the caller.
	Err error

	// Verdict is the decision taken after the current attempt.
	Verdict Verdict

	// Wait is the wait before the next attempt. It is only meaningful
	// when Verdict is Retry.
	Wait time.Duration

	data context.Context
}

// Context returns the plan context, or the background context if there
// is no plan.
func (e *Execution) Context() context.Context {
	if e.Plan == nil {
		return context.Background()
	}
	return e.Plan.Context()
}

// Method returns the plan method, with the empty method reported as
// GET.
func (e *Execution) Method() string {
	if e.Plan == nil || e.Plan.Method == "" {
		return http.MethodGet
	}
	return e.Plan.Method
}

// StatusCode returns the status code of the current response, or 0 if
// there is none.
func (e *Execution) StatusCode() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

// Header returns the header of the current response, or a nil header if
// there is none.
func (e *Execution) Header() http.Header {
	if e.Response == nil {
		return nil
	}
	return e.Response.Header
}

// Duration returns how long the execution has run: zero before it
// starts, End minus Start after it ends, and the time elapsed since
// Start in between.
func (e *Execution) Duration() time.Duration {
	if !e.Started() {
		return 0
	} else if !e.Ended() {
		return time.Since(e.Start)
	}
	return e.End.Sub(e.Start)
}

// Started reports whether the execution has started.
func (e *Execution) Started() bool {
	return !e.Start.IsZero()
}

// Ended reports whether the execution has ended.
func (e *Execution) Ended() bool {
	return !e.End.IsZero()
}

// Timeout reports whether Err is a timeout.
func (e *Execution) Timeout() bool {
	return transient.Categorize(e.Err) == transient.Timeout
}

// SetValue stores a value on the execution for later retrieval with
// Value. Keys follow the rules of context.WithValue: they must be
// comparable and should be of an unexported type to avoid collisions
// between plug-ins.
func (e *Execution) SetValue(key, value interface{}) {
	ctx := e.data
	if ctx == nil {
		ctx = context.Background()
	}
	e.data = context.WithValue(ctx, key, value)
}

// Value returns the value stored for key, or nil.
func (e *Execution) Value(key interface{}) interface{} {
	if e.data == nil {
		return nil
	}
	return e.data.Value(key)
}
