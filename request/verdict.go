// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

// A Verdict records what the retry middleware decided after an
// attempt. The retry policy produces Retry, NotRetryable, Refused and
// Exhausted; the middleware itself produces Succeeded and Cancelled.
type Verdict int

const (
	// Undecided is the verdict while an attempt is in flight.
	Undecided Verdict = iota
	// Succeeded means the next handler returned no error.
	Succeeded
	// Retry means the attempt failed and will be retried.
	Retry
	// NotRetryable means the error is not one of the policy's retryable
	// error kinds. Budget is not consumed.
	NotRetryable
	// Refused means the method is not idempotent and either no retry
	// predicate is configured or the predicate returned false.
	Refused
	// Exhausted means the retry budget is spent. The last error is
	// returned unchanged.
	Exhausted
	// Cancelled means the plan context ended, either during an attempt
	// or during the wait before a retry.
	Cancelled
)

var verdictNames = []string{
	"undecided",
	"succeeded",
	"retry",
	"not_retryable",
	"refused",
	"exhausted",
	"cancelled",
}

// String returns the snake-case name of the verdict.
func (v Verdict) String() string {
	if v < 0 || int(v) >= len(verdictNames) {
		return "unknown"
	}
	return verdictNames[v]
}

// Final reports whether the verdict ends the execution.
func (v Verdict) Final() bool {
	return v != Undecided && v != Retry
}
