// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpretry

// An Event identifies a point in the retry loop at which installed
// handlers run. Install handlers in a HandlerGroup to observe the loop,
// for example to log or count attempts.
type Event int

const (
	// BeforeExecutionStart occurs once, before the first attempt. The
	// execution has its Plan and ID set and nothing else. Handlers may
	// replace the Plan, for example with one carrying a derived
	// context; the plan as they leave it is what every attempt starts
	// from.
	BeforeExecutionStart Event = iota
	// BeforeAttempt occurs before every attempt, after the plan has
	// been restored from its snapshot. Err still holds the error of
	// the previous attempt, if any.
	BeforeAttempt
	// AfterAttemptTimeout occurs after an attempt that ended in a
	// timeout, once AttemptTimeouts has been incremented.
	AfterAttemptTimeout
	// AfterAttempt occurs after every attempt. Err holds the attempt's
	// error and Verdict the decision taken; if the verdict is Retry,
	// Wait holds the wait before the next attempt.
	AfterAttempt
	// BeforeRetryWait occurs just before the middleware starts waiting
	// to retry.
	BeforeRetryWait
	// AfterPlanTimeout occurs when the plan context deadline expires,
	// whether during an attempt or during a retry wait. It always
	// follows AfterAttempt.
	AfterPlanTimeout
	// AfterExecutionEnd occurs once, after the retry loop ends. End is
	// set and Err holds the error returned to the caller.
	AfterExecutionEnd
	eventSentinel

	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"BeforeExecutionStart",
	"BeforeAttempt",
	"AfterAttemptTimeout",
	"AfterAttempt",
	"BeforeRetryWait",
	"AfterPlanTimeout",
	"AfterExecutionEnd",
}

// Events returns every event, in the order in which they can occur.
func Events() []Event {
	evts := make([]Event, numEvents)
	for i := range evts {
		evts[i] = Event(i)
	}
	return evts
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}
