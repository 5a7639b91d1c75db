// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"math"
	"time"

	"github.com/gogama/httpretry/request"
)

// A Policy returns the timeout to set on the next attempt of an
// execution.
//
// When Timeout is called, e.Attempt is the number of the attempt about
// to start, and e.Err and e.AttemptTimeouts still describe the attempts
// already made.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	Timeout(e *request.Execution) time.Duration
}

// The PolicyFunc type is an adapter to allow the use of ordinary
// functions as timeout policies.
type PolicyFunc func(e *request.Execution) time.Duration

// Timeout calls f(e).
func (f PolicyFunc) Timeout(e *request.Execution) time.Duration {
	return f(e)
}

// DefaultPolicy sets a fixed timeout of 5 seconds on each attempt.
var DefaultPolicy Policy = Fixed(5 * time.Second)

// Infinite never times out an attempt. The plan context still applies.
var Infinite Policy = Fixed(math.MaxInt64)

// Fixed returns a policy that sets the timeout d on every attempt. It
// panics if d is not positive.
func Fixed(d time.Duration) Policy {
	return Adaptive(d)
}

// Adaptive returns a policy that uses usual for every attempt unless
// the previous attempt timed out. After a timeout it uses after[0] if
// that was the first timeout of the execution, after[1] if the second,
// and so on, repeating the last element of after once they run out.
//
// For example, with
//
//	p := Adaptive(200*time.Millisecond, time.Second, 10*time.Second)
//
// attempts normally get 200ms. An attempt following the first timeout
// gets one second, and an attempt following any later timeout gets ten
// seconds.
//
// Adaptive panics if any timeout is not positive.
func Adaptive(usual time.Duration, after ...time.Duration) Policy {
	p := make(adaptive, 1, 1+len(after))
	p[0] = usual
	p = append(p, after...)
	for _, d := range p {
		if d <= 0 {
			panic("httpretry/timeout: timeout must be positive")
		}
	}
	return p
}

type adaptive []time.Duration

func (p adaptive) Timeout(e *request.Execution) time.Duration {
	if !e.Timeout() {
		return p[0]
	}

	i := e.AttemptTimeouts
	if i > len(p)-1 {
		i = len(p) - 1
	}

	return p[i]
}
