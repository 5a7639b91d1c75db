// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"strings"
	"time"

	"github.com/gogama/httpretry/request"
)

// A Predicate decides whether a failed request with a non-idempotent
// method may be retried.
//
// ShouldRetry receives the execution as the failed attempt left it,
// before the plan is restored, together with the error the attempt
// raised. Implementations must be safe for concurrent use.
type Predicate interface {
	ShouldRetry(e *request.Execution, err error) bool
}

// The PredicateFunc type is an adapter to allow the use of ordinary
// functions as retry predicates. It also provides the logical
// composition methods And and Or.
type PredicateFunc func(e *request.Execution, err error) bool

// ShouldRetry returns f(e, err).
func (f PredicateFunc) ShouldRetry(e *request.Execution, err error) bool {
	return f(e, err)
}

// And composes f and g into a predicate which is true only if both
// are. g is not evaluated if f returns false.
func (f PredicateFunc) And(g PredicateFunc) PredicateFunc {
	return func(e *request.Execution, err error) bool {
		return f(e, err) && g(e, err)
	}
}

// Or composes f and g into a predicate which is true if either is. g
// is not evaluated if f returns true.
func (f PredicateFunc) Or(g PredicateFunc) PredicateFunc {
	return func(e *request.Execution, err error) bool {
		return f(e, err) || g(e, err)
	}
}

// Methods returns a predicate that is true when the request method is
// one of methods, compared case-insensitively.
func Methods(methods ...string) PredicateFunc {
	ms := make(map[string]bool, len(methods))
	for _, m := range methods {
		ms[strings.ToUpper(m)] = true
	}
	return func(e *request.Execution, _ error) bool {
		return ms[strings.ToUpper(e.Method())]
	}
}

// Matching returns a predicate that is true when the error matches one
// of kinds.
func Matching(kinds ...Kind) PredicateFunc {
	ks := append([]Kind(nil), kinds...)
	return func(_ *request.Execution, err error) bool {
		for _, k := range ks {
			if k.Match(err) {
				return true
			}
		}
		return false
	}
}

// Before returns a predicate that is true while the execution has run
// for less than d.
func Before(d time.Duration) PredicateFunc {
	return func(e *request.Execution, _ error) bool {
		return e.Duration() < d
	}
}

// Header returns a predicate that is true when the request carries the
// named header, such as an idempotency key.
func Header(name string) PredicateFunc {
	return func(e *request.Execution, _ error) bool {
		return e.Plan != nil && e.Plan.Header.Get(name) != ""
	}
}
