// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"errors"

	"github.com/gogama/httpretry/transient"
)

// A Kind identifies a family of errors that may be worth retrying.
// A Policy only considers a retry when the error matches one of its
// kinds.
//
// Implementations must be safe for concurrent use.
type Kind interface {
	Match(err error) bool
}

// KindFunc adapts an ordinary function to the Kind interface. The
// function is never called with a nil error.
type KindFunc func(err error) bool

// Match reports whether err belongs to the kind.
func (f KindFunc) Match(err error) bool {
	return err != nil && f(err)
}

var (
	// Timeout matches timeouts, as categorized by the transient package.
	Timeout = Category(transient.Timeout)
	// ConnReset matches connection resets.
	ConnReset = Category(transient.ConnReset)
	// ConnRefused matches refused connections.
	ConnRefused = Category(transient.ConnRefused)
	// Transient matches every transient error.
	Transient Kind = KindFunc(transient.Is)
	// AnyError matches every non-nil error.
	AnyError Kind = KindFunc(func(error) bool { return true })
)

// Category returns a Kind matching errors of transience category c.
func Category(c transient.Category) Kind {
	return KindFunc(func(err error) bool {
		return transient.Categorize(err) == c
	})
}

// Is returns a Kind matching errors for which errors.Is reports true
// against any of targets.
func Is(targets ...error) Kind {
	ts := append([]error(nil), targets...)
	return KindFunc(func(err error) bool {
		for _, t := range ts {
			if errors.Is(err, t) {
				return true
			}
		}
		return false
	})
}

// As returns a Kind matching errors that have an error of type T in
// their chain.
func As[T error]() Kind {
	return KindFunc(func(err error) bool {
		var target T
		return errors.As(err, &target)
	})
}

type statusCoder interface {
	StatusCode() int
}

// Status returns a Kind matching errors that carry one of the given
// HTTP status codes, through a StatusCode() int method anywhere in the
// error chain. The httpretry transport raises such errors for response
// codes it is told to treat as failures.
func Status(codes ...int) Kind {
	cs := append([]int(nil), codes...)
	return KindFunc(func(err error) bool {
		var sc statusCoder
		if !errors.As(err, &sc) {
			return false
		}
		for _, c := range cs {
			if sc.StatusCode() == c {
				return true
			}
		}
		return false
	})
}
