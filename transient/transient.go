// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"errors"
	"syscall"
)

// A Category is the transience category of an error, as reported by
// Categorize.
//
// Not means a retry after the error is very unlikely to succeed. Every
// other category means a retry has some prospect of success.
type Category int

const (
	// Not indicates a nil or non-transient error.
	Not Category = iota
	// Timeout indicates a client-side timeout: the error, or one of the
	// errors it wraps, has a Timeout method reporting true. This covers
	// syscall.ETIMEDOUT, context.DeadlineExceeded, and net/http client
	// timeouts.
	Timeout
	// ConnRefused indicates the remote host refused the connection
	// (syscall.ECONNREFUSED). A service that is starting or restarting
	// refuses connections for a short time, so this is transient.
	ConnRefused
	// ConnReset indicates the remote host sent an RST on an active TCP
	// connection (syscall.ECONNRESET). This often happens when a load
	// balancer or a badly drained backend drops in-flight requests.
	ConnReset
)

var categoryNames = []string{
	"not",
	"timeout",
	"conn_refused",
	"conn_reset",
}

// String returns the snake-case name of the category, which is also the
// label value used by the metrics package.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// Categorize returns the transience category of err.
//
// Categorize looks through the whole chain of wrapped errors. A timeout
// anywhere in the chain wins over a connection errno. Temporary methods
// are ignored because their meaning was never well defined.
func Categorize(err error) Category {
	if err == nil {
		return Not
	}

	var hasTimeout hasTimeout
	if errors.As(err, &hasTimeout) && hasTimeout.Timeout() {
		return Timeout
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNRESET:
			return ConnReset
		case syscall.ECONNREFUSED:
			return ConnRefused
		}
	}

	return Not
}

// Is reports whether err is transient, that is whether Categorize
// returns anything other than Not.
func Is(err error) bool {
	return Categorize(err) != Not
}

type hasTimeout interface {
	Timeout() bool
}
