// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package retry holds the retry decision engine and backoff calculator
// used by the httpretry middleware.
//
// A Policy is immutable once built and safe for concurrent use by any
// number of requests. Build one with options:
//
//	policy := retry.New(
//		retry.WithMax(3),
//		retry.WithInterval(100*time.Millisecond),
//		retry.WithBackoffFactor(2),
//		retry.WithIntervalRandomness(0.5),
//	)
//
// or, in the legacy form, from the retry budget alone:
//
//	policy := retry.NewMax(1)
//
// After a failed attempt the middleware asks the policy for a Verdict
// with Decide, and for the wait before the next attempt with Amount.
//
// Which errors are worth a retry is decided by Kind matchers (Timeout by
// default). Which requests may be resent is decided by the idempotency
// rule: GET requests are retried by default, every other method only if
// a Predicate installed with WithRetryIf says so.
//
// A Config is the plain-data form of a Policy, suitable for loading from
// files and environment variables.
package retry
