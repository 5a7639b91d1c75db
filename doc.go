// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package httpretry provides retry middleware for HTTP requests: a retry
loop that re-invokes the next handler when an attempt fails with a
retryable error, restoring the request between attempts and waiting
according to an exponential backoff schedule.

The simplest entry point is Client, which puts the middleware in front
of an HTTP transport.

	client := &httpretry.Client{}
	e, err := client.Get("https://www.example.com")
	...
	e, err := client.Post("https://www.example.com/upload",
		"application/json", &buf)

Configure retries with package retry. The policy below retries timed
out and reset GET requests up to three times, waiting 100ms, 200ms and
400ms, each plus up to half again of random jitter:

	policy := retry.New(
		retry.WithMax(3),
		retry.WithInterval(100*time.Millisecond),
		retry.WithBackoffFactor(2),
		retry.WithIntervalRandomness(0.5),
		retry.WithExceptions(retry.Timeout, retry.ConnReset),
	)
	client := &httpretry.Client{RetryPolicy: policy}

Only GET is retried by default. To retry other methods, give the policy
a predicate:

	retry.WithRetryIf(retry.Methods("PUT", "DELETE"))

The middleware does not depend on HTTP. Any Attempter can be the next
handler:

	m := &httpretry.Middleware{
		Policy: policy,
		Next: httpretry.AttemptFunc(func(e *request.Execution) error {
			...
		}),
	}
	e, err := m.Do(plan)

Install handlers in a HandlerGroup to observe the retry loop. Packages
logging, metrics and tracing provide ready-made handlers.

	handlers := &httpretry.HandlerGroup{}
	handlers.PushBack(httpretry.BeforeRetryWait, httpretry.HandlerFunc(
		func(_ httpretry.Event, e *request.Execution) {
			log.Printf("retrying %s in %s", e.ID, e.Wait)
		}))
*/
package httpretry
