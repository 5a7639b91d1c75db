// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request contains the state shared between the retry middleware,
the next handler it wraps, and any retry predicate or event handler.

A Plan is a replayable description of one logical HTTP request: method,
URL, headers and a pre-buffered []byte body. Because the body is held in
memory it can be resent, byte for byte, on every attempt.

	p, err := request.NewPlan("POST", "https://example.com/orders", body)

An Execution is the mutable request context of one run of a Plan through
the middleware. The next handler fills in its response slots (Response,
Body, Err); predicates and event handlers read them. Nothing on an
Execution is shared with other requests.

A Snapshot freezes a Plan before the first attempt. Restoring it before
every retry undoes whatever a failed attempt did to the plan, whether it
reassigned fields or wrote into the body bytes in place.

	snap := request.Capture(e.Plan)
	...
	snap.Restore(e)
*/
package request
