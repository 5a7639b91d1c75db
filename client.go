// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpretry

import (
	"net/url"

	"github.com/gogama/httpretry/request"
	"github.com/gogama/httpretry/retry"
	"github.com/gogama/httpretry/timeout"
)

// A Client is an HTTP client which retries failed requests. It is a
// Middleware in front of a Transport, assembled from one set of
// fields.
//
// The zero value is a usable client: it sends requests with
// http.DefaultClient, sets a five second timeout on each attempt, and
// retries timed out GET requests twice without waiting.
//
// Clients are safe for concurrent use by multiple goroutines provided
// the HTTPDoer and any installed handlers are.
type Client struct {
	// HTTPDoer specifies the mechanics of sending HTTP requests and
	// receiving responses.
	//
	// If HTTPDoer is nil, http.DefaultClient from the standard net/http
	// package is used.
	HTTPDoer HTTPDoer
	// RetryPolicy decides when to retry failed attempts and how long
	// to wait before retrying.
	//
	// If RetryPolicy is nil, retry.DefaultPolicy is used.
	RetryPolicy *retry.Policy
	// TimeoutPolicy specifies how to set timeouts on individual request
	// attempts.
	//
	// If TimeoutPolicy is nil, timeout.DefaultPolicy is used.
	TimeoutPolicy timeout.Policy
	// Handlers allows custom handler chains to be invoked when
	// designated events occur during execution of a request plan.
	//
	// If Handlers is nil, no custom handlers will be run.
	Handlers *HandlerGroup
	// FailStatus lists response status codes which count as failed
	// attempts. See Transport.FailStatus.
	FailStatus []int
}

// Do executes an HTTP request plan and returns the results, following
// the retry and timeout policies set on Client.
//
// The result returned is the result of the final attempt. An error is
// returned if the final attempt failed, or if the plan context ended
// while waiting to retry. A non-2XX status code does not result in an
// error unless it is listed in FailStatus.
//
// The returned Execution is never nil. If the returned error is nil,
// the Execution contains a non-nil Response and a non-nil Body
// (although Body may have zero length).
//
// Errors from attempts are of type *url.Error. An error caused by the
// plan context ending during a wait is the bare context error.
func (c *Client) Do(p *request.Plan) (*request.Execution, error) {
	m := Middleware{
		Policy:   c.RetryPolicy,
		Next:     c.transport(),
		Handlers: c.Handlers,
	}
	return m.Do(p)
}

// Get issues a GET to the specified URL, using the same policies
// followed by Do.
//
// To make a request plan with custom headers, use request.NewPlan and
// Client.Do.
func (c *Client) Get(url string) (*request.Execution, error) {
	return Get(c, url)
}

// Head issues a HEAD to the specified URL, using the same policies
// followed by Do.
func (c *Client) Head(url string) (*request.Execution, error) {
	return Head(c, url)
}

// Post issues a POST to the specified URL, using the same policies
// followed by Do.
//
// The body parameter may be nil for an empty body, or may be any of the
// types supported by request.BodyBytes, namely: string; []byte;
// io.Reader; and io.ReadCloser.
//
// POST is not idempotent, so it is only retried if the retry policy
// has a predicate that allows it.
func (c *Client) Post(url, contentType string, body interface{}) (*request.Execution, error) {
	return Post(c, url, contentType, body)
}

// PostForm issues a POST to the specified URL, with data's keys and
// values URL-encoded as the request body.
func (c *Client) PostForm(url string, data url.Values) (*request.Execution, error) {
	return PostForm(c, url, data)
}

// CloseIdleConnections invokes the same method on the client's
// underlying HTTPDoer.
//
// If the HTTPDoer has no CloseIdleConnections method, this method does
// nothing.
func (c *Client) CloseIdleConnections() {
	c.transport().CloseIdleConnections()
}

func (c *Client) transport() *Transport {
	return &Transport{
		HTTPDoer:      c.HTTPDoer,
		TimeoutPolicy: c.TimeoutPolicy,
		FailStatus:    c.FailStatus,
	}
}
