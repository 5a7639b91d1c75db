// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpretry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gogama/httpretry/request"
	"github.com/gogama/httpretry/timeout"
)

// An HTTPDoer implements a Do method in the same manner as the GoLang
// standard library http.Client from the net/http package.
type HTTPDoer interface {
	// Do sends an HTTP request and returns an HTTP response following
	// policy (such as redirects, cookies, auth) configured on the
	// HTTPDoer.
	//
	// The Do method must follow the contract documented on the GoLang
	// standard library http.Client from the net/http package.
	Do(r *http.Request) (*http.Response, error)
}

// A Transport is an Attempter that sends each attempt as one HTTP
// request through an HTTPDoer and buffers the whole response body into
// the execution.
//
// A Transport is safe for concurrent use if its HTTPDoer is.
type Transport struct {
	// HTTPDoer specifies the mechanics of sending HTTP requests and
	// receiving responses.
	//
	// If HTTPDoer is nil, http.DefaultClient from the standard net/http
	// package is used.
	HTTPDoer HTTPDoer
	// TimeoutPolicy specifies how to set timeouts on individual
	// attempts.
	//
	// If TimeoutPolicy is nil, timeout.DefaultPolicy is used.
	TimeoutPolicy timeout.Policy
	// FailStatus lists response status codes which make an attempt
	// fail with a *StatusError even though HTTP was spoken
	// successfully. Use retry.Status to make such failures retryable.
	//
	// If FailStatus is empty, every response is a success.
	FailStatus []int
}

// Attempt sends e.Plan once. On success e.Request, e.Response and
// e.Body are set. Any error is a *url.Error.
//
// If an error occurred while sending, e.Response and e.Body are nil. If
// it occurred while reading the body, e.Response is set and e.Body is
// nil. If the status code is listed in FailStatus, both are set and the
// error wraps a *StatusError.
func (t *Transport) Attempt(e *request.Execution) error {
	p := e.Plan
	ctx, cancel := context.WithTimeout(p.Context(), t.timeoutPolicy().Timeout(e))
	defer cancel()
	e.Request = p.ToRequest(ctx)
	resp, err := t.doer().Do(e.Request)
	if err != nil {
		return urlErrorWrap(p, err)
	}
	e.Response = resp
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return urlErrorWrap(p, err)
	}
	e.Body = body
	if t.fails(resp.StatusCode) {
		return urlErrorWrap(p, &StatusError{Code: resp.StatusCode})
	}
	return nil
}

// CloseIdleConnections invokes the same method on the underlying
// HTTPDoer, if it has one.
func (t *Transport) CloseIdleConnections() {
	if ic, ok := t.doer().(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

func (t *Transport) fails(code int) bool {
	for _, c := range t.FailStatus {
		if c == code {
			return true
		}
	}
	return false
}

func (t *Transport) doer() HTTPDoer {
	if t.HTTPDoer == nil {
		return http.DefaultClient
	}
	return t.HTTPDoer
}

func (t *Transport) timeoutPolicy() timeout.Policy {
	if t.TimeoutPolicy == nil {
		return timeout.DefaultPolicy
	}
	return t.TimeoutPolicy
}

// A StatusError reports a response whose status code was configured as
// a failure. The response itself remains available on the execution.
type StatusError struct {
	Code int
}

// Error returns a message naming the status code.
func (err *StatusError) Error() string {
	return fmt.Sprintf("httpretry: response status %d %s", err.Code, http.StatusText(err.Code))
}

// StatusCode returns the failing status code. It lets retry.Status
// match the error.
func (err *StatusError) StatusCode() int {
	return err.Code
}

func urlErrorWrap(p *request.Plan, err error) error {
	if _, ok := err.(*url.Error); ok {
		return err
	}

	u := ""
	if p.URL != nil {
		u = p.URL.String()
	}
	return &url.Error{
		Op:  urlErrorOp(p.Method),
		URL: u,
		Err: err,
	}
}

// urlErrorOp follows the op naming of net/http/client.go.
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}
