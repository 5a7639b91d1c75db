// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	urlpkg "net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

const nilCtxMsg = "httpretry/request: nil context"

// A Plan describes one logical HTTP request which the retry middleware
// may send several times.
//
// Plan mirrors the client-side fields of http.Request, except that the
// body is a pre-buffered []byte instead of a stream. A stream can only be
// read once; a []byte can be resent on every retry.
//
// The plan context governs the whole logical request, including the
// waits between attempts. Cancelling it stops the retry loop.
type Plan struct {
	// Method is the HTTP method. An empty string means GET.
	Method string

	// URL is the URL to access.
	URL *urlpkg.URL

	// Header holds the request header fields.
	Header http.Header

	// Body is the request body. Nil or empty means no body.
	Body []byte

	// Host optionally overrides the Host header. If empty, URL.Host is
	// used.
	Host string

	// Close asks the transport to close the connection after the
	// attempt, as if keep-alives were disabled.
	Close bool

	ctx context.Context
}

// NewPlan calls NewPlanWithContext with the background context.
func NewPlan(method, url string, body interface{}) (*Plan, error) {
	return NewPlanWithContext(context.Background(), method, url, body)
}

// NewPlanWithContext returns a new Plan for the given method, URL and
// optional body. The body may be any value accepted by BodyBytes.
func NewPlanWithContext(ctx context.Context, method, url string, body interface{}) (*Plan, error) {
	if ctx == nil {
		return nil, errors.New(nilCtxMsg)
	}
	if method == "" {
		method = http.MethodGet
	}
	if !validMethod(method) {
		return nil, fmt.Errorf("httpretry/request: invalid method %q", method)
	}
	u, err := urlpkg.Parse(url)
	if err != nil {
		return nil, err
	}
	u.Host = removeEmptyPort(u.Host)
	b, err := BodyBytes(body)
	if err != nil {
		return nil, err
	}
	return &Plan{
		ctx:    ctx,
		Method: method,
		URL:    u,
		Header: make(http.Header),
		Body:   b,
		Host:   u.Host,
	}, nil
}

// Context returns the plan context, or the background context if none
// was set.
func (p *Plan) Context() context.Context {
	if p.ctx != nil {
		return p.ctx
	}
	return context.Background()
}

// WithContext returns a shallow copy of p whose context is ctx. It
// panics if ctx is nil.
func (p *Plan) WithContext(ctx context.Context) *Plan {
	if ctx == nil {
		panic(nilCtxMsg)
	}
	p2 := new(Plan)
	*p2 = *p
	p2.ctx = ctx
	return p2
}

// AddCookie adds a cookie to the plan header. All cookies share a
// single Cookie header field, separated by semicolons. Only the name
// and value of c are used.
func (p *Plan) AddCookie(c *http.Cookie) {
	s := (&http.Cookie{Name: c.Name, Value: c.Value}).String()
	if h := p.Header.Get("Cookie"); h != "" {
		s = h + "; " + s
	}
	p.Header.Set("Cookie", s)
}

// SetBasicAuth sets the Authorization header of the plan to use HTTP
// Basic Authentication with the given username and password.
func (p *Plan) SetBasicAuth(username, password string) {
	auth := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	p.Header.Set("Authorization", "Basic "+auth)
}

// ToRequest builds the http.Request for one attempt of the plan. The
// request context is ctx, normally derived from the plan context with
// an attempt timeout added.
//
// The request body reads from p.Body without copying it, and GetBody is
// set so that net/http can replay the body on redirects.
func (p *Plan) ToRequest(ctx context.Context) *http.Request {
	r := &http.Request{
		Method:     p.Method,
		URL:        p.URL,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     p.Header,
		Host:       p.Host,
		Close:      p.Close,
	}
	if len(p.Body) > 0 {
		body := p.Body
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		r.ContentLength = int64(len(body))
	}
	return r.WithContext(ctx)
}

func validMethod(method string) bool {
	return strings.IndexFunc(method, func(r rune) bool {
		return !httpguts.IsTokenRune(r)
	}) == -1
}

// removeEmptyPort strips an empty ":port" suffix from host, as RFC 3986
// section 6.2.3 requires. url.Parse leaves it in place.
func removeEmptyPort(host string) string {
	if strings.LastIndex(host, ":") > strings.LastIndex(host, "]") {
		return strings.TrimSuffix(host, ":")
	}
	return host
}
