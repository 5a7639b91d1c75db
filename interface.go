// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpretry

import (
	"net/http"
	"net/url"

	"github.com/gogama/httpretry/request"
)

// Doer is the interface that wraps the basic Do method.
//
// Do executes a request plan, retrying as its policy allows, and
// returns the final execution state and error. Client and Middleware
// both implement Doer.
type Doer interface {
	Do(p *request.Plan) (*request.Execution, error)
}

// Getter is the interface that wraps the basic Get method.
type Getter interface {
	Get(url string) (*request.Execution, error)
}

// Header is the interface that wraps the basic Head method.
type Header interface {
	Head(url string) (*request.Execution, error)
}

// Poster is the interface that wraps the basic Post method.
//
// The body may be nil or any type accepted by request.BodyBytes.
type Poster interface {
	Post(url, contentType string, body interface{}) (*request.Execution, error)
}

// FormPoster is the interface that wraps the basic PostForm method.
type FormPoster interface {
	PostForm(url string, data url.Values) (*request.Execution, error)
}

// IdleCloser is the interface that wraps the basic
// CloseIdleConnections method. Implementations with no idle
// connections to close do nothing.
type IdleCloser interface {
	CloseIdleConnections()
}

// Executor groups Doer with the convenience methods a Client offers.
// Inflate turns any Doer into an Executor.
type Executor interface {
	Doer
	Getter
	Header
	Poster
	FormPoster
	IdleCloser
}

// Get builds a GET plan for url and executes it with d.
func Get(d Doer, url string) (*request.Execution, error) {
	return do(d, http.MethodGet, url, "", nil)
}

// Head builds a HEAD plan for url and executes it with d.
func Head(d Doer, url string) (*request.Execution, error) {
	return do(d, http.MethodHead, url, "", nil)
}

// Post builds a POST plan for url with the given content type and body
// and executes it with d. The body may be nil or any type accepted by
// request.BodyBytes.
//
// Unless the retry policy of d has a predicate that allows it, a POST
// is never retried.
func Post(d Doer, url, contentType string, body interface{}) (*request.Execution, error) {
	return do(d, http.MethodPost, url, contentType, body)
}

// PostForm posts the URL-encoded form data to url with d, setting the
// Content-Type header to application/x-www-form-urlencoded.
func PostForm(d Doer, url string, data url.Values) (*request.Execution, error) {
	return Post(d, url, "application/x-www-form-urlencoded", data.Encode())
}

func do(d Doer, method, url, contentType string, body interface{}) (*request.Execution, error) {
	p, err := request.NewPlan(method, url, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		p.Header.Set("Content-Type", contentType)
	}
	return d.Do(p)
}

// Inflate converts any non-nil Doer into an Executor. If d already is
// an Executor, it is returned unchanged.
func Inflate(d Doer) Executor {
	if d == nil {
		panic("httpretry: nil doer")
	}

	if e, ok := d.(Executor); ok {
		return e
	}

	return inflated{d}
}

type inflated struct {
	Doer
}

func (i inflated) Get(url string) (*request.Execution, error) {
	return Get(i.Doer, url)
}

func (i inflated) Head(url string) (*request.Execution, error) {
	return Head(i.Doer, url)
}

func (i inflated) Post(url, contentType string, body interface{}) (*request.Execution, error) {
	return Post(i.Doer, url, contentType, body)
}

func (i inflated) PostForm(url string, data url.Values) (*request.Execution, error) {
	return PostForm(i.Doer, url, data)
}

func (i inflated) CloseIdleConnections() {
	if ic, ok := i.Doer.(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}
