// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"net/http"
	urlpkg "net/url"
)

// A Snapshot is a frozen copy of the replayable parts of a Plan:
// method, URL, header, body, host and the close flag. It also records
// which Plan was captured and the context it carried.
//
// A Snapshot owns its data. Nothing done to the original Plan after
// Capture, including writes into the body slice, is visible through it.
type Snapshot struct {
	plan   *Plan
	ctx    context.Context
	method string
	url    *urlpkg.URL
	header http.Header
	body   []byte
	host   string
	close  bool
}

// Capture takes a snapshot of p.
func Capture(p *Plan) Snapshot {
	return Snapshot{
		plan:   p,
		ctx:    p.ctx,
		method: p.Method,
		url:    cloneURL(p.URL),
		header: p.Header.Clone(),
		body:   cloneBytes(p.Body),
		host:   p.Host,
		close:  p.Close,
	}
}

// Body returns a fresh copy of the captured body.
func (s Snapshot) Body() []byte {
	return cloneBytes(s.body)
}

// Restore points e back at the captured plan, even if the plan of e
// was replaced or cleared, and resets that plan to the captured state
// and context. The plan gets fresh copies so that the next attempt may
// mutate them freely.
func (s Snapshot) Restore(e *Execution) {
	p := s.plan
	if p == nil {
		p = &Plan{}
	}
	e.Plan = p
	p.ctx = s.ctx
	p.Method = s.method
	p.URL = cloneURL(s.url)
	p.Header = s.header.Clone()
	p.Body = cloneBytes(s.body)
	p.Host = s.host
	p.Close = s.close
}

func cloneURL(u *urlpkg.URL) *urlpkg.URL {
	if u == nil {
		return nil
	}
	u2 := new(urlpkg.URL)
	*u2 = *u
	if u.User != nil {
		u2.User = new(urlpkg.Userinfo)
		*u2.User = *u.User
	}
	return u2
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	b2 := make([]byte, len(b))
	copy(b2, b)
	return b2
}
