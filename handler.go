// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpretry

import (
	"github.com/gogama/httpretry/request"
)

// A HandlerGroup is a set of event handler chains, one chain per
// Event. Handlers run synchronously on the goroutine executing the
// request, in the order they were pushed.
//
// Install handlers before sharing the group between requests; PushBack
// is not safe to call concurrently with a running request.
type HandlerGroup struct {
	handlers [][]Handler
}

// PushBack adds h to the end of the chain for evt. It panics if h is
// nil or evt is not a valid event.
func (g *HandlerGroup) PushBack(evt Event, h Handler) {
	if h == nil {
		panic("httpretry: nil handler")
	}
	if evt < 0 || int(evt) >= numEvents {
		panic("httpretry: invalid event")
	}

	if g.handlers == nil {
		g.handlers = make([][]Handler, numEvents)
	}

	g.handlers[evt] = append(g.handlers[evt], h)
}

func (g *HandlerGroup) run(evt Event, e *request.Execution) {
	if g == nil {
		return
	}
	i := int(evt)
	if i < len(g.handlers) {
		for _, h := range g.handlers[i] {
			h.Handle(evt, e)
		}
	}
}

// A Handler handles an event during a request execution.
type Handler interface {
	Handle(Event, *request.Execution)
}

// The HandlerFunc type is an adapter to allow the use of ordinary
// functions as event handlers.
type HandlerFunc func(Event, *request.Execution)

// Handle calls f(evt, e).
func (f HandlerFunc) Handle(evt Event, e *request.Execution) {
	f(evt, e)
}
