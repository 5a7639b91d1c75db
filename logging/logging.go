// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package logging logs the retry loop with zerolog.
//
// Install the handlers on the HandlerGroup of a Client or Middleware:
//
//	logger, _ := logging.New(os.Stderr, "debug", false)
//	handlers := &httpretry.HandlerGroup{}
//	logging.Install(handlers, logger)
//
// Attempts are logged at debug level, failed attempts at warn level, and
// the outcome of each logical request at info or error level.
package logging

import (
	"io"
	"time"

	"github.com/gogama/httpretry"
	"github.com/gogama/httpretry/request"
	"github.com/rs/zerolog"
)

// New returns a logger writing to w at the named level. If pretty is
// true, entries are written as human-readable console lines instead of
// JSON.
func New(w io.Writer, level string, pretty bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// Install pushes logging handlers onto g.
func Install(g *httpretry.HandlerGroup, logger zerolog.Logger) {
	l := &handler{logger: logger}
	g.PushBack(httpretry.BeforeAttempt, httpretry.HandlerFunc(l.beforeAttempt))
	g.PushBack(httpretry.AfterAttempt, httpretry.HandlerFunc(l.afterAttempt))
	g.PushBack(httpretry.AfterPlanTimeout, httpretry.HandlerFunc(l.afterPlanTimeout))
	g.PushBack(httpretry.AfterExecutionEnd, httpretry.HandlerFunc(l.afterExecutionEnd))
}

type handler struct {
	logger zerolog.Logger
}

func (l *handler) with(evt *zerolog.Event, e *request.Execution) *zerolog.Event {
	evt = evt.Str("id", e.ID).
		Str("method", e.Method()).
		Int("attempt", e.Attempt)
	if e.Plan != nil && e.Plan.URL != nil {
		evt = evt.Str("url", e.Plan.URL.Redacted())
	}
	return evt
}

func (l *handler) beforeAttempt(_ httpretry.Event, e *request.Execution) {
	l.with(l.logger.Debug(), e).Msg("attempt starting")
}

func (l *handler) afterAttempt(_ httpretry.Event, e *request.Execution) {
	if e.Err == nil {
		l.with(l.logger.Debug(), e).
			Int("status", e.StatusCode()).
			Msg("attempt succeeded")
		return
	}
	evt := l.with(l.logger.Warn(), e).
		Err(e.Err).
		Stringer("verdict", e.Verdict).
		Bool("timeout", e.Timeout())
	if e.Verdict == request.Retry {
		evt = evt.Dur("wait", e.Wait)
	}
	evt.Msg("attempt failed")
}

func (l *handler) afterPlanTimeout(_ httpretry.Event, e *request.Execution) {
	l.with(l.logger.Warn(), e).
		Dur("elapsed", e.Duration()).
		Msg("plan deadline exceeded")
}

func (l *handler) afterExecutionEnd(_ httpretry.Event, e *request.Execution) {
	var evt *zerolog.Event
	if e.Err == nil {
		evt = l.logger.Info()
	} else {
		evt = l.logger.Error().Err(e.Err)
	}
	l.with(evt, e).
		Int("attempts", e.Attempt+1).
		Stringer("verdict", e.Verdict).
		Int("status", e.StatusCode()).
		Dur("duration", e.Duration()).
		Msg("request finished")
}
