// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package tracing records each logical request as an OpenTelemetry
// span. Attempts and retry waits become events on the span, so a trace
// shows how long the request spent waiting between attempts.
package tracing

import (
	"context"

	"github.com/gogama/httpretry"
	"github.com/gogama/httpretry/request"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/gogama/httpretry"
	// SpanName is the name of the span recorded for each logical
	// request.
	SpanName = "httpretry.execution"
)

type spanKey struct{}

// Install pushes tracing handlers onto g. Spans are created with a
// tracer from tp, or from the global tracer provider if tp is nil.
//
// The span is a child of any span in the plan context. The plan of the
// execution is replaced with a copy whose context carries the span, so
// attempt requests, and any spans an instrumented HTTPDoer starts for
// them, are children of the execution span.
func Install(g *httpretry.HandlerGroup, tp trace.TracerProvider) {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	h := &handler{tracer: tp.Tracer(tracerName)}
	g.PushBack(httpretry.BeforeExecutionStart, httpretry.HandlerFunc(h.start))
	g.PushBack(httpretry.AfterAttempt, httpretry.HandlerFunc(h.afterAttempt))
	g.PushBack(httpretry.BeforeRetryWait, httpretry.HandlerFunc(h.beforeRetryWait))
	g.PushBack(httpretry.AfterExecutionEnd, httpretry.HandlerFunc(h.end))
}

// SpanFromExecution returns the span recording e, or a no-op span if
// there is none.
func SpanFromExecution(e *request.Execution) trace.Span {
	if span, ok := e.Value(spanKey{}).(trace.Span); ok {
		return span
	}
	return trace.SpanFromContext(context.Background())
}

type handler struct {
	tracer trace.Tracer
}

func (h *handler) start(_ httpretry.Event, e *request.Execution) {
	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", e.Method()),
		attribute.String("httpretry.id", e.ID),
	}
	if e.Plan != nil && e.Plan.URL != nil {
		attrs = append(attrs, attribute.String("url.full", e.Plan.URL.Redacted()))
	}
	ctx, span := h.tracer.Start(e.Context(), SpanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	e.SetValue(spanKey{}, span)
	if e.Plan != nil {
		e.Plan = e.Plan.WithContext(ctx)
	}
}

func (h *handler) afterAttempt(_ httpretry.Event, e *request.Execution) {
	span := SpanFromExecution(e)
	attrs := []attribute.KeyValue{
		attribute.Int("httpretry.attempt", e.Attempt),
		attribute.String("httpretry.verdict", e.Verdict.String()),
	}
	if code := e.StatusCode(); code != 0 {
		attrs = append(attrs, attribute.Int("http.response.status_code", code))
	}
	if e.Err != nil {
		attrs = append(attrs,
			attribute.String("error.message", e.Err.Error()),
			attribute.Bool("httpretry.timeout", e.Timeout()),
		)
	}
	span.AddEvent("attempt", trace.WithAttributes(attrs...))
}

func (h *handler) beforeRetryWait(_ httpretry.Event, e *request.Execution) {
	SpanFromExecution(e).AddEvent("retry_wait", trace.WithAttributes(
		attribute.Int64("httpretry.wait_ms", e.Wait.Milliseconds()),
	))
}

func (h *handler) end(_ httpretry.Event, e *request.Execution) {
	span := SpanFromExecution(e)
	span.SetAttributes(
		attribute.Int("httpretry.attempts", e.Attempt+1),
		attribute.String("httpretry.verdict", e.Verdict.String()),
	)
	if e.Err != nil {
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Err.Error())
	}
	span.End()
}
