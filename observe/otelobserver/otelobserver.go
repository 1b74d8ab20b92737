// Package otelobserver records failover invocations as OpenTelemetry spans.
//
// Each invocation becomes a span named "failover.invocation" with one child
// span per attempt.
package otelobserver

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/alternatefutures/package-cloud-sdk/failover"
	"github.com/alternatefutures/package-cloud-sdk/observe"
)

const instrumentationName = "github.com/alternatefutures/package-cloud-sdk/observe/otelobserver"

// Observer implements observe.Observer on top of a trace.Tracer.
type Observer struct {
	tracer trace.Tracer

	// Invocation spans keyed by invocation ID.
	spans sync.Map
}

// New returns an Observer using tp, or the global tracer provider if tp is nil.
func New(tp trace.TracerProvider) *Observer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Observer{tracer: tp.Tracer(instrumentationName)}
}

func (o *Observer) OnStart(ctx context.Context, tl observe.Timeline) {
	_, span := o.tracer.Start(ctx, "failover.invocation",
		trace.WithTimestamp(tl.Start),
		trace.WithAttributes(
			attribute.String("failover.invocation_id", tl.ID),
			attribute.StringSlice("failover.endpoints", tl.Endpoints),
		),
	)
	o.spans.Store(tl.ID, span)
}

func (o *Observer) OnAttempt(ctx context.Context, rec observe.AttemptRecord) {
	parent, ok := o.span(rec.InvocationID)
	if !ok {
		return
	}
	if rec.Retry == 0 && rec.Attempt > 1 {
		parent.AddEvent("failover", trace.WithTimestamp(rec.StartTime), trace.WithAttributes(
			attribute.String("failover.endpoint", rec.Endpoint),
		))
	}

	_, span := o.tracer.Start(trace.ContextWithSpan(ctx, parent), "failover.attempt",
		trace.WithTimestamp(rec.StartTime),
		trace.WithAttributes(
			attribute.String("failover.endpoint", rec.Endpoint),
			attribute.Int("failover.attempt", rec.Attempt),
			attribute.Int("failover.retry", rec.Retry),
		),
	)
	if rec.Err != nil {
		span.RecordError(rec.Err)
		span.SetStatus(codes.Error, rec.Err.Error())
		span.SetAttributes(attribute.Bool("failover.timeout", rec.Timeout))
	}
	if rec.Delay > 0 {
		span.SetAttributes(attribute.Int64("failover.retry_delay_ms", rec.Delay.Milliseconds()))
	}
	span.End(trace.WithTimestamp(rec.EndTime))
}

func (o *Observer) OnFailover(context.Context, string, string) {}

func (o *Observer) OnSuccess(_ context.Context, tl observe.Timeline) {
	span, ok := o.take(tl.ID)
	if !ok {
		return
	}
	span.SetAttributes(
		attribute.String("failover.selected_endpoint", tl.Endpoint),
		attribute.Int("failover.attempts", len(tl.Attempts)),
	)
	span.SetStatus(codes.Ok, "")
	span.End(trace.WithTimestamp(tl.End))
}

func (o *Observer) OnFailure(_ context.Context, tl observe.Timeline) {
	span, ok := o.take(tl.ID)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int("failover.attempts", len(tl.Attempts)))
	var cerr *failover.CancelledError
	span.SetAttributes(attribute.Bool("failover.cancelled", errors.As(tl.FinalErr, &cerr)))
	if tl.FinalErr != nil {
		span.RecordError(tl.FinalErr)
		span.SetStatus(codes.Error, tl.FinalErr.Error())
	}
	span.End(trace.WithTimestamp(tl.End))
}

func (o *Observer) span(id string) (trace.Span, bool) {
	v, ok := o.spans.Load(id)
	if !ok {
		return nil, false
	}
	return v.(trace.Span), true
}

func (o *Observer) take(id string) (trace.Span, bool) {
	v, ok := o.spans.LoadAndDelete(id)
	if !ok {
		return nil, false
	}
	return v.(trace.Span), true
}
