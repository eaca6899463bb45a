package observe

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-go/trackstore/pkg/store"
)

const defaultTracerName = "github.com/vango-go/trackstore"

// TracingConfig configures the OpenTelemetry observer.
type TracingConfig struct {
	// TracerName is the name of the tracer.
	TracerName string

	// Provider supplies the tracer. Default: the global provider.
	Provider trace.TracerProvider

	// Filter determines which actions to trace. If nil, all actions are traced.
	Filter func(storeID, action string) bool
}

// TracingOption configures the OpenTelemetry observer.
type TracingOption func(*TracingConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracingOption {
	return func(c *TracingConfig) {
		c.Provider = tp
	}
}

// WithActionFilter sets a filter function for actions.
func WithActionFilter(filter func(storeID, action string) bool) TracingOption {
	return func(c *TracingConfig) {
		c.Filter = filter
	}
}

// Tracing is a store.Observer that records one span per action.
//
// Spans are named "trackstore.<action>" and carry the store ID, action name,
// flush stats and, for failures, the error. The span is a child of whatever
// span the context passed to Dispatch carries.
type Tracing struct {
	tracer trace.Tracer
	filter func(storeID, action string) bool
}

// spanKey marks spans started by Tracing, so AfterAction never ends a span
// it did not start.
type spanKey struct{}

// NewTracing creates the OpenTelemetry observer.
func NewTracing(opts ...TracingOption) *Tracing {
	config := TracingConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}

	tp := config.Provider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Tracing{
		tracer: tp.Tracer(config.TracerName),
		filter: config.Filter,
	}
}

// BeforeAction implements store.Observer.
func (t *Tracing) BeforeAction(ctx context.Context, storeID, action string) context.Context {
	if t.filter != nil && !t.filter(storeID, action) {
		return ctx
	}

	ctx, span := t.tracer.Start(ctx, "trackstore."+action,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("trackstore.store", storeID),
			attribute.String("trackstore.action", action),
		),
	)
	return context.WithValue(ctx, spanKey{}, span)
}

// AfterAction implements store.Observer.
func (t *Tracing) AfterAction(ctx context.Context, ev store.ActionEvent) {
	span, ok := ctx.Value(spanKey{}).(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	span.SetAttributes(
		attribute.Int("trackstore.changed", ev.Flush.Changed),
		attribute.Int("trackstore.notified", ev.Flush.Notified),
	)

	switch {
	case ev.Panicked:
		span.SetStatus(codes.Error, "action panicked")
	case ev.Err != nil:
		span.RecordError(ev.Err)
		span.SetStatus(codes.Error, ev.Err.Error())
	default:
		span.SetStatus(codes.Ok, "")
	}
}
