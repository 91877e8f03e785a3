package otel

import (
	"context"
	"sync"

	buildid "github.com/schemabus/schemabus/buildid"
	eventbus "github.com/schemabus/schemabus/eventbus"
	events "github.com/schemabus/schemabus/events"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithInsecure()))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	sub := &subscriber{tracer: otel.Tracer("schemabus")}
	sub.register()

	return tp.Shutdown, nil
}

type subscriber struct {
	tracer     trace.Tracer
	buildSpans sync.Map // build id -> trace.Span
	phaseSpans sync.Map // build id -> trace.Span
}

func (s *subscriber) register() {
	eventbus.Subscribe(func(ctx context.Context, e events.BuildStart) {
		bid, _ := buildid.FromContext(ctx)
		_, span := s.tracer.Start(ctx, "schema.build")
		span.SetAttributes(attribute.String("schema.build.kind", e.Kind))
		s.buildSpans.Store(bid, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.BuildFinish) {
		bid, _ := buildid.FromContext(ctx)
		v, ok := s.buildSpans.LoadAndDelete(bid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.PhaseStart) {
		bid, _ := buildid.FromContext(ctx)
		parent := ctx
		if v, ok := s.buildSpans.Load(bid); ok {
			parent = trace.ContextWithSpan(ctx, v.(trace.Span))
		}
		_, span := s.tracer.Start(parent, "schema.phase")
		span.SetAttributes(attribute.String("schema.phase.name", e.Phase))
		s.phaseSpans.Store(bid, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.PhaseFinish) {
		bid, _ := buildid.FromContext(ctx)
		v, ok := s.phaseSpans.LoadAndDelete(bid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.DuplicateDeclaration) {
		attrs := trace.WithAttributes(
			attribute.String("declaration.category", e.Category),
			attribute.String("declaration.name", e.Name),
		)
		if bid, ok := buildid.FromContext(ctx); ok {
			if v, ok := s.buildSpans.Load(bid); ok {
				v.(trace.Span).AddEvent("duplicate declaration", attrs)
				return
			}
		}
		// Advisories fire during registration, outside any build span.
		_, span := s.tracer.Start(ctx, "schema.duplicate_declaration", attrs)
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.RemoteSourceWrapped) {
		bid, _ := buildid.FromContext(ctx)
		v, ok := s.buildSpans.Load(bid)
		if !ok {
			return
		}
		v.(trace.Span).AddEvent("remote source wrapped", trace.WithAttributes(
			attribute.String("remote.name", e.Name),
			attribute.Int64("remote.wrap_ms", e.Duration.Milliseconds()),
		))
	})
}
