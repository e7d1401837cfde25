package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/hanpama/restql/internal/eventbus"
	"github.com/hanpama/restql/internal/events"
	"github.com/hanpama/restql/internal/reqid"
)

const instrumentation = "github.com/hanpama/restql"

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure())
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
	detach := Attach(tp)

	return func(ctx context.Context) error {
		detach()
		return tp.Shutdown(ctx)
	}, nil
}

// Attach turns lifecycle events on the global bus into spans from tp.
// Spans nest by request ID: http.request, then restql.select and
// source.fetch, then grpc.client.
func Attach(tp trace.TracerProvider) (detach func()) {
	s := &subscriber{tracer: tp.Tracer(instrumentation)}
	return s.register()
}

type subscriber struct {
	tracer     trace.Tracer
	httpSpans  sync.Map // rid -> trace.Span
	fetchSpans sync.Map // rid -> trace.Span
	selSpans   sync.Map // rid -> trace.Span
	grpcSpans  sync.Map // rid -> trace.Span
}

// start opens a span named name under the innermost open span of the
// request, looked up in parents in order.
func (s *subscriber) start(ctx context.Context, into *sync.Map, name string, parents ...*sync.Map) trace.Span {
	rid, _ := reqid.FromContext(ctx)
	parent := ctx
	for _, m := range parents {
		if v, ok := m.Load(rid); ok {
			parent = trace.ContextWithSpan(ctx, v.(trace.Span))
			break
		}
	}
	_, span := s.tracer.Start(parent, name)
	into.Store(rid, span)
	return span
}

func (s *subscriber) finish(ctx context.Context, from *sync.Map, err error, attrs ...attribute.KeyValue) {
	rid, _ := reqid.FromContext(ctx)
	v, ok := from.LoadAndDelete(rid)
	if !ok {
		return
	}
	span := v.(trace.Span)
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *subscriber) register() func() {
	offs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPStart) {
			span := s.start(ctx, &s.httpSpans, "http.request")
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				attribute.String("http.target", e.Request.URL.Path),
			)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			s.finish(ctx, &s.httpSpans, nil, semconv.HTTPStatusCodeKey.Int(e.Status))
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.SourceFetchStart) {
			span := s.start(ctx, &s.fetchSpans, "source.fetch", &s.httpSpans)
			span.SetAttributes(
				attribute.String("restql.source", e.Source),
				attribute.String("restql.key", e.Key),
			)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.SourceFetchFinish) {
			s.finish(ctx, &s.fetchSpans, e.Err)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.SelectionStart) {
			span := s.start(ctx, &s.selSpans, "restql.select", &s.httpSpans)
			span.SetAttributes(
				attribute.String("restql.source", e.Source),
				attribute.StringSlice("restql.fields", e.Fields),
			)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.SelectionFinish) {
			s.finish(ctx, &s.selSpans, e.Err)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GRPCClientStart) {
			span := s.start(ctx, &s.grpcSpans, "grpc.client", &s.fetchSpans, &s.httpSpans)
			span.SetAttributes(
				semconv.RPCServiceKey.String(e.Service),
				semconv.RPCMethodKey.String(e.Method),
				attribute.String("net.peer.name", e.Endpoint),
			)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GRPCClientFinish) {
			s.finish(ctx, &s.grpcSpans, e.Err, attribute.String("grpc.code", e.Code.String()))
		}),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}
