// Package tracing sets up OpenTelemetry for the simulator. Spans go
// either to a Jaeger agent or, for offline runs, to a writer through the
// stdout exporter.
package tracing

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.14.0"
	"go.opentelemetry.io/otel/trace"

	db "lottery/debug"
)

const (
	SAMPLE_RATIO = 0.01
)

// Tracer is nil-safe: a nil *Tracer starts no spans.
type Tracer struct {
	t  trace.Tracer
	tp *sdktrace.TracerProvider
}

func (t *Tracer) StartContextSpan(ctx context.Context, name string, kvs ...attribute.KeyValue) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.t.Start(ctx, name, trace.WithAttributes(kvs...))
}

func (t *Tracer) StartTopLevelSpan(name string, kvs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.StartContextSpan(context.TODO(), name, kvs...)
}

// Flush forces all buffered spans out to the exporter.
func (t *Tracer) Flush() {
	if t == nil {
		return
	}
	if err := t.tp.ForceFlush(context.TODO()); err != nil {
		db.DPrintf(db.ERROR, "Error flushing traces %v", err)
	}
}

func (t *Tracer) Shutdown() error {
	if t == nil {
		return nil
	}
	return t.tp.Shutdown(context.TODO())
}

func newJaegerExporter(host string) (*jaeger.Exporter, error) {
	return jaeger.New(
		jaeger.WithAgentEndpoint(
			jaeger.WithAgentHost(host),
		),
	)
}

func newTracer(svcname string, exporter sdktrace.SpanExporter, sampler sdktrace.Sampler) (*Tracer, error) {
	res, err := resource.New(context.TODO(), resource.WithAttributes(semconv.ServiceNameKey.String(svcname)))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sampler),
		sdktrace.WithSyncer(newThreadSafeExporterWrapper(exporter)),
		sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	db.DPrintf(db.TRACING, "Tracer %v installed", svcname)
	return &Tracer{t: tp.Tracer(svcname), tp: tp}, nil
}

// InitJaeger sends a sampled fraction of spans to the Jaeger agent at
// jaegerhost.
func InitJaeger(svcname string, jaegerhost string) (*Tracer, error) {
	exp, err := newJaegerExporter(jaegerhost)
	if err != nil {
		return nil, err
	}
	return newTracer(svcname, exp, sdktrace.ParentBased(sdktrace.TraceIDRatioBased(SAMPLE_RATIO)))
}

// InitWriter writes every span to w as JSON.
func InitWriter(svcname string, w io.Writer) (*Tracer, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}
	return newTracer(svcname, exp, sdktrace.AlwaysSample())
}
