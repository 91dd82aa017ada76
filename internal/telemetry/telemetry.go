// Package telemetry wires the ambient observability stack: an OTel
// tracer and meter, exported to stdout when enabled. This mirrors the
// way beads' internal/storage/dolt package declares a package-level
// `doltTracer = otel.Tracer(...)` and wraps storage calls in spans; here
// a single pair of package-level instruments is shared by the ingestion
// and retrieval packages instead of being per-package.
package telemetry

import (
	"context"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/kgruel/siftd-sub000"

var (
	once       sync.Once
	tracerInst trace.Tracer
	meterInst  metric.Meter
)

// enabled reports whether stdout export is requested. Tracing/metrics
// export is opt-in (SIFTD_TRACE=1) so ordinary CLI invocations stay
// quiet; the tracer/meter themselves are always usable as no-ops
// otherwise.
func enabled() bool {
	return os.Getenv("SIFTD_TRACE") == "1"
}

func setup() {
	if !enabled() {
		tracerInst = otel.Tracer(instrumentationName)
		meterInst = otel.Meter(instrumentationName)
		return
	}

	traceExp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err == nil {
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExp))
		otel.SetTracerProvider(tp)
	}

	metricExp, err := stdoutmetric.New()
	if err == nil {
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(metricExp)))
		otel.SetMeterProvider(mp)
	}

	tracerInst = otel.Tracer(instrumentationName)
	meterInst = otel.Meter(instrumentationName)
}

// Tracer returns the shared tracer, initializing export on first use.
func Tracer() trace.Tracer {
	once.Do(setup)
	return tracerInst
}

// Meter returns the shared meter, initializing export on first use.
func Meter() metric.Meter {
	once.Do(setup)
	return meterInst
}

// StartSpan is a small convenience wrapper used throughout ingest and
// retrieval: `ctx, span := telemetry.StartSpan(ctx, "ingest.file")`.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name)
}
