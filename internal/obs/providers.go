package obs

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Providers bundles the process-wide OTel SDK providers. NewProviders
// builds them with no exporter attached (spans/metrics are computed and
// aggregated in-process but not shipped anywhere) — swapping in a real
// OTLP exporter is a one-line change at the call site, not a structural
// one, since StatsRecorder only ever talks to the trace.Tracer/
// metric.Meter interfaces.
type Providers struct {
	Tracer *sdktrace.TracerProvider
	Meter  *sdkmetric.MeterProvider
}

// NewProviders constructs the SDK-backed tracer/meter providers used by
// StatsRecorder.
func NewProviders() *Providers {
	return &Providers{
		Tracer: sdktrace.NewTracerProvider(),
		Meter:  sdkmetric.NewMeterProvider(),
	}
}

// Shutdown flushes and releases both providers. Safe to call once, at
// process exit.
func (p *Providers) Shutdown() {
	ctx := context.Background()
	_ = p.Tracer.Shutdown(ctx)
	_ = p.Meter.Shutdown(ctx)
}
