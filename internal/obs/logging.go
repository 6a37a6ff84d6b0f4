// Package obs wires the ambient observability stack: structured logging via
// slog (matching the teacher's log/slog usage throughout), an OTel log
// bridge for exporting it as the log signal, and per-task span/metric
// recording driven by plant.ReactionStatistics. See SPEC_FULL.md "Ambient
// stack > Logging".
package obs

import (
	"context"
	"os"

	"log/slog"

	otelslog "go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/webitel/reactor-plant/internal/plant"
)

// NewLogger builds the process logger: a text or json handler to stdout.
func NewLogger(format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// NewBridgedLogger fans every record out to stdout and to an OTel
// LoggerProvider, so a single *slog.Logger is both the teacher's usual
// diagnostic stream and the OTel log signal.
func NewBridgedLogger(format string, level slog.Level, provider otellog.LoggerProvider) *slog.Logger {
	primary := NewLogger(format, level).Handler()
	secondary := otelslog.NewHandler("reactor-plant", otelslog.WithLoggerProvider(provider))
	return slog.New(fanoutHandler{primary: primary, secondary: secondary})
}

// fanoutHandler writes every record to both handlers; a failure from the
// secondary (telemetry) handler never affects the primary (stdout) one.
type fanoutHandler struct {
	primary   slog.Handler
	secondary slog.Handler
}

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return f.primary.Enabled(ctx, level) || f.secondary.Enabled(ctx, level)
}

func (f fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	err := f.primary.Handle(ctx, record)
	_ = f.secondary.Handle(ctx, record.Clone())
	return err
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return fanoutHandler{primary: f.primary.WithAttrs(attrs), secondary: f.secondary.WithAttrs(attrs)}
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	return fanoutHandler{primary: f.primary.WithGroup(name), secondary: f.secondary.WithGroup(name)}
}

// StatsRecorder turns plant.ReactionStatistics into OTel spans and metrics:
// one histogram of task duration and one counter of exceptions, both
// labeled by reaction. Attach via plant.Config.OnStatistics.
type StatsRecorder struct {
	tracer   trace.Tracer
	duration metric.Float64Histogram
	failures metric.Int64Counter
}

// NewStatsRecorder builds a recorder against the given tracer/meter. Either
// may be a no-op implementation (as returned by otel's global getters
// before an SDK is configured) for tests or demos that don't export
// telemetry.
func NewStatsRecorder(tracer trace.Tracer, meter metric.Meter) (*StatsRecorder, error) {
	duration, err := meter.Float64Histogram("reactor_plant.task.duration",
		metric.WithDescription("task execution duration"), metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("reactor_plant.task.failures",
		metric.WithDescription("tasks that returned a non-nil error or panicked"))
	if err != nil {
		return nil, err
	}
	return &StatsRecorder{tracer: tracer, duration: duration, failures: failures}, nil
}

// Record is wired as plant.Config.OnStatistics.
func (r *StatsRecorder) Record(stats plant.ReactionStatistics) {
	_, span := r.tracer.Start(context.Background(), "reaction:"+stats.Label,
		trace.WithTimestamp(stats.Stats.StartTime))
	defer span.End(trace.WithTimestamp(stats.Stats.FinishTime))

	elapsed := stats.Stats.FinishTime.Sub(stats.Stats.StartTime)
	if elapsed < 0 {
		elapsed = 0
	}
	attrs := metric.WithAttributes(attribute.String("reaction", stats.Label))
	r.duration.Record(context.Background(), elapsed.Seconds(), attrs)

	if stats.Stats.Exception != nil {
		span.RecordError(stats.Stats.Exception)
		r.failures.Add(context.Background(), 1, attrs)
	}
}
