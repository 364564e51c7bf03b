package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/satyaki-up/sprintboard/internal/tracker"
)

// CommandObserver records a span, a counter and a duration sample for every
// engine command. It satisfies tracker.CommandObserver.
type CommandObserver struct {
	tracer   trace.Tracer
	commands metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
}

// NewCommandObserver uses the global providers installed by Init.
func NewCommandObserver() *CommandObserver {
	return NewCommandObserverWith(otel.GetTracerProvider(), otel.GetMeterProvider())
}

func NewCommandObserverWith(tp trace.TracerProvider, mp metric.MeterProvider) *CommandObserver {
	m := mp.Meter(instrumentationScope)
	commands, _ := m.Int64Counter("sb.engine.commands",
		metric.WithDescription("Engine commands executed"),
	)
	failures, _ := m.Int64Counter("sb.engine.errors",
		metric.WithDescription("Engine commands that returned an error"),
	)
	duration, _ := m.Float64Histogram("sb.engine.command.duration",
		metric.WithDescription("Engine command duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	return &CommandObserver{
		tracer:   tp.Tracer(instrumentationScope),
		commands: commands,
		failures: failures,
		duration: duration,
	}
}

func (o *CommandObserver) Observe(ctx context.Context, command string, run func(ctx context.Context) error) error {
	attrs := []attribute.KeyValue{attribute.String("sb.command", command)}
	ctx, span := o.tracer.Start(ctx, "engine."+command, trace.WithAttributes(attrs...))
	defer span.End()
	start := time.Now()

	err := run(ctx)

	o.commands.Add(ctx, 1, metric.WithAttributes(attrs...))
	o.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, metric.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.failures.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("sb.error_kind", errorKind(err)))...))
	}
	return err
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, tracker.ErrNotFound):
		return "not_found"
	case errors.Is(err, tracker.ErrInvalidInput):
		return "validation"
	case errors.Is(err, tracker.ErrInvariantViolation):
		return "invariant"
	case errors.Is(err, tracker.ErrInvalidStateTransition):
		return "transition"
	case errors.Is(err, tracker.ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}

var _ tracker.CommandObserver = (*CommandObserver)(nil)
