package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/tensorpath/path"
)

// InstrumentOption configures Instrument.
type InstrumentOption func(*instrumented)

// WithTracer records one span per optimizer call.
func WithTracer(tracer trace.Tracer) InstrumentOption {
	return func(i *instrumented) {
		i.tracer = tracer
	}
}

// WithMeter records call counts and durations.
func WithMeter(meter metric.Meter) InstrumentOption {
	return func(i *instrumented) {
		i.meter = meter
	}
}

// WithLogger logs every call at debug level and failures at warn level.
func WithLogger(logger *slog.Logger) InstrumentOption {
	return func(i *instrumented) {
		i.logger = logger
	}
}

// WithBackend sets the optimizer.backend attribute.
func WithBackend(name string) InstrumentOption {
	return func(i *instrumented) {
		i.backend = name
	}
}

type instrumented struct {
	next    Optimizer
	tracer  trace.Tracer
	meter   metric.Meter
	logger  *slog.Logger
	backend string

	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

// Instrument wraps next with tracing, metrics and logging. Results and errors
// from next are returned untouched.
func Instrument(next Optimizer, opts ...InstrumentOption) (Optimizer, error) {
	if next == nil {
		return nil, fmt.Errorf("instrument: optimizer is nil")
	}

	i := &instrumented{next: next}
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		i.logger = slog.Default()
	}

	if i.meter != nil {
		var err error
		i.calls, err = i.meter.Int64Counter(
			"optimizer.calls",
			metric.WithDescription("Number of optimizer calls"),
			metric.WithUnit("1"),
		)
		if err != nil {
			return nil, fmt.Errorf("create calls counter: %w", err)
		}

		i.duration, err = i.meter.Float64Histogram(
			"optimizer.duration",
			metric.WithDescription("Optimizer call duration in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return nil, fmt.Errorf("create duration histogram: %w", err)
		}
	}

	return i, nil
}

func (i *instrumented) Optimize(ctx context.Context, req *Request) (path.Path, error) {
	attrs := []attribute.KeyValue{
		attribute.String("optimizer.op", string(req.Op)),
		attribute.String("optimizer.backend", i.backend),
		attribute.Int("optimizer.tensors", req.Network.Len()),
	}

	var span trace.Span
	if i.tracer != nil {
		ctx, span = i.tracer.Start(ctx, "optimizer."+string(req.Op), trace.WithAttributes(attrs...))
		defer span.End()
	}

	start := time.Now()
	p, err := i.next.Optimize(ctx, req)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}

	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("optimizer.steps", len(p)))
			span.SetStatus(codes.Ok, "")
		}
	}

	if i.calls != nil {
		opts := metric.WithAttributes(append(attrs[:2:2], attribute.String("outcome", outcome))...)
		i.calls.Add(ctx, 1, opts)
		i.duration.Record(ctx, float64(elapsed.Microseconds())/1000, opts)
	}

	if err != nil {
		i.logger.Warn("optimizer call failed",
			"op", req.Op,
			"backend", i.backend,
			"duration", elapsed,
			"error", err)
	} else {
		i.logger.Debug("optimizer call finished",
			"op", req.Op,
			"backend", i.backend,
			"tensors", req.Network.Len(),
			"steps", len(p),
			"duration", elapsed)
	}

	return p, err
}
