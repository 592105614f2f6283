// Package application implements the evaluation pipeline: dispatching
// prompts to a model, judging the responses against a rubric, and
// summarizing and comparing the resulting scores.
package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/gavel-bench/internal/ports"
)

// DefaultConcurrency is the number of model calls a batch keeps in flight
// when no other value is configured.
const DefaultConcurrency = 25

// tracerName identifies the batch spans.
const tracerName = "github.com/ahrav/gavel-bench/internal/application"

// RunBatch applies fn to every item using min(workers, len(items)) workers
// and returns the outputs in item order.
//
// Workers pull item indices from a shared queue and write each output to
// the slot of its index, so completion order never affects the result. The
// first error stops the workers from taking further items and is returned
// without any partial results. Calls already in flight are not waited out:
// their shared context is cancelled and whatever they return is dropped.
func RunBatch[In, Out any](
	ctx context.Context,
	items []In,
	workers int,
	fn func(ctx context.Context, index int, item In) (Out, error),
) ([]Out, error) {
	if len(items) == 0 {
		return []Out{}, nil
	}
	if workers <= 0 {
		workers = DefaultConcurrency
	}
	workers = min(workers, len(items))

	queue := make(chan int, len(items))
	for i := range items {
		queue <- i
	}
	close(queue)

	results := make([]Out, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			for i := range queue {
				if err := gctx.Err(); err != nil {
					return err
				}
				out, err := fn(gctx, i, items[i])
				if err != nil {
					return err
				}
				results[i] = out
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// BatchOption configures a Dispatcher or a Judge.
type BatchOption func(*batchSettings)

type batchSettings struct {
	concurrency int
	metrics     ports.MetricsCollector
	tracer      trace.Tracer
}

func newBatchSettings(opts []BatchOption) batchSettings {
	s := batchSettings{
		concurrency: DefaultConcurrency,
		tracer:      otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithConcurrency sets the number of workers. Non-positive values keep the default.
func WithConcurrency(workers int) BatchOption {
	return func(s *batchSettings) {
		if workers > 0 {
			s.concurrency = workers
		}
	}
}

// WithMetrics records batch item counts and durations to collector.
func WithMetrics(collector ports.MetricsCollector) BatchOption {
	return func(s *batchSettings) { s.metrics = collector }
}

// WithTracerProvider creates batch spans from tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) BatchOption {
	return func(s *batchSettings) { s.tracer = tp.Tracer(tracerName) }
}

// observe runs a batch of n items inside a span and records its outcome.
func (s batchSettings) observe(ctx context.Context, operation string, n int, run func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "batch."+operation, trace.WithAttributes(
		attribute.String("batch.operation", operation),
		attribute.Int("batch.items", n),
		attribute.Int("batch.concurrency", s.concurrency),
	))
	defer span.End()

	start := time.Now()
	err := run(ctx)

	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if s.metrics != nil {
		labels := map[string]string{"operation": operation, "status": status}
		s.metrics.RecordCounter(ports.MetricBatchItems, float64(n), labels)
		s.metrics.RecordLatency(ports.MetricBatchDuration, time.Since(start), labels)
	}
	return err
}
