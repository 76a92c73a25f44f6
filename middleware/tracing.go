package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/digest/job"
)

// tracerName is the instrumentation scope name for digest tracing.
const tracerName = "github.com/xraph/digest"

// Tracing returns middleware that wraps job processing in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a
// pass-through with zero overhead.
//
// Span attributes include: digest.job.id, digest.document.id,
// digest.provider.primary, digest.provider.fallback,
// digest.cost.estimated, digest.tokens.estimated.
// On error, the span status is set to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		ctx, span := tracer.Start(ctx, "digest.job.process",
			trace.WithAttributes(
				attribute.String("digest.job.id", j.ID.String()),
				attribute.String("digest.document.id", j.DocumentID.String()),
				attribute.String("digest.provider.primary", j.Provider),
				attribute.String("digest.provider.fallback", j.FallbackProvider),
				attribute.Float64("digest.cost.estimated", j.EstimatedCost),
				attribute.Int("digest.tokens.estimated", j.EstimatedTokens),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.String("digest.provider.used", j.ProviderUsed),
				attribute.Int("digest.retry_count", j.RetryCount),
				attribute.Float64("digest.cost.actual", j.ActualCost),
				attribute.Int("digest.tokens.actual", j.ActualTokens),
			)
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
