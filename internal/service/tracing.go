package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/set-night/shareit/internal/domain"
)

var tracer = otel.Tracer("github.com/set-night/shareit/internal/service")

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan marks the span failed only for errors the system itself caused.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		if !domain.IsValidation(err) && !domain.IsConflict(err) {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
