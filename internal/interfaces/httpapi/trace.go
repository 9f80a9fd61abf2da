package httpapi

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var apiTracer = otel.Tracer("github.com/riskibarqy/prediction-pool/internal/interfaces/httpapi")
var noopSpan = trace.SpanFromContext(context.Background())

// tracedPrefixes lists the span names that get a child span under the
// request span. Response helpers and the outer middleware stay on the parent.
var tracedPrefixes = []string{
	"httpapi.Handler.",
	"httpapi.RequireBearerSecret",
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	// no request span means an untraced route such as /healthz
	if !trace.SpanFromContext(ctx).SpanContext().IsValid() || !tracedSpan(name) {
		return ctx, noopSpan
	}
	return apiTracer.Start(ctx, name)
}

func tracedSpan(name string) bool {
	for _, prefix := range tracedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// recordResponseStatus tags the active span with the response status. Only
// server-side failures mark the span as an error.
func recordResponseStatus(ctx context.Context, status int, reason string, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(
		attribute.Int("http.response.status_code", status),
		attribute.String("prediction_pool.error_reason", reason),
	)
	if status >= 500 && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
	}
}
