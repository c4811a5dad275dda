package log

import (
	"context"
	"strconv"

	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// WithDD returns a logger enriched with Datadog correlation fields when a
// span is present in ctx (dd.trace_id / dd.span_id, as strings).
func WithDD(ctx context.Context, base *zap.Logger, extra ...zap.Field) *zap.Logger {
	if sp, ok := tracer.SpanFromContext(ctx); ok && sp != nil {
		if sc, ok := sp.Context().(ddtrace.SpanContext); ok {
			extra = append(extra,
				zap.String("dd.trace_id", strconv.FormatUint(sc.TraceID(), 10)),
				zap.String("dd.span_id", strconv.FormatUint(sc.SpanID(), 10)),
			)
		}
	}
	return base.With(extra...)
}
