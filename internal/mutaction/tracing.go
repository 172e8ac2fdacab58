package mutaction

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"query-engine/internal/coreerr"
	"query-engine/internal/schema"
)

const tracerName = "query-engine/mutaction"

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

func finishSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		if kind := coreerr.KindOf(err); kind != 0 {
			span.SetAttributes(attribute.String("mutation.error.kind", kind.String()))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("mutation.outcome", outcome))
	span.End()
}

func relationAttrs(action string, field *schema.RelationField) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("mutation.action", action),
		attribute.String("mutation.model", field.Model().Name),
		attribute.String("mutation.relation", field.RelationName),
		attribute.String("mutation.field", field.Name),
	}
}
