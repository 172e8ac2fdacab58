package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Operation describes a planned document operation for spans and logs.
type Operation struct {
	Name          string
	Type          string
	RootFields    int
	VariableCount int
	DocumentBytes int
}

// OperationSpanAttributes builds canonical span attributes for an operation.
func OperationSpanAttributes(op Operation) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 5)
	if op.Name != "" {
		attrs = append(attrs, attribute.String("graphql.operation.name", op.Name))
	}
	if op.Type != "" {
		attrs = append(attrs, attribute.String("graphql.operation.type", op.Type))
	}
	if op.DocumentBytes > 0 {
		attrs = append(attrs, attribute.Int("graphql.document.size_bytes", op.DocumentBytes))
	}
	attrs = append(attrs,
		attribute.Int("graphql.operation.root_fields", op.RootFields),
		attribute.Int("graphql.operation.variable_count", op.VariableCount),
	)
	return attrs
}

// OperationLogFields builds structured log fields for an operation, with the
// trace id when ctx carries a valid span.
func OperationLogFields(ctx context.Context, op Operation) []any {
	fields := make([]any, 0, 4)
	if op.Name != "" {
		fields = append(fields, slog.String("operation_name", op.Name))
	}
	if op.Type != "" {
		fields = append(fields, slog.String("operation_type", op.Type))
	}
	fields = append(fields, slog.Int("root_fields", op.RootFields))

	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		fields = append(fields, slog.String("trace_id", spanCtx.TraceID().String()))
	}
	return fields
}
