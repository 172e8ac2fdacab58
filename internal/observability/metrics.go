package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"query-engine/internal/coreerr"
)

const meterName = "query-engine"

// EngineMetrics holds the instruments recorded by planning and mutation execution.
type EngineMetrics struct {
	operationDuration metric.Float64Histogram
	operationCounter  metric.Int64Counter
	errorCounter      metric.Int64Counter
	rootFields        metric.Int64Histogram
	mutationDuration  metric.Float64Histogram
	mutationCounter   metric.Int64Counter
	mutationRows      metric.Int64Histogram
}

// NewEngineMetrics creates the engine instruments on the global meter provider.
func NewEngineMetrics() (*EngineMetrics, error) {
	return newEngineMetrics(otel.Meter(meterName))
}

func newEngineMetrics(meter metric.Meter) (*EngineMetrics, error) {
	m := &EngineMetrics{}
	var err error

	if m.operationDuration, err = meter.Float64Histogram(
		"engine.operation.duration",
		metric.WithDescription("Duration of planned and executed operations in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create operation duration histogram: %w", err)
	}
	if m.operationCounter, err = meter.Int64Counter(
		"engine.operations.total",
		metric.WithDescription("Total number of operations handled by the engine"),
	); err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}
	if m.errorCounter, err = meter.Int64Counter(
		"engine.errors.total",
		metric.WithDescription("Total number of failed operations by error kind"),
	); err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}
	if m.rootFields, err = meter.Int64Histogram(
		"engine.operation.root_fields",
		metric.WithDescription("Number of root fields per operation"),
	); err != nil {
		return nil, fmt.Errorf("failed to create root field histogram: %w", err)
	}
	if m.mutationDuration, err = meter.Float64Histogram(
		"engine.mutation.duration",
		metric.WithDescription("Duration of top-level writes in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create mutation duration histogram: %w", err)
	}
	if m.mutationCounter, err = meter.Int64Counter(
		"engine.mutations.total",
		metric.WithDescription("Total number of top-level writes"),
	); err != nil {
		return nil, fmt.Errorf("failed to create mutation counter: %w", err)
	}
	if m.mutationRows, err = meter.Int64Histogram(
		"engine.mutation.rows",
		metric.WithDescription("Rows affected by a top-level write"),
	); err != nil {
		return nil, fmt.Errorf("failed to create mutation rows histogram: %w", err)
	}
	return m, nil
}

// RecordOperation records one planned or executed document operation.
func (m *EngineMetrics) RecordOperation(ctx context.Context, operationType string, rootFields int, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("operation_type", operationType),
		attribute.Bool("has_errors", err != nil),
	}
	m.operationDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	m.operationCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.rootFields.Record(ctx, int64(rootFields), metric.WithAttributes(attribute.String("operation_type", operationType)))
	if err != nil {
		m.errorCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation_type", operationType),
			attribute.String("kind", errorKind(err)),
		))
	}
}

// RecordMutation records one top-level write.
func (m *EngineMetrics) RecordMutation(ctx context.Context, action, model string, rows int64, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("model", model),
		attribute.String("outcome", outcome(err)),
	)
	m.mutationDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	m.mutationCounter.Add(ctx, 1, attrs)
	if err == nil {
		m.mutationRows.Record(ctx, rows, metric.WithAttributes(attribute.String("action", action)))
	}
}

// InitMetrics creates the engine metrics and logs their registration.
func InitMetrics(logger *slog.Logger) (*EngineMetrics, error) {
	metrics, err := NewEngineMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize engine metrics: %w", err)
	}
	logger.Debug("engine metrics initialized")
	return metrics, nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func errorKind(err error) string {
	if kind := coreerr.KindOf(err); kind != 0 {
		return kind.String()
	}
	return "internal"
}
