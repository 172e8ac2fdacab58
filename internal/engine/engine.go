// Package engine is the entry point of the query engine. It plans a GraphQL
// document against a schema graph and, for mutations, runs every root field
// inside one database transaction that is committed only when all of them
// succeed.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"query-engine/internal/builder"
	"query-engine/internal/coreerr"
	"query-engine/internal/dbexec"
	"query-engine/internal/logging"
	"query-engine/internal/mutaction"
	"query-engine/internal/naming"
	"query-engine/internal/observability"
	"query-engine/internal/query"
	"query-engine/internal/schema"
)

const tracerName = "query-engine/engine"

// OperationRecorder observes every planned or executed operation.
type OperationRecorder interface {
	RecordOperation(ctx context.Context, operationType string, rootFields int, duration time.Duration, err error)
}

// Request is one GraphQL request.
type Request struct {
	Document      string
	OperationName string
	Variables     map[string]any
}

// FieldResult is the write outcome of one mutation root field.
type FieldResult struct {
	Key string
	mutaction.Result
}

// Response holds the plan of a request and, for mutations, the results of
// its root fields in document order.
type Response struct {
	Plan    *builder.Plan
	Results []FieldResult
}

// Engine plans and executes requests against one schema graph.
type Engine struct {
	graph    *schema.Graph
	namer    *naming.Namer
	db       dbexec.QueryExecutor
	executor *mutaction.Executor
	recorder OperationRecorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithNamer overrides the default naming rules.
func WithNamer(n *naming.Namer) Option {
	return func(e *Engine) {
		if n != nil {
			e.namer = n
		}
	}
}

// WithDatabase sets the executor mutations run against. Without one the
// engine can only plan.
func WithDatabase(db dbexec.QueryExecutor) Option {
	return func(e *Engine) {
		e.db = db
	}
}

// WithMutationExecutor replaces the write executor.
func WithMutationExecutor(x *mutaction.Executor) Option {
	return func(e *Engine) {
		if x != nil {
			e.executor = x
		}
	}
}

// WithOperationRecorder reports every operation to r.
func WithOperationRecorder(r OperationRecorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// New returns an engine for graph.
func New(graph *schema.Graph, opts ...Option) *Engine {
	e := &Engine{
		graph:    graph,
		namer:    naming.Default(),
		executor: mutaction.NewExecutor(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Graph returns the schema graph the engine plans against.
func (e *Engine) Graph() *schema.Graph {
	return e.graph
}

// Plan builds the operation trees of req without touching storage.
func (e *Engine) Plan(ctx context.Context, req Request) (*builder.Plan, error) {
	ctx, span, logger := e.begin(ctx, "engine.plan", req)
	started := time.Now()

	plan, err := e.plan(req)
	e.finish(ctx, span, logger, plan, started, err)
	return plan, err
}

// Execute plans req and runs its writes. Query operations are only planned;
// reading rows belongs to the caller's read path.
func (e *Engine) Execute(ctx context.Context, req Request) (*Response, error) {
	ctx, span, logger := e.begin(ctx, "engine.execute", req)
	started := time.Now()

	plan, err := e.plan(req)
	if err != nil {
		e.finish(ctx, span, logger, plan, started, err)
		return nil, err
	}
	resp := &Response{Plan: plan}
	if plan.IsMutation() {
		resp.Results, err = e.executeWrites(ctx, plan.Writes)
	}
	e.finish(ctx, span, logger, plan, started, err)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (e *Engine) plan(req Request) (*builder.Plan, error) {
	return builder.PlanDocument(e.graph, e.namer, req.Document, req.OperationName, req.Variables)
}

func (e *Engine) executeWrites(ctx context.Context, writes []query.WriteQuery) (results []FieldResult, err error) {
	if e.db == nil {
		return nil, coreerr.Unsupported("mutations need a database connection")
	}
	tx, err := e.db.BeginTx(ctx)
	if err != nil {
		return nil, coreerr.Storage("begin_failed", err)
	}

	scope := newMutationScope(tx)
	defer func() {
		if rec := recover(); rec != nil {
			scope.abort()
			_ = scope.finish()
			panic(rec)
		}
		if finishErr := scope.finish(); finishErr != nil && err == nil {
			results, err = nil, coreerr.Storage("commit_failed", finishErr)
		}
	}()

	results = make([]FieldResult, 0, len(writes))
	for _, w := range writes {
		res, err := scope.run(ctx, e.executor, w)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Engine) begin(ctx context.Context, name string, req Request) (context.Context, trace.Span, *logging.Logger) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)

	requestID := logging.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = logging.WithRequestIDContext(ctx, requestID)
	}
	logger := logging.FromContext(ctx).WithRequestID(requestID)
	if spanCtx := span.SpanContext(); spanCtx.IsValid() {
		logger = logger.WithFields(slog.String("span_id", spanCtx.SpanID().String()))
	}
	ctx = logging.WithLogger(ctx, logger)

	span.SetAttributes(
		attribute.String("engine.request_id", requestID),
		attribute.Int("graphql.document.size_bytes", len(req.Document)),
	)
	return ctx, span, logger
}

func (e *Engine) finish(ctx context.Context, span trace.Span, logger *logging.Logger, plan *builder.Plan, started time.Time, err error) {
	defer span.End()

	op := observability.Operation{Type: "unknown"}
	if plan != nil {
		op = observability.Operation{
			Name:       plan.Name,
			Type:       plan.Operation,
			RootFields: len(plan.Reads) + len(plan.Writes),
		}
	}
	if span.IsRecording() {
		span.SetAttributes(observability.OperationSpanAttributes(op)...)
	}
	if e.recorder != nil {
		e.recorder.RecordOperation(ctx, op.Type, op.RootFields, time.Since(started), err)
	}

	fields := observability.OperationLogFields(ctx, op)
	fields = append(fields, slog.Duration("duration", time.Since(started)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if kind := coreerr.KindOf(err); kind != 0 {
			span.SetAttributes(attribute.String("engine.error.kind", kind.String()))
		}
		logger.Warn("operation failed", append(fields, slog.String("error", err.Error()))...)
		return
	}
	span.SetStatus(codes.Ok, "")
	logger.Debug("operation completed", fields...)
}
