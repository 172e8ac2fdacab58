package mutaction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"query-engine/internal/coreerr"
	"query-engine/internal/logging"
	"query-engine/internal/query"
	"query-engine/internal/schema"
)

// Recorder observes completed top-level write operations.
type Recorder interface {
	RecordMutation(ctx context.Context, action, model string, rows int64, duration time.Duration, err error)
}

// Result is the outcome of one top-level write.
type Result struct {
	// ID is the affected row for single-row writes.
	ID *query.ID
	// Count is the number of matched rows for updateMany and deleteMany.
	Count int
	// Created reports that an upsert took its create branch.
	Created bool
}

// Executor runs write queries against a Transaction.
type Executor struct {
	batchSize int
	recorder  Recorder
	newID     func() string
}

// Option configures an Executor.
type Option func(*Executor)

// WithBatchSize bounds the ids per update or delete statement.
func WithBatchSize(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithRecorder reports every top-level write to r.
func WithRecorder(r Recorder) Option {
	return func(e *Executor) {
		e.recorder = r
	}
}

// NewExecutor returns an executor with DefaultBatchSize and UUID ids.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{batchSize: DefaultBatchSize, newID: uuid.NewString}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one write query. On error the transaction may hold partial
// writes; the caller rolls it back.
func (e *Executor) Execute(ctx context.Context, tx Transaction, wq query.WriteQuery) (res Result, err error) {
	action := ActionName(wq)
	model := wq.TargetModel().Name
	ctx, span := startSpan(ctx, "mutaction."+action,
		attribute.String("mutation.action", action),
		attribute.String("mutation.model", model),
		attribute.String("mutation.field", wq.QueryName()),
	)
	started := time.Now()
	defer func() {
		rows := int64(res.Count)
		if res.ID != nil {
			rows = 1
		}
		span.SetAttributes(attribute.Int64("mutation.rows", rows))
		finishSpan(span, err)
		if e.recorder != nil {
			e.recorder.RecordMutation(ctx, action, model, rows, time.Since(started), err)
		}
	}()

	logging.FromContext(ctx).Debug("executing write",
		slog.String("action", action),
		slog.String("model", model),
		slog.String("field", wq.QueryName()),
	)

	switch q := wq.(type) {
	case *query.CreateNode:
		id, err := e.create(ctx, tx, q.Model, q.WriteData)
		if err != nil {
			return Result{}, err
		}
		return Result{ID: &id}, nil
	case *query.UpdateNode:
		id, err := tx.FindID(ctx, q.Selector)
		if err != nil {
			return Result{}, err
		}
		if err := e.update(ctx, tx, q.Selector.Model, id, q.WriteData); err != nil {
			return Result{}, err
		}
		return Result{ID: &id}, nil
	case *query.DeleteNode:
		id, err := tx.FindID(ctx, q.Selector)
		if err != nil {
			return Result{}, err
		}
		if err := e.delete(ctx, tx, q.Selector.Model, []query.ID{id}); err != nil {
			return Result{}, err
		}
		return Result{ID: &id}, nil
	case *query.DeleteNodes:
		ids, err := tx.FilterIDs(ctx, q.Model, q.Filter)
		if err != nil {
			return Result{}, err
		}
		if err := e.delete(ctx, tx, q.Model, ids); err != nil {
			return Result{}, err
		}
		return Result{Count: len(ids)}, nil
	case *query.UpdateNodes:
		n, err := UpdateMany(ctx, tx, q.Model, q.Filter, q.Args, q.ListArgs, e.batchSize)
		if err != nil {
			return Result{}, err
		}
		return Result{Count: n}, nil
	case *query.UpsertNode:
		return e.upsert(ctx, tx, q)
	default:
		return Result{}, coreerr.Unsupported("unsupported write query %T", wq)
	}
}

func (e *Executor) upsert(ctx context.Context, tx Transaction, q *query.UpsertNode) (Result, error) {
	id, err := tx.FindID(ctx, q.Selector)
	if coreerr.IsNotFound(err) {
		id, err = e.create(ctx, tx, q.Create.Model, q.Create.WriteData)
		if err != nil {
			return Result{}, err
		}
		return Result{ID: &id, Created: true}, nil
	}
	if err != nil {
		return Result{}, err
	}
	if err := e.update(ctx, tx, q.Selector.Model, id, q.Update.WriteData); err != nil {
		return Result{}, err
	}
	return Result{ID: &id}, nil
}

// create inserts a row, writes its lists and then its nested mutations.
func (e *Executor) create(ctx context.Context, tx Transaction, model *schema.Model, data query.WriteData) (query.ID, error) {
	args := e.withGeneratedID(model, data.Args)
	id, err := tx.Create(ctx, model, args)
	if err != nil {
		return query.ID{}, err
	}
	if err := e.writeLists(ctx, tx, id, data.ListArgs); err != nil {
		return query.ID{}, err
	}
	if err := e.nested(ctx, tx, id, data.Nested); err != nil {
		return query.ID{}, err
	}
	return id, nil
}

func (e *Executor) update(ctx context.Context, tx Transaction, model *schema.Model, id query.ID, data query.WriteData) error {
	if len(data.Args) > 0 {
		if err := tx.Update(ctx, UpdateRows{Model: model, IDs: []query.ID{id}, Args: data.Args}); err != nil {
			return err
		}
	}
	if err := e.writeLists(ctx, tx, id, data.ListArgs); err != nil {
		return err
	}
	return e.nested(ctx, tx, id, data.Nested)
}

// delete refuses to remove rows that a required singular relation still
// points at, then deletes in batches.
func (e *Executor) delete(ctx context.Context, tx Transaction, model *schema.Model, ids []query.ID) error {
	if len(ids) == 0 {
		return nil
	}
	for _, required := range model.Graph().FieldsRequiringModel(model) {
		for _, batch := range chunk(ids, e.batchSize) {
			holders, err := tx.SelectIDs(ctx, LinkQuery{
				Field:     required.RelatedField(),
				ParentIDs: batch,
			})
			if err != nil {
				return err
			}
			if len(holders) > 0 {
				return violation(required)
			}
		}
	}
	for _, batch := range chunk(ids, e.batchSize) {
		if err := tx.Delete(ctx, model, batch); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) writeLists(ctx context.Context, tx Transaction, id query.ID, lists []query.ListArg) error {
	for _, list := range lists {
		if err := tx.ReplaceList(ctx, ListUpdate{Field: list.Field, IDs: []query.ID{id}, Values: list.Values}); err != nil {
			return err
		}
	}
	return nil
}

// withGeneratedID fills in a missing non-integer id. Int ids are left to
// the storage layer.
func (e *Executor) withGeneratedID(model *schema.Model, args query.Args) query.Args {
	idField := model.IDField()
	if idField == nil || idField.TypeIdentifier == schema.TypeInt {
		return args
	}
	if _, ok := args.Get(idField.Name); ok {
		return args
	}
	out := make(query.Args, 0, len(args)+1)
	out = append(out, query.Arg{Field: idField, Value: e.newID()})
	return append(out, args...)
}

// nested applies nested mutations in request order.
func (e *Executor) nested(ctx context.Context, tx Transaction, parentID query.ID, mutations []query.NestedMutation) error {
	for _, m := range mutations {
		if err := e.nestedOne(ctx, tx, parentID, m); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) nestedOne(ctx context.Context, tx Transaction, parentID query.ID, m query.NestedMutation) (err error) {
	field := m.RelationField()
	action := NestedActionName(m)
	ctx, span := startSpan(ctx, "mutaction.nested."+action, relationAttrs(action, field)...)
	defer func() { finishSpan(span, err) }()

	switch n := m.(type) {
	case *query.NestedCreate:
		childID, err := e.create(ctx, tx, field.RelatedModel(), query.WriteData{Args: n.Data.Args})
		if err != nil {
			return err
		}
		if err := ConnectIDs(ctx, tx, parentID, childID, field); err != nil {
			return err
		}
		if err := e.writeLists(ctx, tx, childID, n.Data.ListArgs); err != nil {
			return err
		}
		return e.nested(ctx, tx, childID, n.Data.Nested)
	case *query.NestedUpdate:
		childID, err := linkedChild(ctx, tx, parentID, n.Where, field)
		if err != nil {
			return err
		}
		return e.update(ctx, tx, field.RelatedModel(), childID, n.Data)
	case *query.NestedUpsert:
		childID, err := linkedChild(ctx, tx, parentID, n.Where, field)
		if coreerr.IsNotFound(err) {
			return e.nestedOne(ctx, tx, parentID, &query.NestedCreate{Field: field, Data: n.Create})
		}
		if err != nil {
			return err
		}
		return e.update(ctx, tx, field.RelatedModel(), childID, n.Update)
	case *query.NestedDelete:
		childID, err := linkedChild(ctx, tx, parentID, n.Where, field)
		if err != nil {
			return err
		}
		return e.delete(ctx, tx, field.RelatedModel(), []query.ID{childID})
	case *query.NestedConnect:
		return Connect(ctx, tx, parentID, n.Where, field)
	case *query.NestedDisconnect:
		return Disconnect(ctx, tx, parentID, n.Where, field)
	case *query.NestedSet:
		return Set(ctx, tx, parentID, n.Wheres, field)
	case *query.NestedUpdateMany:
		_, err := UpdateManyNested(ctx, tx, parentID, n.Filter, field, n.Args, n.ListArgs, e.batchSize)
		return err
	case *query.NestedDeleteMany:
		ids, err := tx.FilterIDsByParents(ctx, field, []query.ID{parentID}, n.Filter)
		if err != nil {
			return err
		}
		return e.delete(ctx, tx, field.RelatedModel(), ids)
	default:
		return coreerr.Unsupported("unsupported nested mutation %T", m)
	}
}

// ActionName names the kind of a write query, e.g. "deleteMany".
func ActionName(wq query.WriteQuery) string {
	switch wq.(type) {
	case *query.CreateNode:
		return "create"
	case *query.UpdateNode:
		return "update"
	case *query.DeleteNode:
		return "delete"
	case *query.DeleteNodes:
		return "deleteMany"
	case *query.UpdateNodes:
		return "updateMany"
	case *query.UpsertNode:
		return "upsert"
	default:
		return fmt.Sprintf("%T", wq)
	}
}

// NestedActionName names the kind of a nested mutation, e.g. "connect".
func NestedActionName(m query.NestedMutation) string {
	switch m.(type) {
	case *query.NestedCreate:
		return "create"
	case *query.NestedUpdate:
		return "update"
	case *query.NestedUpsert:
		return "upsert"
	case *query.NestedDelete:
		return "delete"
	case *query.NestedConnect:
		return "connect"
	case *query.NestedDisconnect:
		return "disconnect"
	case *query.NestedSet:
		return "set"
	case *query.NestedUpdateMany:
		return "updateMany"
	case *query.NestedDeleteMany:
		return "deleteMany"
	default:
		return fmt.Sprintf("%T", m)
	}
}
