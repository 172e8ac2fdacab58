// Package sqlconnector stores the schema graph in MySQL-compatible databases
// and implements the storage capability used by the mutation executors.
//
// Each model maps to a table named after Model.TableName with one column per
// scalar field. Each relation maps to a link table with columns A and B
// holding the ids of the two sides. Each scalar list field maps to a table
// <model>_<field> with columns nodeId, position and value.
package sqlconnector

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"query-engine/internal/coreerr"
	"query-engine/internal/dbexec"
	"query-engine/internal/mutaction"
	"query-engine/internal/query"
	"query-engine/internal/schema"
	"query-engine/internal/sqlutil"
)

const (
	listNodeIDColumn   = "nodeId"
	listPositionColumn = "position"
	listValueColumn    = "value"
)

// listRowsPerInsert keeps a list insert under MySQL's limit of 65535
// placeholders per statement; each row binds three.
var listRowsPerInsert = 65535 / 3

// Transaction runs storage calls on one open database transaction.
type Transaction struct {
	q dbexec.Querier
}

var _ mutaction.Transaction = (*Transaction)(nil)

// NewTransaction wraps q. The caller owns commit and rollback.
func NewTransaction(q dbexec.Querier) *Transaction {
	return &Transaction{q: q}
}

func (t *Transaction) exec(ctx context.Context, builder sq.Sqlizer) error {
	sql, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build statement: %w", err)
	}
	if _, err := t.q.ExecContext(ctx, sql, args...); err != nil {
		return normalizeError(err)
	}
	return nil
}

func (t *Transaction) queryIDs(ctx context.Context, builder sq.Sqlizer) ([]query.ID, error) {
	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := t.q.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, normalizeError(err)
	}
	defer rows.Close()

	var ids []query.ID
	for rows.Next() {
		var raw any
		if err := rows.Scan(&raw); err != nil {
			return nil, normalizeError(err)
		}
		id, err := query.IDFromValue(raw)
		if err != nil {
			return nil, coreerr.Storage("invalid_id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, normalizeError(err)
	}
	return ids, nil
}

// SelectIDs returns one column of the link table of q.Field.
func (t *Transaction) SelectIDs(ctx context.Context, q mutaction.LinkQuery) ([]query.ID, error) {
	own := sqlutil.QuoteIdentifier(q.Field.Column())
	opposite := sqlutil.QuoteIdentifier(q.Field.OppositeColumn())

	col := opposite
	if q.Select == mutaction.SelectParents {
		col = own
	}
	builder := sq.Select(col).From(sqlutil.QuoteIdentifier(q.Field.Relation().Table()))
	if len(q.ParentIDs) > 0 {
		builder = builder.Where(sq.Eq{own: query.IDValues(q.ParentIDs)})
	}
	if len(q.ChildIDs) > 0 {
		builder = builder.Where(sq.Eq{opposite: query.IDValues(q.ChildIDs)})
	}
	return t.queryIDs(ctx, builder.PlaceholderFormat(sq.Question))
}

// FindID resolves a unique selector to the row id.
func (t *Transaction) FindID(ctx context.Context, sel query.NodeSelector) (query.ID, error) {
	builder := sq.Select(sqlutil.QuoteIdentifier(sel.Model.IDField().Name)).
		From(sqlutil.QuoteIdentifier(sel.Model.TableName())).
		Where(sq.Eq{sqlutil.QuoteIdentifier(sel.Field.Name): sel.Value}).
		Limit(1).
		PlaceholderFormat(sq.Question)
	ids, err := t.queryIDs(ctx, builder)
	if err != nil {
		return query.ID{}, err
	}
	if len(ids) == 0 {
		return query.ID{}, coreerr.NotFound("no %s where %s = %v", sel.Model.Name, sel.Field.Name, sel.Value)
	}
	return ids[0], nil
}

// Write applies one link mutation. Creating an existing link is a no-op.
func (t *Transaction) Write(ctx context.Context, m mutaction.LinkMutation) error {
	field := m.LinkField()
	table := sqlutil.QuoteIdentifier(field.Relation().Table())
	own := sqlutil.QuoteIdentifier(field.Column())
	opposite := sqlutil.QuoteIdentifier(field.OppositeColumn())

	var builder sq.Sqlizer
	switch w := m.(type) {
	case mutaction.CreateLink:
		builder = sq.Insert(table).
			Options("IGNORE").
			Columns(own, opposite).
			Values(w.ParentID.Value(), w.ChildID.Value()).
			PlaceholderFormat(sq.Question)
	case mutaction.RemoveLink:
		builder = sq.Delete(table).
			Where(sq.Eq{own: w.ParentID.Value(), opposite: w.ChildID.Value()}).
			PlaceholderFormat(sq.Question)
	case mutaction.RemoveParentLinks:
		builder = sq.Delete(table).
			Where(sq.Eq{own: w.ParentID.Value()}).
			PlaceholderFormat(sq.Question)
	case mutaction.RemoveChildLinks:
		builder = sq.Delete(table).
			Where(sq.Eq{opposite: w.ChildID.Value()}).
			PlaceholderFormat(sq.Question)
	default:
		return coreerr.Unsupported("unsupported link mutation %T", m)
	}
	return t.exec(ctx, builder)
}

// Update assigns u.Args to every row in u.IDs.
func (t *Transaction) Update(ctx context.Context, u mutaction.UpdateRows) error {
	if len(u.Args) == 0 || len(u.IDs) == 0 {
		return nil
	}
	builder := sq.Update(sqlutil.QuoteIdentifier(u.Model.TableName()))
	for _, arg := range u.Args {
		builder = builder.Set(sqlutil.QuoteIdentifier(arg.Field.Name), arg.Value)
	}
	builder = builder.
		Where(sq.Eq{sqlutil.QuoteIdentifier(u.Model.IDField().Name): query.IDValues(u.IDs)}).
		PlaceholderFormat(sq.Question)
	return t.exec(ctx, builder)
}

// FilterIDs returns the ids of model rows matching filter in id order.
func (t *Transaction) FilterIDs(ctx context.Context, model *schema.Model, filter query.Filter) ([]query.ID, error) {
	table := model.TableName()
	idCol := sqlutil.QualifiedColumn(table, model.IDField().Name)

	builder := sq.Select(idCol).From(sqlutil.QuoteIdentifier(table)).OrderBy(idCol)
	cond, err := (&filterBuilder{}).build(model, table, filter)
	if err != nil {
		return nil, err
	}
	if cond != nil {
		builder = builder.Where(cond)
	}
	return t.queryIDs(ctx, builder.PlaceholderFormat(sq.Question))
}

// FilterIDsByParents returns the related rows linked to parentIDs through
// field that match filter.
func (t *Transaction) FilterIDsByParents(ctx context.Context, field *schema.RelationField, parentIDs []query.ID, filter query.Filter) ([]query.ID, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	related := field.RelatedModel()
	table := related.TableName()
	linkTable := field.Relation().Table()
	idCol := sqlutil.QualifiedColumn(table, related.IDField().Name)

	builder := sq.Select(idCol).
		From(sqlutil.QuoteIdentifier(table)).
		Join(fmt.Sprintf("%s ON %s = %s",
			sqlutil.QuoteIdentifier(linkTable),
			sqlutil.QualifiedColumn(linkTable, field.OppositeColumn()),
			idCol,
		)).
		Where(sq.Eq{sqlutil.QualifiedColumn(linkTable, field.Column()): query.IDValues(parentIDs)}).
		OrderBy(idCol)

	cond, err := (&filterBuilder{}).build(related, table, filter)
	if err != nil {
		return nil, err
	}
	if cond != nil {
		builder = builder.Where(cond)
	}
	return t.queryIDs(ctx, builder.PlaceholderFormat(sq.Question))
}

// Create inserts one row. The id comes from args when present, otherwise from
// the auto-increment value reported by the database.
func (t *Transaction) Create(ctx context.Context, model *schema.Model, args query.Args) (query.ID, error) {
	table := sqlutil.QuoteIdentifier(model.TableName())

	var builder sq.Sqlizer
	if len(args) == 0 {
		builder = sq.Expr(fmt.Sprintf("INSERT INTO %s () VALUES ()", table))
	} else {
		cols := make([]string, len(args))
		values := make([]any, len(args))
		for i, arg := range args {
			cols[i] = sqlutil.QuoteIdentifier(arg.Field.Name)
			values[i] = arg.Value
		}
		builder = sq.Insert(table).Columns(cols...).Values(values...).PlaceholderFormat(sq.Question)
	}

	sql, sqlArgs, err := builder.ToSql()
	if err != nil {
		return query.ID{}, fmt.Errorf("failed to build insert: %w", err)
	}
	res, err := t.q.ExecContext(ctx, sql, sqlArgs...)
	if err != nil {
		return query.ID{}, normalizeError(err)
	}

	if v, ok := args.Get(model.IDField().Name); ok {
		id, err := query.IDFromValue(v)
		if err != nil {
			return query.ID{}, coreerr.Validation("invalid id for %s: %v", model.Name, err)
		}
		return id, nil
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		return query.ID{}, coreerr.Storage("missing_insert_id", err)
	}
	return query.IntID(lastID), nil
}

// Delete removes rows of model together with their links and list values.
func (t *Transaction) Delete(ctx context.Context, model *schema.Model, ids []query.ID) error {
	if len(ids) == 0 {
		return nil
	}
	values := query.IDValues(ids)

	for _, rf := range model.RelationFields() {
		builder := sq.Delete(sqlutil.QuoteIdentifier(rf.Relation().Table())).
			Where(sq.Eq{sqlutil.QuoteIdentifier(rf.Column()): values}).
			PlaceholderFormat(sq.Question)
		if err := t.exec(ctx, builder); err != nil {
			return err
		}
	}
	for _, sf := range model.ScalarFields() {
		if !sf.IsList {
			continue
		}
		builder := sq.Delete(sqlutil.QuoteIdentifier(sf.ListTable())).
			Where(sq.Eq{sqlutil.QuoteIdentifier(listNodeIDColumn): values}).
			PlaceholderFormat(sq.Question)
		if err := t.exec(ctx, builder); err != nil {
			return err
		}
	}

	builder := sq.Delete(sqlutil.QuoteIdentifier(model.TableName())).
		Where(sq.Eq{sqlutil.QuoteIdentifier(model.IDField().Name): values}).
		PlaceholderFormat(sq.Question)
	return t.exec(ctx, builder)
}

// ReplaceList rewrites the list values of every row in u.IDs. Positions are
// the zero-based index of each value.
func (t *Transaction) ReplaceList(ctx context.Context, u mutaction.ListUpdate) error {
	if len(u.IDs) == 0 {
		return nil
	}
	table := sqlutil.QuoteIdentifier(u.Field.ListTable())
	nodeID := sqlutil.QuoteIdentifier(listNodeIDColumn)

	wipe := sq.Delete(table).
		Where(sq.Eq{nodeID: query.IDValues(u.IDs)}).
		PlaceholderFormat(sq.Question)
	if err := t.exec(ctx, wipe); err != nil {
		return err
	}
	if len(u.Values) == 0 {
		return nil
	}

	newInsert := func() sq.InsertBuilder {
		return sq.Insert(table).
			Columns(nodeID, sqlutil.QuoteIdentifier(listPositionColumn), sqlutil.QuoteIdentifier(listValueColumn)).
			PlaceholderFormat(sq.Question)
	}
	insert, rows := newInsert(), 0
	for _, id := range u.IDs {
		for pos, value := range u.Values {
			insert = insert.Values(id.Value(), pos, value)
			if rows++; rows == listRowsPerInsert {
				if err := t.exec(ctx, insert); err != nil {
					return err
				}
				insert, rows = newInsert(), 0
			}
		}
	}
	if rows == 0 {
		return nil
	}
	return t.exec(ctx, insert)
}
