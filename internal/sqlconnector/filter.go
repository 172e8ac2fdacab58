package sqlconnector

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"query-engine/internal/coreerr"
	"query-engine/internal/query"
	"query-engine/internal/schema"
	"query-engine/internal/sqlutil"
)

// filterBuilder translates query filters into squirrel conditions. Relation
// conditions become correlated EXISTS subqueries over the link table, each
// with its own aliases.
type filterBuilder struct {
	aliasCounter int
}

func (b *filterBuilder) nextAlias(prefix string) string {
	normalized := strings.NewReplacer("`", "", ".", "_").Replace(prefix)
	b.aliasCounter++
	return fmt.Sprintf("__%s_%d", normalized, b.aliasCounter)
}

// build returns the condition for f on rows of model reachable as alias.
// A nil filter yields a nil condition.
func (b *filterBuilder) build(model *schema.Model, alias string, f query.Filter) (sq.Sqlizer, error) {
	switch f := f.(type) {
	case nil:
		return nil, nil
	case query.And:
		parts, err := b.buildAll(model, alias, f.Filters)
		if err != nil {
			return nil, err
		}
		return sq.And(parts), nil
	case query.Or:
		parts, err := b.buildAll(model, alias, f.Filters)
		if err != nil {
			return nil, err
		}
		return sq.Or(parts), nil
	case query.Not:
		parts, err := b.buildAll(model, alias, f.Filters)
		if err != nil {
			return nil, err
		}
		return negate(sq.Or(parts))
	case query.ScalarCondition:
		return scalarCondition(alias, f)
	case query.RelationCondition:
		return b.relationCondition(model, alias, f)
	default:
		return nil, coreerr.Unsupported("unsupported filter %T", f)
	}
}

func (b *filterBuilder) buildAll(model *schema.Model, alias string, filters []query.Filter) ([]sq.Sqlizer, error) {
	parts := make([]sq.Sqlizer, 0, len(filters))
	for _, f := range filters {
		cond, err := b.build(model, alias, f)
		if err != nil {
			return nil, err
		}
		if cond != nil {
			parts = append(parts, cond)
		}
	}
	return parts, nil
}

func negate(cond sq.Sqlizer) (sq.Sqlizer, error) {
	sql, args, err := cond.ToSql()
	if err != nil {
		return nil, err
	}
	return sq.Expr("NOT ("+sql+")", args...), nil
}

func scalarCondition(alias string, c query.ScalarCondition) (sq.Sqlizer, error) {
	if c.Field.IsList {
		return nil, coreerr.Unsupported("filters on scalar list field %s are not supported", c.Field.Name)
	}
	col := sqlutil.QualifiedColumn(alias, c.Field.Name)

	switch c.Op {
	case query.OpEquals:
		return sq.Eq{col: c.Value}, nil
	case query.OpNotEquals:
		return sq.NotEq{col: c.Value}, nil
	case query.OpIn, query.OpNotIn:
		values, ok := c.Value.([]any)
		if !ok {
			return nil, coreerr.Validation("%s filter on %s needs a list value", c.Op, c.Field.Name)
		}
		if c.Op == query.OpIn {
			return sq.Eq{col: values}, nil
		}
		return sq.NotEq{col: values}, nil
	case query.OpLessThan:
		return sq.Lt{col: c.Value}, nil
	case query.OpLessThanOrEquals:
		return sq.LtOrEq{col: c.Value}, nil
	case query.OpGreaterThan:
		return sq.Gt{col: c.Value}, nil
	case query.OpGreaterThanOrEquals:
		return sq.GtOrEq{col: c.Value}, nil
	}

	s, ok := c.Value.(string)
	if !ok {
		return nil, coreerr.Validation("%s filter on %s needs a string value", c.Op, c.Field.Name)
	}
	escaped := escapeLike(s)
	switch c.Op {
	case query.OpContains:
		return sq.Like{col: "%" + escaped + "%"}, nil
	case query.OpNotContains:
		return sq.NotLike{col: "%" + escaped + "%"}, nil
	case query.OpStartsWith:
		return sq.Like{col: escaped + "%"}, nil
	case query.OpNotStartsWith:
		return sq.NotLike{col: escaped + "%"}, nil
	case query.OpEndsWith:
		return sq.Like{col: "%" + escaped}, nil
	case query.OpNotEndsWith:
		return sq.NotLike{col: "%" + escaped}, nil
	default:
		return nil, coreerr.Unsupported("unsupported scalar operator %s", c.Op)
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

// relationCondition correlates the link table of c.Field with the outer row
// and joins the related model so the nested filter can address its columns.
func (b *filterBuilder) relationCondition(model *schema.Model, alias string, c query.RelationCondition) (sq.Sqlizer, error) {
	related := c.Field.RelatedModel()
	linkAlias := b.nextAlias(c.Field.Relation().Table())
	relatedAlias := b.nextAlias(related.TableName())

	outer := alias
	if outer == "" {
		outer = model.TableName()
	}

	nested, err := b.build(related, relatedAlias, c.Nested)
	if err != nil {
		return nil, err
	}

	prefix := "EXISTS"
	switch c.Op {
	case query.RelationNone:
		prefix = "NOT EXISTS"
	case query.RelationEvery:
		prefix = "NOT EXISTS"
		if nested == nil {
			return sq.Expr("1=1"), nil
		}
		if nested, err = negate(nested); err != nil {
			return nil, err
		}
	}

	builder := sq.Select("1").
		From(sqlutil.TableAs(c.Field.Relation().Table(), linkAlias)).
		Join(fmt.Sprintf("%s ON %s = %s",
			sqlutil.TableAs(related.TableName(), relatedAlias),
			sqlutil.QualifiedColumn(relatedAlias, related.IDField().Name),
			sqlutil.QualifiedColumn(linkAlias, c.Field.OppositeColumn()),
		)).
		Where(sq.Expr(fmt.Sprintf("%s = %s",
			sqlutil.QualifiedColumn(linkAlias, c.Field.Column()),
			sqlutil.QualifiedColumn(outer, model.IDField().Name),
		)))
	if nested != nil {
		builder = builder.Where(nested)
	}

	sql, args, err := builder.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return nil, err
	}
	return sq.Expr(fmt.Sprintf("%s (%s)", prefix, sql), args...), nil
}
