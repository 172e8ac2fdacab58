package builder

import (
	"strings"

	"query-engine/internal/coreerr"
	"query-engine/internal/query"
	"query-engine/internal/schema"
)

type filterSuffix struct {
	suffix   string
	scalarOp query.ScalarOp
	relOp    query.RelationOp
	relation bool
}

// filterSuffixes are tried longest first so "_not_in" wins over "_in".
var filterSuffixes = []filterSuffix{
	{suffix: "_not_starts_with", scalarOp: query.OpNotStartsWith},
	{suffix: "_not_ends_with", scalarOp: query.OpNotEndsWith},
	{suffix: "_not_contains", scalarOp: query.OpNotContains},
	{suffix: "_starts_with", scalarOp: query.OpStartsWith},
	{suffix: "_ends_with", scalarOp: query.OpEndsWith},
	{suffix: "_contains", scalarOp: query.OpContains},
	{suffix: "_not_in", scalarOp: query.OpNotIn},
	{suffix: "_every", relOp: query.RelationEvery, relation: true},
	{suffix: "_some", relOp: query.RelationSome, relation: true},
	{suffix: "_none", relOp: query.RelationNone, relation: true},
	{suffix: "_not", scalarOp: query.OpNotEquals},
	{suffix: "_lte", scalarOp: query.OpLessThanOrEquals},
	{suffix: "_gte", scalarOp: query.OpGreaterThanOrEquals},
	{suffix: "_in", scalarOp: query.OpIn},
	{suffix: "_lt", scalarOp: query.OpLessThan},
	{suffix: "_gt", scalarOp: query.OpGreaterThan},
}

// extractFilter turns a where object into a filter. Several entries are
// combined with And; a single entry is returned as is.
func (b *Builder) extractFilter(model *schema.Model, obj *object) (query.Filter, error) {
	filters := make([]query.Filter, 0, len(obj.fields))
	for _, entry := range obj.fields {
		f, err := b.filterEntry(model, entry)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	if len(filters) == 1 {
		return filters[0], nil
	}
	return query.And{Filters: filters}, nil
}

func (b *Builder) filterEntry(model *schema.Model, entry objectField) (query.Filter, error) {
	switch entry.name {
	case "AND", "OR", "NOT":
		items, err := itemsOf(entry.value)
		if err != nil {
			return nil, coreerr.Validation("%s on model %s: %v", entry.name, model.Name, err)
		}
		nested := make([]query.Filter, 0, len(items))
		for _, item := range items {
			f, err := b.extractFilter(model, item)
			if err != nil {
				return nil, err
			}
			nested = append(nested, f)
		}
		switch entry.name {
		case "AND":
			return query.And{Filters: nested}, nil
		case "OR":
			return query.Or{Filters: nested}, nil
		default:
			return query.Not{Filters: nested}, nil
		}
	}

	if field, err := model.FindField(entry.name); err == nil {
		switch f := field.(type) {
		case *schema.ScalarField:
			return b.scalarCondition(f, query.OpEquals, entry.value)
		case *schema.RelationField:
			if f.IsList {
				return nil, coreerr.Validation("list relation field %s needs a _some, _every or _none suffix", f.Name)
			}
			return b.relationCondition(f, query.RelationToOne, entry.value)
		}
	}

	for _, s := range filterSuffixes {
		if !strings.HasSuffix(entry.name, s.suffix) {
			continue
		}
		name := strings.TrimSuffix(entry.name, s.suffix)
		field, err := model.FindField(name)
		if err != nil {
			continue
		}
		switch f := field.(type) {
		case *schema.ScalarField:
			if s.relation {
				return nil, coreerr.Validation("filter %s is not supported on scalar field %s", s.suffix, f.Name)
			}
			return b.scalarCondition(f, s.scalarOp, entry.value)
		case *schema.RelationField:
			if !s.relation {
				return nil, coreerr.Validation("filter %s is not supported on relation field %s", s.suffix, f.Name)
			}
			if !f.IsList {
				return nil, coreerr.Validation("filter %s requires a list relation, %s is singular", s.suffix, f.Name)
			}
			return b.relationCondition(f, s.relOp, entry.value)
		}
	}
	return nil, coreerr.Validation("unknown filter field %s on model %s", entry.name, model.Name)
}

func (b *Builder) scalarCondition(field *schema.ScalarField, op query.ScalarOp, v any) (query.Filter, error) {
	if field.IsList {
		return nil, coreerr.Validation("scalar list field %s cannot be filtered", field.Name)
	}
	switch op {
	case query.OpIn, query.OpNotIn:
		list, ok := v.([]any)
		if !ok {
			return nil, coreerr.Validation("filter %s_%s expects a List, got %s", field.Name, op, describe(v))
		}
		values := make([]any, 0, len(list))
		for _, item := range list {
			cv, err := b.coerceScalar(field, item)
			if err != nil {
				return nil, err
			}
			values = append(values, cv)
		}
		return query.ScalarCondition{Field: field, Op: op, Value: values}, nil
	case query.OpContains, query.OpNotContains, query.OpStartsWith, query.OpNotStartsWith, query.OpEndsWith, query.OpNotEndsWith:
		if !isStringLike(field) {
			return nil, coreerr.Validation("filter %s_%s requires a string field", field.Name, op)
		}
		if v == nil {
			return nil, coreerr.Validation("filter %s_%s cannot be null", field.Name, op)
		}
	case query.OpLessThan, query.OpLessThanOrEquals, query.OpGreaterThan, query.OpGreaterThanOrEquals:
		if field.TypeIdentifier == schema.TypeBoolean || field.TypeIdentifier == schema.TypeJSON {
			return nil, coreerr.Validation("filter %s_%s is not supported on %s fields", field.Name, op, field.TypeIdentifier)
		}
		if v == nil {
			return nil, coreerr.Validation("filter %s_%s cannot be null", field.Name, op)
		}
	}
	cv, err := b.coerceScalar(field, v)
	if err != nil {
		return nil, err
	}
	return query.ScalarCondition{Field: field, Op: op, Value: cv}, nil
}

func (b *Builder) relationCondition(field *schema.RelationField, op query.RelationOp, v any) (query.Filter, error) {
	obj, ok := v.(*object)
	if !ok {
		return nil, coreerr.Validation("relation filter on %s expects an object, got %s", field.Name, describe(v))
	}
	var nested query.Filter
	if len(obj.fields) > 0 {
		var err error
		nested, err = b.extractFilter(field.RelatedModel(), obj)
		if err != nil {
			return nil, err
		}
	}
	return query.RelationCondition{Field: field, Op: op, Nested: nested}, nil
}

func isStringLike(field *schema.ScalarField) bool {
	switch field.TypeIdentifier {
	case schema.TypeString, schema.TypeGraphQLID:
		return true
	default:
		return false
	}
}
