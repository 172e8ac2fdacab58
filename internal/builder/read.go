package builder

import (
	"github.com/graphql-go/graphql/language/ast"

	"query-engine/internal/coreerr"
	"query-engine/internal/query"
	"query-engine/internal/schema"
)

// BuildRead builds the read query for a root query field.
func (b *Builder) BuildRead(field *ast.Field) (query.ReadQuery, error) {
	if field == nil || field.Name == nil {
		return nil, coreerr.Validation("field is required")
	}
	inf, ok := b.Infer(field, nil)
	if !ok {
		return nil, coreerr.Validation("model not found for field %s", responseKey(field))
	}
	return b.buildRead(field, inf)
}

func (b *Builder) buildRead(field *ast.Field, inf Inference) (query.ReadQuery, error) {
	selected, nested, err := b.collectSelection(inf.Model, field)
	if err != nil {
		return nil, err
	}

	switch inf.Shape {
	case ShapeSingle:
		selector, err := b.whereSelector(field, inf.Model)
		if err != nil {
			return nil, err
		}
		return &query.RecordQuery{
			Name:     field.Name.Value,
			Alias:    aliasOf(field),
			Selector: selector,
			Selected: selected,
			Nested:   nested,
		}, nil
	case ShapeMany:
		args, err := b.extractQueryArgs(field, inf.Model)
		if err != nil {
			return nil, err
		}
		return &query.ManyRecordsQuery{
			Name:     field.Name.Value,
			Alias:    aliasOf(field),
			Model:    inf.Model,
			Args:     args,
			Selected: selected,
			Nested:   nested,
		}, nil
	case ShapeOneRelation:
		args, err := b.extractQueryArgs(field, inf.Model)
		if err != nil {
			return nil, err
		}
		return &query.RelatedRecordQuery{
			Name:        field.Name.Value,
			Alias:       aliasOf(field),
			ParentField: inf.Parent,
			Args:        args,
			Selected:    selected,
			Nested:      nested,
		}, nil
	case ShapeManyRelation:
		args, err := b.extractQueryArgs(field, inf.Model)
		if err != nil {
			return nil, err
		}
		return &query.ManyRelatedRecordsQuery{
			Name:        field.Name.Value,
			Alias:       aliasOf(field),
			ParentField: inf.Parent,
			Args:        args,
			Selected:    selected,
			Nested:      nested,
		}, nil
	default:
		return nil, coreerr.Validation("unknown shape for field %s", responseKey(field))
	}
}

// collectSelection validates the selection set of field against model and
// builds the nested relation queries in selection order.
func (b *Builder) collectSelection(model *schema.Model, field *ast.Field) (query.SelectedFields, []query.ReadQuery, error) {
	if field.SelectionSet == nil {
		return nil, nil, nil
	}
	var (
		selected query.SelectedFields
		nested   []query.ReadQuery
	)
	for _, selection := range field.SelectionSet.Selections {
		sub, ok := selection.(*ast.Field)
		if !ok {
			return nil, nil, coreerr.Unsupported("fragments and inline fragment spreads are not supported")
		}
		modelField, err := model.FindField(sub.Name.Value)
		if err != nil {
			return nil, nil, coreerr.Validation("selected field %s not found on model %s", sub.Name.Value, model.Name)
		}
		switch f := modelField.(type) {
		case *schema.ScalarField:
			if sub.SelectionSet != nil && len(sub.SelectionSet.Selections) > 0 {
				return nil, nil, coreerr.Validation("scalar field %s on model %s has no sub-selection", f.Name, model.Name)
			}
			selected = append(selected, query.SelectedScalarField{Field: f, Alias: aliasOf(sub)})
		case *schema.RelationField:
			inf, _ := b.Infer(sub, f)
			child, err := b.buildRead(sub, inf)
			if err != nil {
				return nil, nil, err
			}
			selected = append(selected, query.SelectedRelationField{Field: f, Alias: aliasOf(sub)})
			nested = append(nested, child)
		}
	}
	return selected, nested, nil
}

// whereSelector extracts the node selector from a field's where argument.
// Any other argument is rejected.
func (b *Builder) whereSelector(field *ast.Field, model *schema.Model) (query.NodeSelector, error) {
	args, err := b.evalArguments(field)
	if err != nil {
		return query.NodeSelector{}, err
	}
	var (
		where any
		found bool
	)
	for _, arg := range args {
		if arg.name != "where" {
			return query.NodeSelector{}, coreerr.Validation("unknown key: %s", arg.name)
		}
		where, found = arg.value, true
	}
	if !found {
		return query.NodeSelector{}, coreerr.Validation("field %s requires a where argument", responseKey(field))
	}
	return b.nodeSelector(model, where)
}
