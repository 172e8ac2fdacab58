package builder

import (
	"math"
	"strings"

	"github.com/graphql-go/graphql/language/ast"

	"query-engine/internal/coreerr"
	"query-engine/internal/query"
	"query-engine/internal/schema"
)

// extractQueryArgs folds the field's arguments left to right. Keys match
// case-insensitively; a repeated key overwrites the earlier value.
func (b *Builder) extractQueryArgs(field *ast.Field, model *schema.Model) (query.QueryArguments, error) {
	var out query.QueryArguments
	args, err := b.evalArguments(field)
	if err != nil {
		return out, err
	}
	for _, arg := range args {
		switch strings.ToLower(arg.name) {
		case "skip":
			n, err := uint32Arg(arg)
			if err != nil {
				return out, err
			}
			out.Skip = &n
		case "first":
			n, err := uint32Arg(arg)
			if err != nil {
				return out, err
			}
			out.First = &n
		case "last":
			n, err := uint32Arg(arg)
			if err != nil {
				return out, err
			}
			out.Last = &n
		case "after":
			id, err := cursorArg(arg)
			if err != nil {
				return out, err
			}
			out.After = &id
		case "before":
			id, err := cursorArg(arg)
			if err != nil {
				return out, err
			}
			out.Before = &id
		case "orderby":
			orderBy, err := extractOrderBy(arg.value, model)
			if err != nil {
				return out, err
			}
			out.OrderBy = &orderBy
		case "where":
			obj, ok := arg.value.(*object)
			if !ok {
				return out, coreerr.Validation("where must be an object, got %s", describe(arg.value))
			}
			filter, err := b.extractFilter(model, obj)
			if err != nil {
				return out, err
			}
			out.Filter = filter
		default:
			return out, coreerr.Validation("unknown key: %s", arg.name)
		}
	}
	return out, nil
}

func uint32Arg(arg argument) (uint32, error) {
	n, ok := arg.value.(int64)
	if !ok {
		return 0, coreerr.Validation("%s must be an Int, got %s", arg.name, describe(arg.value))
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, coreerr.Validation("invalid number provided for %s: %d", arg.name, n)
	}
	return uint32(n), nil
}

func cursorArg(arg argument) (query.ID, error) {
	switch v := arg.value.(type) {
	case string:
		return query.ParseID(v), nil
	case int64:
		if v < 0 {
			return query.ID{}, coreerr.Validation("invalid number provided for %s: %d", arg.name, v)
		}
		return query.IntID(v), nil
	default:
		return query.ID{}, coreerr.Validation("%s must be a String or Int, got %s", arg.name, describe(arg.value))
	}
}

// extractOrderBy parses "<field>_ASC" or "<field>_DESC".
func extractOrderBy(v any, model *schema.Model) (query.OrderBy, error) {
	var raw string
	switch t := v.(type) {
	case enumValue:
		raw = string(t)
	case string:
		raw = t
	default:
		return query.OrderBy{}, coreerr.Validation("orderBy must be an Enum, got %s", describe(v))
	}
	idx := strings.LastIndex(raw, "_")
	if idx <= 0 {
		return query.OrderBy{}, coreerr.Validation("invalid orderBy value %q", raw)
	}
	fieldName, dir := raw[:idx], raw[idx+1:]

	var order query.SortOrder
	switch dir {
	case "ASC":
		order = query.Ascending
	case "DESC":
		order = query.Descending
	default:
		return query.OrderBy{}, coreerr.Validation("invalid sort order %q in orderBy", dir)
	}
	field, err := model.FindScalarField(fieldName)
	if err != nil || field.IsList {
		return query.OrderBy{}, coreerr.Validation("unknown field %s in orderBy on model %s", fieldName, model.Name)
	}
	return query.OrderBy{Field: field, SortOrder: order}, nil
}
