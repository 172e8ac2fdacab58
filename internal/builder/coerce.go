package builder

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"query-engine/internal/coreerr"
	"query-engine/internal/query"
	"query-engine/internal/schema"
)

// coerceScalar converts v to the storage representation of field's type.
// nil passes through; callers decide whether null is acceptable.
func (b *Builder) coerceScalar(field *schema.ScalarField, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	mismatch := func() error {
		return coreerr.Validation("field %s expects %s, got %s", field.Name, field.TypeIdentifier, describe(v))
	}

	switch field.TypeIdentifier {
	case schema.TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch()
		}
		return s, nil
	case schema.TypeGraphQLID:
		switch t := v.(type) {
		case string:
			return t, nil
		case int64:
			return strconv.FormatInt(t, 10), nil
		}
		return nil, mismatch()
	case schema.TypeUUID:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch()
		}
		u, err := uuid.Parse(s)
		if err != nil {
			return nil, coreerr.Validation("field %s expects a UUID: %v", field.Name, err)
		}
		return u.String(), nil
	case schema.TypeInt:
		i, ok := v.(int64)
		if !ok {
			return nil, mismatch()
		}
		return i, nil
	case schema.TypeFloat:
		switch t := v.(type) {
		case float64:
			return t, nil
		case int64:
			return float64(t), nil
		}
		return nil, mismatch()
	case schema.TypeBoolean:
		bv, ok := v.(bool)
		if !ok {
			return nil, mismatch()
		}
		return bv, nil
	case schema.TypeDateTime:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch()
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, coreerr.Validation("field %s expects an RFC 3339 timestamp: %v", field.Name, err)
		}
		return ts.UTC(), nil
	case schema.TypeJSON:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch()
		}
		if !json.Valid([]byte(s)) {
			return nil, coreerr.Validation("field %s expects a JSON document", field.Name)
		}
		return s, nil
	case schema.TypeEnum:
		var name string
		switch t := v.(type) {
		case enumValue:
			name = string(t)
		case string:
			name = t
		default:
			return nil, mismatch()
		}
		enum, err := b.graph.FindEnum(field.Enum)
		if err != nil {
			return nil, err
		}
		if !enum.Contains(name) {
			return nil, coreerr.Validation("value %s is not a member of enum %s", name, enum.Name)
		}
		return name, nil
	default:
		return nil, mismatch()
	}
}

// nodeSelector builds a selector from an object with exactly one entry naming
// a unique scalar field.
func (b *Builder) nodeSelector(model *schema.Model, v any) (query.NodeSelector, error) {
	obj, ok := v.(*object)
	if !ok {
		return query.NodeSelector{}, coreerr.Validation("node selector for %s must be an object, got %s", model.Name, describe(v))
	}
	if len(obj.fields) != 1 {
		return query.NodeSelector{}, coreerr.Validation("node selector for %s must name exactly one unique field, got %d", model.Name, len(obj.fields))
	}
	entry := obj.fields[0]
	unique := model.UniqueFields()
	i := slices.IndexFunc(unique, func(f *schema.ScalarField) bool { return f.Name == entry.name })
	if i < 0 {
		names := make([]string, len(unique))
		for j, f := range unique {
			names[j] = f.Name
		}
		return query.NodeSelector{}, coreerr.Validation("field %s is not a unique field of model %s (expected one of %s)",
			entry.name, model.Name, strings.Join(names, ", "))
	}
	field := unique[i]
	value, err := b.coerceScalar(field, entry.value)
	if err != nil {
		return query.NodeSelector{}, err
	}
	if value == nil {
		return query.NodeSelector{}, coreerr.Validation("node selector value for %s.%s cannot be null", model.Name, field.Name)
	}
	return query.NodeSelector{Model: model, Field: field, Value: value}, nil
}
