package builder

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/graphql-go/graphql/language/ast"

	"query-engine/internal/coreerr"
)

// object is an argument object with its entries in request order.
type object struct {
	fields []objectField
}

type objectField struct {
	name  string
	value any
}

func (o *object) get(name string) (any, bool) {
	for _, f := range o.fields {
		if f.name == name {
			return f.value, true
		}
	}
	return nil, false
}

func (o *object) keys() []string {
	out := make([]string, len(o.fields))
	for i, f := range o.fields {
		out[i] = f.name
	}
	return out
}

// enumValue is an unquoted enum literal.
type enumValue string

// argument is one evaluated field argument.
type argument struct {
	name  string
	value any
}

// evalArguments resolves literals and variables of field arguments in order.
func (b *Builder) evalArguments(field *ast.Field) ([]argument, error) {
	out := make([]argument, 0, len(field.Arguments))
	for _, arg := range field.Arguments {
		if arg == nil || arg.Name == nil {
			continue
		}
		v, err := b.evalValue(arg.Value)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", arg.Name.Value, err)
		}
		out = append(out, argument{name: arg.Name.Value, value: v})
	}
	return out, nil
}

// evalValue converts an AST value into int64, float64, string, bool,
// enumValue, []any, *object or nil.
func (b *Builder) evalValue(v ast.Value) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *ast.Variable:
		name := t.Name.Value
		val, ok := b.vars[name]
		if !ok {
			return nil, coreerr.Validation("variable $%s is not defined", name)
		}
		return fromVariable(val)
	case *ast.IntValue:
		i, err := strconv.ParseInt(t.Value, 10, 64)
		if err != nil {
			return nil, coreerr.Validation("invalid number provided: %s", t.Value)
		}
		return i, nil
	case *ast.FloatValue:
		f, err := strconv.ParseFloat(t.Value, 64)
		if err != nil {
			return nil, coreerr.Validation("invalid number provided: %s", t.Value)
		}
		return f, nil
	case *ast.StringValue:
		return t.Value, nil
	case *ast.BooleanValue:
		return t.Value, nil
	case *ast.EnumValue:
		return enumValue(t.Value), nil
	case *ast.ListValue:
		out := make([]any, 0, len(t.Values))
		for _, item := range t.Values {
			val, err := b.evalValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	case *ast.ObjectValue:
		obj := &object{fields: make([]objectField, 0, len(t.Fields))}
		for _, f := range t.Fields {
			val, err := b.evalValue(f.Value)
			if err != nil {
				return nil, err
			}
			obj.fields = append(obj.fields, objectField{name: f.Name.Value, value: val})
		}
		return obj, nil
	default:
		return nil, coreerr.Validation("unsupported value %T", v)
	}
}

// fromVariable normalizes a decoded JSON variable value. Object keys are
// sorted since JSON objects carry no order.
func fromVariable(v any) (any, error) {
	switch t := v.(type) {
	case evaluated:
		return t.value, nil
	case nil, string, bool, int64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, coreerr.Validation("invalid number provided: %s", t)
		}
		return f, nil
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int64(t), nil
		}
		return t, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			val, err := fromVariable(item)
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := &object{fields: make([]objectField, 0, len(t))}
		for _, k := range keys {
			val, err := fromVariable(t[k])
			if err != nil {
				return nil, err
			}
			obj.fields = append(obj.fields, objectField{name: k, value: val})
		}
		return obj, nil
	default:
		return nil, coreerr.Validation("unsupported variable value %T", v)
	}
}

// describe names a value's type for error messages.
func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case int64:
		return "Int"
	case float64:
		return "Float"
	case string:
		return "String"
	case bool:
		return "Boolean"
	case enumValue:
		return "Enum"
	case []any:
		return "List"
	case *object:
		return "Object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// itemsOf accepts a single object or a list of objects.
func itemsOf(v any) ([]*object, error) {
	switch t := v.(type) {
	case *object:
		return []*object{t}, nil
	case []any:
		out := make([]*object, 0, len(t))
		for _, item := range t {
			obj, ok := item.(*object)
			if !ok {
				return nil, coreerr.Validation("expected an object, got %s", describe(item))
			}
			out = append(out, obj)
		}
		return out, nil
	default:
		return nil, coreerr.Validation("expected an object or a list of objects, got %s", describe(v))
	}
}
