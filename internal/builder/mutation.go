package builder

import (
	"strings"

	"github.com/graphql-go/graphql/language/ast"

	"query-engine/internal/coreerr"
	"query-engine/internal/query"
	"query-engine/internal/schema"
)

// Action is a top-level mutation action.
type Action int

const (
	ActionCreate Action = iota + 1
	ActionUpdate
	ActionUpdateMany
	ActionDelete
	ActionDeleteMany
	ActionUpsert
	ActionReset
)

func (a Action) String() string {
	for _, p := range mutationActions {
		if p.action == a {
			return p.prefix
		}
	}
	return "unknown"
}

// mutationActions is ordered so that longer prefixes sharing a stem come first.
var mutationActions = []struct {
	prefix string
	action Action
}{
	{"create", ActionCreate},
	{"updateMany", ActionUpdateMany},
	{"update", ActionUpdate},
	{"deleteMany", ActionDeleteMany},
	{"delete", ActionDelete},
	{"upsert", ActionUpsert},
	{"reset", ActionReset},
}

// ParseMutationName splits a mutation field name into its action and target
// model, e.g. "deleteManyPosts" -> (deleteMany, Post).
func (b *Builder) ParseMutationName(name string) (Action, *schema.Model, error) {
	for _, p := range mutationActions {
		if !strings.HasPrefix(name, p.prefix) {
			continue
		}
		if p.action == ActionReset {
			return 0, nil, coreerr.Unsupported("mutation action reset is not supported")
		}
		remainder := strings.TrimPrefix(name, p.prefix)
		if remainder == "" {
			return 0, nil, coreerr.Validation("no model name for action %s", name)
		}
		model, err := b.graph.FindModel(b.namer.ModelNameFromMutation(remainder))
		if err != nil {
			return 0, nil, coreerr.Validation("model not found for mutation %s", name)
		}
		return p.action, model, nil
	}
	return 0, nil, coreerr.Validation("unknown action: %s", name)
}

// BuildWrite builds the write query for a root mutation field.
func (b *Builder) BuildWrite(field *ast.Field) (query.WriteQuery, error) {
	if field == nil || field.Name == nil {
		return nil, coreerr.Validation("field is required")
	}
	name := field.Name.Value
	action, model, err := b.ParseMutationName(name)
	if err != nil {
		return nil, err
	}
	args, err := b.evalArguments(field)
	if err != nil {
		return nil, err
	}

	var (
		where    any
		hasWhere bool
		data     []argument
	)
	for _, arg := range args {
		if arg.name == "where" {
			where, hasWhere = arg.value, true
			continue
		}
		data = append(data, arg)
	}
	alias := aliasOf(field)

	switch action {
	case ActionCreate:
		wd, err := b.writeData(model, data, nil, true)
		if err != nil {
			return nil, err
		}
		return &query.CreateNode{Name: name, Alias: alias, Model: model, WriteData: wd}, nil

	case ActionUpdate:
		selector, err := b.requiredSelector(model, where, hasWhere, name)
		if err != nil {
			return nil, err
		}
		wd, err := b.writeData(model, data, nil, true)
		if err != nil {
			return nil, err
		}
		return &query.UpdateNode{Name: name, Alias: alias, Selector: selector, WriteData: wd}, nil

	case ActionDelete:
		if len(data) > 0 {
			return nil, coreerr.Validation("unknown key: %s", data[0].name)
		}
		selector, err := b.requiredSelector(model, where, hasWhere, name)
		if err != nil {
			return nil, err
		}
		return &query.DeleteNode{Name: name, Alias: alias, Selector: selector}, nil

	case ActionDeleteMany:
		if len(data) > 0 {
			return nil, coreerr.Validation("unknown key: %s", data[0].name)
		}
		filter, err := b.optionalFilter(model, where, hasWhere)
		if err != nil {
			return nil, err
		}
		return &query.DeleteNodes{Name: name, Alias: alias, Model: model, Filter: filter}, nil

	case ActionUpdateMany:
		filter, err := b.optionalFilter(model, where, hasWhere)
		if err != nil {
			return nil, err
		}
		wd, err := b.writeData(model, data, nil, false)
		if err != nil {
			return nil, err
		}
		return &query.UpdateNodes{Name: name, Alias: alias, Model: model, Filter: filter, Args: wd.Args, ListArgs: wd.ListArgs}, nil

	case ActionUpsert:
		selector, err := b.requiredSelector(model, where, hasWhere, name)
		if err != nil {
			return nil, err
		}
		createData, updateData, err := b.upsertData(model, data)
		if err != nil {
			return nil, err
		}
		return &query.UpsertNode{
			Name:     name,
			Alias:    alias,
			Selector: selector,
			Create:   query.CreateNode{Name: name, Model: model, WriteData: createData},
			Update:   query.UpdateNode{Name: name, Selector: selector, WriteData: updateData},
		}, nil
	}
	return nil, coreerr.Validation("unknown action: %s", name)
}

// upsertData gives each branch its own arguments when the field carries both a
// create and an update object; otherwise both branches share all arguments.
func (b *Builder) upsertData(model *schema.Model, data []argument) (query.WriteData, query.WriteData, error) {
	var createArg, updateArg *argument
	for i := range data {
		switch data[i].name {
		case "create":
			createArg = &data[i]
		case "update":
			updateArg = &data[i]
		}
	}
	if createArg != nil && updateArg != nil {
		if len(data) != 2 {
			return query.WriteData{}, query.WriteData{}, coreerr.Validation("upsert with create and update accepts no other data arguments")
		}
		create, err := b.writeData(model, []argument{*createArg}, nil, true)
		if err != nil {
			return query.WriteData{}, query.WriteData{}, err
		}
		update, err := b.writeData(model, []argument{*updateArg}, nil, true)
		if err != nil {
			return query.WriteData{}, query.WriteData{}, err
		}
		return create, update, nil
	}
	shared, err := b.writeData(model, data, nil, true)
	if err != nil {
		return query.WriteData{}, query.WriteData{}, err
	}
	return shared, shared, nil
}

func (b *Builder) requiredSelector(model *schema.Model, where any, hasWhere bool, name string) (query.NodeSelector, error) {
	if !hasWhere {
		return query.NodeSelector{}, coreerr.Validation("mutation %s requires a where argument", name)
	}
	return b.nodeSelector(model, where)
}

// optionalFilter validates a where filter; a missing or empty where means all rows.
func (b *Builder) optionalFilter(model *schema.Model, where any, hasWhere bool) (query.Filter, error) {
	if !hasWhere || where == nil {
		return nil, nil
	}
	obj, ok := where.(*object)
	if !ok {
		return nil, coreerr.Validation("where must be an object, got %s", describe(where))
	}
	if len(obj.fields) == 0 {
		return nil, nil
	}
	return b.extractFilter(model, obj)
}

// writeData partitions the entries of every data argument into scalar
// assignments, list replacements and nested mutations. Each argument must be
// an object. parent is the relation field a nested payload hangs off; its
// back-relation cannot be written from inside the payload.
func (b *Builder) writeData(model *schema.Model, args []argument, parent *schema.RelationField, allowNested bool) (query.WriteData, error) {
	var wd query.WriteData
	for _, arg := range args {
		obj, ok := arg.value.(*object)
		if !ok {
			return wd, coreerr.Validation("argument %s must be an object, got %s", arg.name, describe(arg.value))
		}
		if err := b.collectData(&wd, model, obj, parent, allowNested); err != nil {
			return wd, err
		}
	}
	return wd, nil
}

func (b *Builder) collectData(wd *query.WriteData, model *schema.Model, obj *object, parent *schema.RelationField, allowNested bool) error {
	for _, entry := range obj.fields {
		field, err := model.FindField(entry.name)
		if err != nil {
			return coreerr.Validation("unknown field %s on model %s", entry.name, model.Name)
		}
		switch f := field.(type) {
		case *schema.RelationField:
			if !allowNested {
				return coreerr.Validation("nested mutation on %s.%s is not allowed here", model.Name, f.Name)
			}
			if parent != nil && f == parent.RelatedField() {
				return coreerr.Validation("relation field %s.%s is managed by the enclosing mutation", model.Name, f.Name)
			}
			nestedObj, ok := entry.value.(*object)
			if !ok {
				return coreerr.Validation("relation field %s.%s expects an object, got %s", model.Name, f.Name, describe(entry.value))
			}
			nested, err := b.nestedMutations(f, nestedObj)
			if err != nil {
				return err
			}
			wd.Nested = append(wd.Nested, nested...)

		case *schema.ScalarField:
			if f.IsList {
				listArg, err := b.listArg(model, f, entry.value)
				if err != nil {
					return err
				}
				wd.ListArgs = append(wd.ListArgs, listArg)
				continue
			}
			if _, isObj := entry.value.(*object); isObj {
				return coreerr.Validation("field %s.%s expects a scalar value, got Object", model.Name, f.Name)
			}
			value, err := b.coerceScalar(f, entry.value)
			if err != nil {
				return err
			}
			if value == nil && f.IsRequired {
				return coreerr.Validation("required field %s.%s cannot be null", model.Name, f.Name)
			}
			wd.Args.Set(f, value)
		}
	}
	return nil
}

// listArg reads {set: [...]} for a scalar list field.
func (b *Builder) listArg(model *schema.Model, field *schema.ScalarField, v any) (query.ListArg, error) {
	obj, ok := v.(*object)
	if !ok {
		return query.ListArg{}, coreerr.Validation("list field %s.%s expects {set: [...]}, got %s", model.Name, field.Name, describe(v))
	}
	setValue, ok := obj.get("set")
	if !ok || len(obj.fields) != 1 {
		return query.ListArg{}, coreerr.Validation("list field %s.%s expects exactly one key, set", model.Name, field.Name)
	}
	var items []any
	switch t := setValue.(type) {
	case []any:
		items = t
	case nil:
		items = nil
	default:
		return query.ListArg{}, coreerr.Validation("set on %s.%s expects a List, got %s", model.Name, field.Name, describe(setValue))
	}
	values := make([]any, 0, len(items))
	for _, item := range items {
		cv, err := b.coerceScalar(field, item)
		if err != nil {
			return query.ListArg{}, err
		}
		if cv == nil {
			return query.ListArg{}, coreerr.Validation("set on %s.%s cannot contain null", model.Name, field.Name)
		}
		values = append(values, cv)
	}
	return query.ListArg{Field: field, Values: values}, nil
}
