package builder

import (
	"query-engine/internal/coreerr"
	"query-engine/internal/query"
	"query-engine/internal/schema"
)

// nestedMutations parses the object under a relation field inside create or
// update data. Keys are processed in request order.
func (b *Builder) nestedMutations(field *schema.RelationField, obj *object) ([]query.NestedMutation, error) {
	related := field.RelatedModel()
	var out []query.NestedMutation

	for _, entry := range obj.fields {
		switch entry.name {
		case "create":
			items, err := b.nestedItems(field, entry)
			if err != nil {
				return nil, err
			}
			for _, item := range items {
				data, err := b.nestedData(field, item)
				if err != nil {
					return nil, err
				}
				out = append(out, &query.NestedCreate{Field: field, Data: data})
			}

		case "connect":
			items, err := b.nestedItems(field, entry)
			if err != nil {
				return nil, err
			}
			for _, item := range items {
				selector, err := b.nodeSelector(related, item)
				if err != nil {
					return nil, err
				}
				out = append(out, &query.NestedConnect{Field: field, Where: selector})
			}

		case "set":
			if err := requireList(field, entry.name); err != nil {
				return nil, err
			}
			items, err := setItems(entry.value)
			if err != nil {
				return nil, coreerr.Validation("set on %s: %v", field.Name, err)
			}
			selectors := make([]query.NodeSelector, 0, len(items))
			for _, item := range items {
				selector, err := b.nodeSelector(related, item)
				if err != nil {
					return nil, err
				}
				selectors = append(selectors, selector)
			}
			out = append(out, &query.NestedSet{Field: field, Wheres: selectors})

		case "disconnect", "delete":
			selectors, err := b.optionalSelectors(field, entry)
			if err != nil {
				return nil, err
			}
			for _, selector := range selectors {
				if entry.name == "disconnect" {
					out = append(out, &query.NestedDisconnect{Field: field, Where: selector})
				} else {
					out = append(out, &query.NestedDelete{Field: field, Where: selector})
				}
			}

		case "update":
			items, err := b.nestedItems(field, entry)
			if err != nil {
				return nil, err
			}
			for _, item := range items {
				m, err := b.nestedUpdate(field, item)
				if err != nil {
					return nil, err
				}
				out = append(out, m)
			}

		case "upsert":
			items, err := b.nestedItems(field, entry)
			if err != nil {
				return nil, err
			}
			for _, item := range items {
				m, err := b.nestedUpsert(field, item)
				if err != nil {
					return nil, err
				}
				out = append(out, m)
			}

		case "updateMany":
			if err := requireList(field, entry.name); err != nil {
				return nil, err
			}
			items, err := itemsOf(entry.value)
			if err != nil {
				return nil, coreerr.Validation("updateMany on %s: %v", field.Name, err)
			}
			for _, item := range items {
				m, err := b.nestedUpdateMany(field, item)
				if err != nil {
					return nil, err
				}
				out = append(out, m)
			}

		case "deleteMany":
			if err := requireList(field, entry.name); err != nil {
				return nil, err
			}
			items, err := itemsOf(entry.value)
			if err != nil {
				return nil, coreerr.Validation("deleteMany on %s: %v", field.Name, err)
			}
			for _, item := range items {
				filter, err := b.optionalFilter(related, item, true)
				if err != nil {
					return nil, err
				}
				out = append(out, &query.NestedDeleteMany{Field: field, Filter: filter})
			}

		default:
			return nil, coreerr.Validation("unknown nested mutation %s on relation field %s", entry.name, field.Name)
		}
	}
	return out, nil
}

// nestedItems accepts one object or a list of objects; singular relations
// accept at most one.
func (b *Builder) nestedItems(field *schema.RelationField, entry objectField) ([]*object, error) {
	items, err := itemsOf(entry.value)
	if err != nil {
		return nil, coreerr.Validation("%s on %s: %v", entry.name, field.Name, err)
	}
	if !field.IsList && len(items) > 1 {
		return nil, coreerr.Validation("%s on singular relation field %s accepts a single object", entry.name, field.Name)
	}
	return items, nil
}

// optionalSelectors reads the value of disconnect or delete. Singular
// relations take true (or false for a no-op) instead of a selector.
func (b *Builder) optionalSelectors(field *schema.RelationField, entry objectField) ([]*query.NodeSelector, error) {
	if flag, ok := entry.value.(bool); ok {
		if field.IsList {
			return nil, coreerr.Validation("%s on list relation field %s requires node selectors", entry.name, field.Name)
		}
		if !flag {
			return nil, nil
		}
		return []*query.NodeSelector{nil}, nil
	}
	items, err := b.nestedItems(field, entry)
	if err != nil {
		return nil, err
	}
	out := make([]*query.NodeSelector, 0, len(items))
	for _, item := range items {
		selector, err := b.nodeSelector(field.RelatedModel(), item)
		if err != nil {
			return nil, err
		}
		out = append(out, &selector)
	}
	return out, nil
}

func (b *Builder) nestedData(field *schema.RelationField, obj *object) (query.WriteData, error) {
	var wd query.WriteData
	err := b.collectData(&wd, field.RelatedModel(), obj, field, true)
	return wd, err
}

// nestedUpdate reads {where, data} on list relations and plain data on
// singular relations.
func (b *Builder) nestedUpdate(field *schema.RelationField, obj *object) (query.NestedMutation, error) {
	if !field.IsList {
		data, err := b.nestedData(field, obj)
		if err != nil {
			return nil, err
		}
		return &query.NestedUpdate{Field: field, Data: data}, nil
	}
	if err := onlyKeys(obj, "update on "+field.Name, "where", "data"); err != nil {
		return nil, err
	}
	whereValue, _ := obj.get("where")
	selector, err := b.nodeSelector(field.RelatedModel(), whereValue)
	if err != nil {
		return nil, err
	}
	dataObj, err := objectEntry(obj, "data", "update on "+field.Name)
	if err != nil {
		return nil, err
	}
	data, err := b.nestedData(field, dataObj)
	if err != nil {
		return nil, err
	}
	return &query.NestedUpdate{Field: field, Where: &selector, Data: data}, nil
}

// nestedUpsert reads {where, create, update}; where is omitted on singular relations.
func (b *Builder) nestedUpsert(field *schema.RelationField, obj *object) (query.NestedMutation, error) {
	scope := "upsert on " + field.Name
	m := &query.NestedUpsert{Field: field}
	if field.IsList {
		if err := onlyKeys(obj, scope, "where", "create", "update"); err != nil {
			return nil, err
		}
		whereValue, _ := obj.get("where")
		selector, err := b.nodeSelector(field.RelatedModel(), whereValue)
		if err != nil {
			return nil, err
		}
		m.Where = &selector
	} else if err := onlyKeys(obj, scope, "create", "update"); err != nil {
		return nil, err
	}

	createObj, err := objectEntry(obj, "create", scope)
	if err != nil {
		return nil, err
	}
	if m.Create, err = b.nestedData(field, createObj); err != nil {
		return nil, err
	}
	updateObj, err := objectEntry(obj, "update", scope)
	if err != nil {
		return nil, err
	}
	if m.Update, err = b.nestedData(field, updateObj); err != nil {
		return nil, err
	}
	return m, nil
}

// nestedUpdateMany reads {where?, data}; data cannot nest further.
func (b *Builder) nestedUpdateMany(field *schema.RelationField, obj *object) (query.NestedMutation, error) {
	scope := "updateMany on " + field.Name
	if err := onlyKeys(obj, scope, "where", "data"); err != nil {
		return nil, err
	}
	related := field.RelatedModel()
	whereValue, hasWhere := obj.get("where")
	filter, err := b.optionalFilter(related, whereValue, hasWhere)
	if err != nil {
		return nil, err
	}
	dataObj, err := objectEntry(obj, "data", scope)
	if err != nil {
		return nil, err
	}
	var wd query.WriteData
	if err := b.collectData(&wd, related, dataObj, field, false); err != nil {
		return nil, err
	}
	return &query.NestedUpdateMany{Field: field, Filter: filter, Args: wd.Args, ListArgs: wd.ListArgs}, nil
}

func requireList(field *schema.RelationField, action string) error {
	if !field.IsList {
		return coreerr.Validation("%s is only allowed on list relation fields, %s is singular", action, field.Name)
	}
	return nil
}

// setItems accepts a list of selectors, a single selector, or an empty list.
func setItems(v any) ([]*object, error) {
	if list, ok := v.([]any); ok && len(list) == 0 {
		return nil, nil
	}
	return itemsOf(v)
}

func onlyKeys(obj *object, scope string, allowed ...string) error {
	for _, f := range obj.fields {
		known := false
		for _, a := range allowed {
			if f.name == a {
				known = true
				break
			}
		}
		if !known {
			return coreerr.Validation("%s: unknown key %s", scope, f.name)
		}
	}
	return nil
}

func objectEntry(obj *object, key, scope string) (*object, error) {
	v, ok := obj.get(key)
	if !ok {
		return nil, coreerr.Validation("%s: missing %s", scope, key)
	}
	child, ok := v.(*object)
	if !ok {
		return nil, coreerr.Validation("%s: %s must be an object, got %s", scope, key, describe(v))
	}
	return child, nil
}
