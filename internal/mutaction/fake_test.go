package mutaction

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"query-engine/internal/coreerr"
	"query-engine/internal/query"
	"query-engine/internal/schema"
)

type link struct {
	a, b query.ID
}

// memTx is an in-memory Transaction that records every call.
type memTx struct {
	rows   map[string]map[query.ID]query.Args
	order  map[string][]query.ID
	links  map[string][]link
	lists  map[string]map[query.ID][]any
	calls  []string
	nextID int64
	failOn string
	// maxIDs is the longest id list any single call received.
	maxIDs int
}

func newMemTx() *memTx {
	return &memTx{
		rows:  map[string]map[query.ID]query.Args{},
		order: map[string][]query.ID{},
		links: map[string][]link{},
		lists: map[string]map[query.ID][]any{},
	}
}

func (m *memTx) track(ids ...[]query.ID) {
	for _, list := range ids {
		m.maxIDs = max(m.maxIDs, len(list))
	}
}

func (m *memTx) record(call string) error {
	m.calls = append(m.calls, call)
	if m.failOn != "" && m.failOn == call {
		return coreerr.Storage("injected", fmt.Errorf("%s failed", call))
	}
	return nil
}

// insert adds a row with the given id, bypassing call recording.
func (m *memTx) insert(model, id string, args ...any) query.ID {
	rowID := query.StringID(id)
	if m.rows[model] == nil {
		m.rows[model] = map[query.ID]query.Args{}
	}
	row := query.Args{}
	for i := 0; i+1 < len(args); i += 2 {
		row = append(row, query.Arg{Field: &schema.ScalarField{Name: args[i].(string)}, Value: args[i+1]})
	}
	row.Set(&schema.ScalarField{Name: "id"}, id)
	m.rows[model][rowID] = row
	m.order[model] = append(m.order[model], rowID)
	return rowID
}

// connect adds a link through field, bypassing call recording.
func (m *memTx) connect(field *schema.RelationField, parent, child query.ID) {
	m.links[field.RelationName] = append(m.links[field.RelationName], makeLink(field, parent, child))
}

func makeLink(field *schema.RelationField, parent, child query.ID) link {
	if field.Column() == "A" {
		return link{a: parent, b: child}
	}
	return link{a: child, b: parent}
}

func sides(field *schema.RelationField, l link) (parent, child query.ID) {
	if field.Column() == "A" {
		return l.a, l.b
	}
	return l.b, l.a
}

func (m *memTx) linked(field *schema.RelationField, parent, child query.ID) bool {
	for _, l := range m.links[field.RelationName] {
		p, c := sides(field, l)
		if p == parent && c == child {
			return true
		}
	}
	return false
}

func (m *memTx) SelectIDs(_ context.Context, q LinkQuery) ([]query.ID, error) {
	m.track(q.ParentIDs, q.ChildIDs)
	if err := m.record("select " + q.Field.Name); err != nil {
		return nil, err
	}
	var out []query.ID
	for _, l := range m.links[q.Field.RelationName] {
		p, c := sides(q.Field, l)
		if len(q.ParentIDs) > 0 && !slices.Contains(q.ParentIDs, p) {
			continue
		}
		if len(q.ChildIDs) > 0 && !slices.Contains(q.ChildIDs, c) {
			continue
		}
		if q.Select == SelectParents {
			out = append(out, p)
		} else {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memTx) FindID(_ context.Context, sel query.NodeSelector) (query.ID, error) {
	if err := m.record(fmt.Sprintf("find %s %v", sel.Model.Name, sel.Value)); err != nil {
		return query.ID{}, err
	}
	for _, id := range m.order[sel.Model.Name] {
		row, ok := m.rows[sel.Model.Name][id]
		if !ok {
			continue
		}
		if v, ok := row.Get(sel.Field.Name); ok && v == sel.Value {
			return id, nil
		}
	}
	return query.ID{}, coreerr.NotFound("no %s where %s = %v", sel.Model.Name, sel.Field.Name, sel.Value)
}

func (m *memTx) Write(_ context.Context, mut LinkMutation) error {
	field := mut.LinkField()
	switch w := mut.(type) {
	case CreateLink:
		if err := m.record("link " + field.Name); err != nil {
			return err
		}
		m.connect(field, w.ParentID, w.ChildID)
	case RemoveLink:
		if err := m.record("unlink " + field.Name); err != nil {
			return err
		}
		m.removeLinks(field, func(p, c query.ID) bool { return p == w.ParentID && c == w.ChildID })
	case RemoveParentLinks:
		if err := m.record("unlink-parent " + field.Name); err != nil {
			return err
		}
		m.removeLinks(field, func(p, _ query.ID) bool { return p == w.ParentID })
	case RemoveChildLinks:
		if err := m.record("unlink-child " + field.Name); err != nil {
			return err
		}
		m.removeLinks(field, func(_, c query.ID) bool { return c == w.ChildID })
	}
	return nil
}

func (m *memTx) removeLinks(field *schema.RelationField, match func(parent, child query.ID) bool) {
	m.links[field.RelationName] = slices.DeleteFunc(m.links[field.RelationName], func(l link) bool {
		p, c := sides(field, l)
		return match(p, c)
	})
}

func (m *memTx) Update(_ context.Context, u UpdateRows) error {
	m.track(u.IDs)
	if err := m.record(fmt.Sprintf("update %s %d", u.Model.Name, len(u.IDs))); err != nil {
		return err
	}
	for _, id := range u.IDs {
		row := m.rows[u.Model.Name][id]
		for _, arg := range u.Args {
			row.Set(arg.Field, arg.Value)
		}
		m.rows[u.Model.Name][id] = row
	}
	return nil
}

func (m *memTx) FilterIDs(_ context.Context, model *schema.Model, filter query.Filter) ([]query.ID, error) {
	if err := m.record("filter " + model.Name); err != nil {
		return nil, err
	}
	var out []query.ID
	for _, id := range m.order[model.Name] {
		if row, ok := m.rows[model.Name][id]; ok && matches(row, filter) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *memTx) FilterIDsByParents(_ context.Context, field *schema.RelationField, parentIDs []query.ID, filter query.Filter) ([]query.ID, error) {
	if err := m.record("filter-by-parent " + field.Name); err != nil {
		return nil, err
	}
	related := field.RelatedModel().Name
	var out []query.ID
	for _, l := range m.links[field.RelationName] {
		p, c := sides(field, l)
		if !slices.Contains(parentIDs, p) {
			continue
		}
		if row, ok := m.rows[related][c]; ok && matches(row, filter) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memTx) Create(_ context.Context, model *schema.Model, args query.Args) (query.ID, error) {
	if err := m.record("create " + model.Name); err != nil {
		return query.ID{}, err
	}
	var id query.ID
	if v, ok := args.Get("id"); ok {
		id = query.StringID(v.(string))
	} else {
		m.nextID++
		id = query.IntID(m.nextID)
	}
	if m.rows[model.Name] == nil {
		m.rows[model.Name] = map[query.ID]query.Args{}
	}
	m.rows[model.Name][id] = append(query.Args(nil), args...)
	m.order[model.Name] = append(m.order[model.Name], id)
	return id, nil
}

func (m *memTx) Delete(_ context.Context, model *schema.Model, ids []query.ID) error {
	m.track(ids)
	if err := m.record("delete " + model.Name + " " + strconv.Itoa(len(ids))); err != nil {
		return err
	}
	for _, id := range ids {
		delete(m.rows[model.Name], id)
	}
	return nil
}

func (m *memTx) ReplaceList(_ context.Context, u ListUpdate) error {
	m.track(u.IDs)
	if err := m.record("list " + u.Field.Name); err != nil {
		return err
	}
	key := u.Field.Name
	if m.lists[key] == nil {
		m.lists[key] = map[query.ID][]any{}
	}
	for _, id := range u.IDs {
		m.lists[key][id] = u.Values
	}
	return nil
}

// matches supports the equality conditions the tests use.
func matches(row query.Args, filter query.Filter) bool {
	switch f := filter.(type) {
	case nil:
		return true
	case query.ScalarCondition:
		v, _ := row.Get(f.Field.Name)
		return v == f.Value
	case query.And:
		for _, sub := range f.Filters {
			if !matches(row, sub) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
