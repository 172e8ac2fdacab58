package engine

import (
	"query-engine/internal/builder"
	"query-engine/internal/mutaction"
	"query-engine/internal/query"
)

// Node is a printable summary of one planned operation tree.
type Node struct {
	Key    string   `json:"key"`
	Kind   string   `json:"kind"`
	Model  string   `json:"model"`
	Fields []string `json:"fields,omitempty"`
	Filter bool     `json:"filter,omitempty"`
	Nested []Node   `json:"nested,omitempty"`
}

// Summary is a printable summary of a plan.
type Summary struct {
	Operation string `json:"operation"`
	Name      string `json:"name,omitempty"`
	Roots     []Node `json:"roots"`
}

// Describe summarizes plan for display.
func Describe(plan *builder.Plan) Summary {
	s := Summary{Operation: plan.Operation, Name: plan.Name, Roots: []Node{}}
	for _, r := range plan.Reads {
		s.Roots = append(s.Roots, describeRead(r))
	}
	for _, w := range plan.Writes {
		s.Roots = append(s.Roots, describeWrite(w))
	}
	return s
}

func describeRead(r query.ReadQuery) Node {
	n := Node{
		Key:    keyOf(r.QueryAlias(), r.QueryName()),
		Model:  r.TargetModel().Name,
		Fields: r.Selection().Order(),
	}
	switch q := r.(type) {
	case *query.RecordQuery:
		n.Kind = "record"
	case *query.ManyRecordsQuery:
		n.Kind = "manyRecords"
		n.Filter = q.Args.Filter != nil
	case *query.RelatedRecordQuery:
		n.Kind = "relatedRecord"
		n.Filter = q.Args.Filter != nil
	case *query.ManyRelatedRecordsQuery:
		n.Kind = "manyRelatedRecords"
		n.Filter = q.Args.Filter != nil
	}
	for _, nested := range r.NestedQueries() {
		n.Nested = append(n.Nested, describeRead(nested))
	}
	return n
}

func describeWrite(w query.WriteQuery) Node {
	n := Node{
		Key:   keyOf(w.QueryAlias(), w.QueryName()),
		Kind:  mutaction.ActionName(w),
		Model: w.TargetModel().Name,
	}
	switch q := w.(type) {
	case *query.CreateNode:
		n.Fields, n.Nested = describeData(q.WriteData)
	case *query.UpdateNode:
		n.Fields, n.Nested = describeData(q.WriteData)
	case *query.DeleteNodes:
		n.Filter = q.Filter != nil
	case *query.UpdateNodes:
		n.Filter = q.Filter != nil
		n.Fields = argNames(q.Args, q.ListArgs)
	case *query.UpsertNode:
		n.Fields, n.Nested = describeData(q.Update.WriteData)
	}
	return n
}

func describeData(data query.WriteData) ([]string, []Node) {
	var nested []Node
	for _, m := range data.Nested {
		field := m.RelationField()
		n := Node{Key: field.Name, Kind: "nested." + mutaction.NestedActionName(m), Model: field.RelatedModel().Name}
		switch q := m.(type) {
		case *query.NestedCreate:
			n.Fields, n.Nested = describeData(q.Data)
		case *query.NestedUpdate:
			n.Fields, n.Nested = describeData(q.Data)
		case *query.NestedUpsert:
			n.Fields, n.Nested = describeData(q.Update)
		case *query.NestedUpdateMany:
			n.Filter = q.Filter != nil
			n.Fields = argNames(q.Args, q.ListArgs)
		case *query.NestedDeleteMany:
			n.Filter = q.Filter != nil
		}
		nested = append(nested, n)
	}
	return argNames(data.Args, data.ListArgs), nested
}

func argNames(args query.Args, lists []query.ListArg) []string {
	var out []string
	for _, a := range args {
		out = append(out, a.Field.Name)
	}
	for _, l := range lists {
		out = append(out, l.Field.Name)
	}
	return out
}

func keyOf(alias, name string) string {
	if alias != "" {
		return alias
	}
	return name
}
