// Package schema holds the immutable schema graph: models, fields, relations and
// enums for one schema version. The graph owns every model and relation; fields
// refer back to them by name through the graph, so navigation works in both
// directions without ownership cycles.
package schema

import (
	"sync"

	"query-engine/internal/coreerr"
)

// Enum is a named, ordered set of values.
type Enum struct {
	Name   string
	Values []string
}

// Contains reports whether value is one of the enum's values.
func (e Enum) Contains(value string) bool {
	for _, v := range e.Values {
		if v == value {
			return true
		}
	}
	return false
}

// Graph is the schema graph. It is read-only once Build returns and safe for
// concurrent use.
type Graph struct {
	dbName  string
	version *string

	models    []*Model
	relations []*Relation
	enums     []Enum

	modelIndex    map[string]*Model
	relationIndex map[string]*Relation
	enumIndex     map[string]int

	relationFields func() []*RelationField
}

func newGraph(dbName string, version *string) *Graph {
	g := &Graph{
		dbName:        dbName,
		version:       version,
		modelIndex:    make(map[string]*Model),
		relationIndex: make(map[string]*Relation),
		enumIndex:     make(map[string]int),
	}
	g.relationFields = sync.OnceValue(g.collectRelationFields)
	return g
}

// DBName returns the database (or schema) name the graph is deployed to.
func (g *Graph) DBName() string {
	return g.dbName
}

// Version returns the schema version tag, or "" for legacy schemas.
func (g *Graph) Version() string {
	if g.version == nil {
		return ""
	}
	return *g.version
}

// IsLegacy reports whether the schema carries no version tag.
func (g *Graph) IsLegacy() bool {
	return g.version == nil
}

// Models returns all models in template order.
func (g *Graph) Models() []*Model {
	return g.models
}

// Relations returns all relations in template order.
func (g *Graph) Relations() []*Relation {
	return g.relations
}

// Enums returns all enums in template order.
func (g *Graph) Enums() []Enum {
	return g.enums
}

// FindModel returns the model with exactly the given name.
func (g *Graph) FindModel(name string) (*Model, error) {
	if model, ok := g.modelIndex[name]; ok {
		return model, nil
	}
	return nil, coreerr.NotFound("model %q not found", name)
}

// FindRelation returns the relation with exactly the given name.
func (g *Graph) FindRelation(name string) (*Relation, error) {
	if relation, ok := g.relationIndex[name]; ok {
		return relation, nil
	}
	return nil, coreerr.NotFound("relation %q not found", name)
}

// FindEnum returns the enum with exactly the given name.
func (g *Graph) FindEnum(name string) (Enum, error) {
	if idx, ok := g.enumIndex[name]; ok {
		return g.enums[idx], nil
	}
	return Enum{}, coreerr.NotFound("enum %q not found", name)
}

// RelationFields returns every relation field across all models. The index is
// computed on first call and reused afterwards; concurrent first calls compute
// it once.
func (g *Graph) RelationFields() []*RelationField {
	return g.relationFields()
}

func (g *Graph) collectRelationFields() []*RelationField {
	var out []*RelationField
	for _, model := range g.models {
		out = append(out, model.RelationFields()...)
	}
	return out
}

// FieldsRequiringModel returns the relation fields that point at model and are
// both required and singular. A row of model linked through one of these fields
// cannot be removed without orphaning the other side.
func (g *Graph) FieldsRequiringModel(model *Model) []*RelationField {
	var out []*RelationField
	for _, rf := range g.RelationFields() {
		if rf.IsRequired && !rf.IsList && rf.RelatedModel() == model {
			out = append(out, rf)
		}
	}
	return out
}
