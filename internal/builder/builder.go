// Package builder turns request fields into typed read and write operation
// trees validated against the schema graph.
package builder

import (
	"github.com/graphql-go/graphql/language/ast"

	"query-engine/internal/naming"
	"query-engine/internal/schema"
)

// Builder builds operation trees for one request. It holds no mutable state
// and may be reused for every root field of the request.
type Builder struct {
	graph *schema.Graph
	namer *naming.Namer
	vars  map[string]any
}

// Option customizes a Builder.
type Option func(*Builder)

// WithNamer overrides the namer used to derive root field names.
func WithNamer(namer *naming.Namer) Option {
	return func(b *Builder) {
		if namer != nil {
			b.namer = namer
		}
	}
}

// WithVariables binds request variables referenced by $name in arguments.
func WithVariables(vars map[string]any) Option {
	return func(b *Builder) {
		b.vars = vars
	}
}

// New creates a Builder over graph.
func New(graph *schema.Graph, opts ...Option) *Builder {
	b := &Builder{
		graph: graph,
		namer: naming.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.vars == nil {
		b.vars = map[string]any{}
	}
	return b
}

// Shape is the query shape a request field denotes.
type Shape int

const (
	ShapeSingle Shape = iota + 1
	ShapeMany
	ShapeOneRelation
	ShapeManyRelation
)

func (s Shape) String() string {
	switch s {
	case ShapeSingle:
		return "single"
	case ShapeMany:
		return "many"
	case ShapeOneRelation:
		return "one_relation"
	case ShapeManyRelation:
		return "many_relation"
	default:
		return "unknown"
	}
}

// Inference is the outcome of shape inference for one field.
type Inference struct {
	Shape  Shape
	Model  *schema.Model
	Parent *schema.RelationField
}

// Infer decides the shape of field. Under a parent relation field the shape
// follows the parent's cardinality and the model is the related model. At the
// root the first model, in schema order, whose single-query name (single) or
// many-query name (many) equals the field name wins.
func (b *Builder) Infer(field *ast.Field, parent *schema.RelationField) (Inference, bool) {
	if parent != nil {
		shape := ShapeOneRelation
		if parent.IsList {
			shape = ShapeManyRelation
		}
		return Inference{Shape: shape, Model: parent.RelatedModel(), Parent: parent}, true
	}
	if field == nil || field.Name == nil {
		return Inference{}, false
	}
	name := field.Name.Value
	for _, model := range b.graph.Models() {
		if name == b.namer.SingleQueryName(model.Name) {
			return Inference{Shape: ShapeSingle, Model: model}, true
		}
		if name == b.namer.ManyQueryName(model.Name) {
			return Inference{Shape: ShapeMany, Model: model}, true
		}
	}
	return Inference{}, false
}

func responseKey(field *ast.Field) string {
	if field.Alias != nil && field.Alias.Value != "" {
		return field.Alias.Value
	}
	return field.Name.Value
}

func aliasOf(field *ast.Field) string {
	if field.Alias != nil {
		return field.Alias.Value
	}
	return ""
}
