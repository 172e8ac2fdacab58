package schema

import (
	"query-engine/internal/coreerr"
)

// Field is either a *ScalarField or a *RelationField.
type Field interface {
	FieldName() string
	IsListField() bool
	IsRequiredField() bool
	field()
}

// Model is one model of the schema graph.
type Model struct {
	Name   string
	DBName string
	Fields []Field

	graph      *Graph
	fieldIndex map[string]Field
}

// Graph returns the graph that owns the model.
func (m *Model) Graph() *Graph {
	return m.graph
}

// TableName returns the storage table of the model.
func (m *Model) TableName() string {
	if m.DBName != "" {
		return m.DBName
	}
	return m.Name
}

// FindField returns the field with exactly the given name.
func (m *Model) FindField(name string) (Field, error) {
	if f, ok := m.fieldIndex[name]; ok {
		return f, nil
	}
	return nil, coreerr.NotFound("field %q not found on model %s", name, m.Name)
}

// FindScalarField returns the scalar field with the given name.
func (m *Model) FindScalarField(name string) (*ScalarField, error) {
	f, ok := m.fieldIndex[name]
	if !ok {
		return nil, coreerr.NotFound("scalar field %q not found on model %s", name, m.Name)
	}
	sf, ok := f.(*ScalarField)
	if !ok {
		return nil, coreerr.NotFound("field %q on model %s is not a scalar field", name, m.Name)
	}
	return sf, nil
}

// FindRelationField returns the relation field with the given name.
func (m *Model) FindRelationField(name string) (*RelationField, error) {
	f, ok := m.fieldIndex[name]
	if !ok {
		return nil, coreerr.NotFound("relation field %q not found on model %s", name, m.Name)
	}
	rf, ok := f.(*RelationField)
	if !ok {
		return nil, coreerr.NotFound("field %q on model %s is not a relation field", name, m.Name)
	}
	return rf, nil
}

// ScalarFields returns the scalar fields in declaration order.
func (m *Model) ScalarFields() []*ScalarField {
	var out []*ScalarField
	for _, f := range m.Fields {
		if sf, ok := f.(*ScalarField); ok {
			out = append(out, sf)
		}
	}
	return out
}

// RelationFields returns the relation fields in declaration order.
func (m *Model) RelationFields() []*RelationField {
	var out []*RelationField
	for _, f := range m.Fields {
		if rf, ok := f.(*RelationField); ok {
			out = append(out, rf)
		}
	}
	return out
}

// IDField returns the model's id field. Build guarantees it exists.
func (m *Model) IDField() *ScalarField {
	for _, sf := range m.ScalarFields() {
		if sf.IsID {
			return sf
		}
	}
	return nil
}

// UniqueFields returns the fields usable in a node selector: the id field
// followed by every other unique scalar field.
func (m *Model) UniqueFields() []*ScalarField {
	var out []*ScalarField
	for _, sf := range m.ScalarFields() {
		if sf.IsID || sf.IsUnique {
			out = append(out, sf)
		}
	}
	return out
}

// ScalarField is a non-relation field.
type ScalarField struct {
	Name           string
	TypeIdentifier TypeIdentifier
	IsList         bool
	IsRequired     bool
	IsUnique       bool
	IsID           bool
	Enum           string

	model *Model
}

func (f *ScalarField) FieldName() string     { return f.Name }
func (f *ScalarField) IsListField() bool     { return f.IsList }
func (f *ScalarField) IsRequiredField() bool { return f.IsRequired }
func (*ScalarField) field()                  {}

// Model returns the model declaring the field.
func (f *ScalarField) Model() *Model {
	return f.model
}

// ListTable returns the table storing the values of a scalar list field.
func (f *ScalarField) ListTable() string {
	return f.model.TableName() + "_" + f.Name
}

// RelationField is one endpoint of a relation. It holds lookup keys only; the
// relation and the related model are resolved through the graph.
type RelationField struct {
	Name         string
	RelationName string
	RelationSide RelationSide
	IsList       bool
	IsRequired   bool

	model *Model
}

func (f *RelationField) FieldName() string     { return f.Name }
func (f *RelationField) IsListField() bool     { return f.IsList }
func (f *RelationField) IsRequiredField() bool { return f.IsRequired }
func (*RelationField) field()                  {}

// Model returns the model declaring the field.
func (f *RelationField) Model() *Model {
	return f.model
}

// Relation returns the relation this field is an endpoint of.
func (f *RelationField) Relation() *Relation {
	return f.model.graph.relationIndex[f.RelationName]
}

// RelatedModel returns the model on the other side of the relation.
func (f *RelationField) RelatedModel() *Model {
	rel := f.Relation()
	if f.RelationSide == SideA {
		return rel.ModelB()
	}
	return rel.ModelA()
}

// RelatedField returns the opposite endpoint of the relation.
func (f *RelationField) RelatedField() *RelationField {
	rel := f.Relation()
	if f.RelationSide == SideA {
		return rel.FieldB()
	}
	return rel.FieldA()
}

// Column returns the link-table column holding this field's own model id.
func (f *RelationField) Column() string {
	return string(f.RelationSide)
}

// OppositeColumn returns the link-table column holding the related model id.
func (f *RelationField) OppositeColumn() string {
	return string(f.RelationSide.Opposite())
}

// Relation links two models through a link table with columns A and B.
type Relation struct {
	Name       string
	ModelAName string
	ModelBName string
	TableName  string

	graph  *Graph
	fieldA *RelationField
	fieldB *RelationField
}

// ModelA returns the model stored in column A.
func (r *Relation) ModelA() *Model {
	return r.graph.modelIndex[r.ModelAName]
}

// ModelB returns the model stored in column B.
func (r *Relation) ModelB() *Model {
	return r.graph.modelIndex[r.ModelBName]
}

// FieldA returns the endpoint declared on side A.
func (r *Relation) FieldA() *RelationField {
	return r.fieldA
}

// FieldB returns the endpoint declared on side B.
func (r *Relation) FieldB() *RelationField {
	return r.fieldB
}

// Table returns the link table name.
func (r *Relation) Table() string {
	if r.TableName != "" {
		return r.TableName
	}
	return "_" + r.Name
}
