package query

import (
	"query-engine/internal/schema"
)

// SelectedField is a SelectedScalarField or a SelectedRelationField.
type SelectedField interface {
	ResponseKey() string
	selectedField()
}

// SelectedScalarField selects a scalar field.
type SelectedScalarField struct {
	Field *schema.ScalarField
	Alias string
}

// SelectedRelationField selects a relation field; its nested query lives in the
// parent's Nested slice at the same position among relation selections.
type SelectedRelationField struct {
	Field *schema.RelationField
	Alias string
}

// ResponseKey returns the alias, or the field name when there is none.
func (s SelectedScalarField) ResponseKey() string { return responseKey(s.Alias, s.Field.Name) }

// ResponseKey returns the alias, or the field name when there is none.
func (s SelectedRelationField) ResponseKey() string { return responseKey(s.Alias, s.Field.Name) }

func (SelectedScalarField) selectedField()   {}
func (SelectedRelationField) selectedField() {}

func responseKey(alias, name string) string {
	if alias != "" {
		return alias
	}
	return name
}

// SelectedFields lists selections in request order.
type SelectedFields []SelectedField

// Order returns the response keys in selection order.
func (s SelectedFields) Order() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.ResponseKey()
	}
	return out
}

// ReadQuery is one of RecordQuery, ManyRecordsQuery, RelatedRecordQuery and
// ManyRelatedRecordsQuery.
type ReadQuery interface {
	QueryName() string
	QueryAlias() string
	TargetModel() *schema.Model
	Selection() SelectedFields
	NestedQueries() []ReadQuery
	readQuery()
}

// RecordQuery reads one row by node selector.
type RecordQuery struct {
	Name     string
	Alias    string
	Selector NodeSelector
	Selected SelectedFields
	Nested   []ReadQuery
}

// ManyRecordsQuery reads a collection of rows.
type ManyRecordsQuery struct {
	Name     string
	Alias    string
	Model    *schema.Model
	Args     QueryArguments
	Selected SelectedFields
	Nested   []ReadQuery
}

// RelatedRecordQuery reads the single row related to a parent through a
// singular relation field.
type RelatedRecordQuery struct {
	Name        string
	Alias       string
	ParentField *schema.RelationField
	Args        QueryArguments
	Selected    SelectedFields
	Nested      []ReadQuery
}

// ManyRelatedRecordsQuery reads the rows related to a parent through a list
// relation field.
type ManyRelatedRecordsQuery struct {
	Name        string
	Alias       string
	ParentField *schema.RelationField
	Args        QueryArguments
	Selected    SelectedFields
	Nested      []ReadQuery
}

func (q *RecordQuery) QueryName() string          { return q.Name }
func (q *RecordQuery) QueryAlias() string         { return q.Alias }
func (q *RecordQuery) TargetModel() *schema.Model { return q.Selector.Model }
func (q *RecordQuery) Selection() SelectedFields  { return q.Selected }
func (q *RecordQuery) NestedQueries() []ReadQuery { return q.Nested }
func (*RecordQuery) readQuery()                   {}

func (q *ManyRecordsQuery) QueryName() string          { return q.Name }
func (q *ManyRecordsQuery) QueryAlias() string         { return q.Alias }
func (q *ManyRecordsQuery) TargetModel() *schema.Model { return q.Model }
func (q *ManyRecordsQuery) Selection() SelectedFields  { return q.Selected }
func (q *ManyRecordsQuery) NestedQueries() []ReadQuery { return q.Nested }
func (*ManyRecordsQuery) readQuery()                   {}

func (q *RelatedRecordQuery) QueryName() string          { return q.Name }
func (q *RelatedRecordQuery) QueryAlias() string         { return q.Alias }
func (q *RelatedRecordQuery) TargetModel() *schema.Model { return q.ParentField.RelatedModel() }
func (q *RelatedRecordQuery) Selection() SelectedFields  { return q.Selected }
func (q *RelatedRecordQuery) NestedQueries() []ReadQuery { return q.Nested }
func (*RelatedRecordQuery) readQuery()                   {}

func (q *ManyRelatedRecordsQuery) QueryName() string          { return q.Name }
func (q *ManyRelatedRecordsQuery) QueryAlias() string         { return q.Alias }
func (q *ManyRelatedRecordsQuery) TargetModel() *schema.Model { return q.ParentField.RelatedModel() }
func (q *ManyRelatedRecordsQuery) Selection() SelectedFields  { return q.Selected }
func (q *ManyRelatedRecordsQuery) NestedQueries() []ReadQuery { return q.Nested }
func (*ManyRelatedRecordsQuery) readQuery()                   {}
