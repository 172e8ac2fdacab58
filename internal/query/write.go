package query

import (
	"query-engine/internal/schema"
)

// WriteQuery is one of CreateNode, UpdateNode, DeleteNode, DeleteNodes,
// UpdateNodes and UpsertNode.
type WriteQuery interface {
	QueryName() string
	QueryAlias() string
	TargetModel() *schema.Model
	writeQuery()
}

// CreateNode inserts one row.
type CreateNode struct {
	Name  string
	Alias string
	Model *schema.Model
	WriteData
}

// UpdateNode updates the row identified by Selector.
type UpdateNode struct {
	Name     string
	Alias    string
	Selector NodeSelector
	WriteData
}

// DeleteNode deletes the row identified by Selector.
type DeleteNode struct {
	Name     string
	Alias    string
	Selector NodeSelector
}

// DeleteNodes deletes every row of Model matching Filter. A nil Filter matches all rows.
type DeleteNodes struct {
	Name   string
	Alias  string
	Model  *schema.Model
	Filter Filter
}

// UpdateNodes applies scalar and list updates to every row of Model matching
// Filter. A nil Filter matches all rows.
type UpdateNodes struct {
	Name     string
	Alias    string
	Model    *schema.Model
	Filter   Filter
	Args     Args
	ListArgs []ListArg
}

// UpsertNode updates the row identified by Selector, or creates it when absent.
type UpsertNode struct {
	Name     string
	Alias    string
	Selector NodeSelector
	Create   CreateNode
	Update   UpdateNode
}

func (q *CreateNode) QueryName() string          { return q.Name }
func (q *CreateNode) QueryAlias() string         { return q.Alias }
func (q *CreateNode) TargetModel() *schema.Model { return q.Model }
func (*CreateNode) writeQuery()                  {}

func (q *UpdateNode) QueryName() string          { return q.Name }
func (q *UpdateNode) QueryAlias() string         { return q.Alias }
func (q *UpdateNode) TargetModel() *schema.Model { return q.Selector.Model }
func (*UpdateNode) writeQuery()                  {}

func (q *DeleteNode) QueryName() string          { return q.Name }
func (q *DeleteNode) QueryAlias() string         { return q.Alias }
func (q *DeleteNode) TargetModel() *schema.Model { return q.Selector.Model }
func (*DeleteNode) writeQuery()                  {}

func (q *DeleteNodes) QueryName() string          { return q.Name }
func (q *DeleteNodes) QueryAlias() string         { return q.Alias }
func (q *DeleteNodes) TargetModel() *schema.Model { return q.Model }
func (*DeleteNodes) writeQuery()                  {}

func (q *UpdateNodes) QueryName() string          { return q.Name }
func (q *UpdateNodes) QueryAlias() string         { return q.Alias }
func (q *UpdateNodes) TargetModel() *schema.Model { return q.Model }
func (*UpdateNodes) writeQuery()                  {}

func (q *UpsertNode) QueryName() string          { return q.Name }
func (q *UpsertNode) QueryAlias() string         { return q.Alias }
func (q *UpsertNode) TargetModel() *schema.Model { return q.Selector.Model }
func (*UpsertNode) writeQuery()                  {}

// NestedMutation is a write scoped to a relation field of a parent row.
// Variants: NestedCreate, NestedUpdate, NestedUpsert, NestedDelete,
// NestedConnect, NestedDisconnect, NestedSet, NestedUpdateMany and
// NestedDeleteMany.
type NestedMutation interface {
	RelationField() *schema.RelationField
	nestedMutation()
}

// NestedCreate creates a related row and links it to the parent.
type NestedCreate struct {
	Field *schema.RelationField
	Data  WriteData
}

// NestedUpdate updates a related row. Where is nil for singular relations.
type NestedUpdate struct {
	Field *schema.RelationField
	Where *NodeSelector
	Data  WriteData
}

// NestedUpsert updates a related row or creates and links one. Where is nil
// for singular relations.
type NestedUpsert struct {
	Field  *schema.RelationField
	Where  *NodeSelector
	Create WriteData
	Update WriteData
}

// NestedDelete deletes a related row. Where is nil for singular relations.
type NestedDelete struct {
	Field *schema.RelationField
	Where *NodeSelector
}

// NestedConnect links an existing row to the parent.
type NestedConnect struct {
	Field *schema.RelationField
	Where NodeSelector
}

// NestedDisconnect unlinks a related row. Where is nil for singular relations.
type NestedDisconnect struct {
	Field *schema.RelationField
	Where *NodeSelector
}

// NestedSet replaces the parent's links with exactly the selected rows.
type NestedSet struct {
	Field  *schema.RelationField
	Wheres []NodeSelector
}

// NestedUpdateMany updates the related rows matching Filter, or all related rows.
type NestedUpdateMany struct {
	Field    *schema.RelationField
	Filter   Filter
	Args     Args
	ListArgs []ListArg
}

// NestedDeleteMany deletes the related rows matching Filter, or all related rows.
type NestedDeleteMany struct {
	Field  *schema.RelationField
	Filter Filter
}

func (m *NestedCreate) RelationField() *schema.RelationField     { return m.Field }
func (m *NestedUpdate) RelationField() *schema.RelationField     { return m.Field }
func (m *NestedUpsert) RelationField() *schema.RelationField     { return m.Field }
func (m *NestedDelete) RelationField() *schema.RelationField     { return m.Field }
func (m *NestedConnect) RelationField() *schema.RelationField    { return m.Field }
func (m *NestedDisconnect) RelationField() *schema.RelationField { return m.Field }
func (m *NestedSet) RelationField() *schema.RelationField        { return m.Field }
func (m *NestedUpdateMany) RelationField() *schema.RelationField { return m.Field }
func (m *NestedDeleteMany) RelationField() *schema.RelationField { return m.Field }

func (*NestedCreate) nestedMutation()     {}
func (*NestedUpdate) nestedMutation()     {}
func (*NestedUpsert) nestedMutation()     {}
func (*NestedDelete) nestedMutation()     {}
func (*NestedConnect) nestedMutation()    {}
func (*NestedDisconnect) nestedMutation() {}
func (*NestedSet) nestedMutation()        {}
func (*NestedUpdateMany) nestedMutation() {}
func (*NestedDeleteMany) nestedMutation() {}
