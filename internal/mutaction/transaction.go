// Package mutaction executes write trees against a Transaction: relation
// link maintenance (connect, disconnect, set), batched updates and the
// top-level create/update/delete/upsert flows with their nested mutations.
//
// The package never commits or rolls back. The caller owns the transaction
// and decides its fate from the returned error.
package mutaction

import (
	"context"

	"query-engine/internal/query"
	"query-engine/internal/schema"
)

// Transaction is the storage capability used by the executors. All calls of
// one operation happen sequentially on the same transaction.
type Transaction interface {
	// SelectIDs returns ids from the links of a relation.
	SelectIDs(ctx context.Context, q LinkQuery) ([]query.ID, error)
	// FindID resolves a selector to a row id. It returns a coreerr NotFound
	// error when no row matches.
	FindID(ctx context.Context, sel query.NodeSelector) (query.ID, error)
	// Write applies a link mutation.
	Write(ctx context.Context, m LinkMutation) error
	// Update assigns scalar values to the given rows.
	Update(ctx context.Context, u UpdateRows) error
	// FilterIDs returns the ids of model rows matching filter. A nil filter
	// matches every row.
	FilterIDs(ctx context.Context, model *schema.Model, filter query.Filter) ([]query.ID, error)
	// FilterIDsByParents returns the ids of rows linked through field to any of
	// parentIDs that also match filter.
	FilterIDsByParents(ctx context.Context, field *schema.RelationField, parentIDs []query.ID, filter query.Filter) ([]query.ID, error)
	// Create inserts a row and returns its id.
	Create(ctx context.Context, model *schema.Model, args query.Args) (query.ID, error)
	// Delete removes rows together with their relation links and scalar list values.
	Delete(ctx context.Context, model *schema.Model, ids []query.ID) error
	// ReplaceList replaces the values of a scalar list field for the given rows.
	ReplaceList(ctx context.Context, u ListUpdate) error
}

// LinkSide picks which end of a link LinkQuery returns.
type LinkSide int

const (
	// SelectChildren returns the ids stored in the opposite column of Field.
	SelectChildren LinkSide = iota
	// SelectParents returns the ids stored in Field's own column.
	SelectParents
)

// LinkQuery selects ids from the links of Field. Parents are rows of
// Field's model, children are rows of the related model. Empty id lists do
// not restrict the query.
type LinkQuery struct {
	Field     *schema.RelationField
	ParentIDs []query.ID
	ChildIDs  []query.ID
	Select    LinkSide
}

// LinkMutation is a closed set of link writes.
type LinkMutation interface {
	LinkField() *schema.RelationField
	linkMutation()
}

// CreateLink links parent to child.
type CreateLink struct {
	Field    *schema.RelationField
	ParentID query.ID
	ChildID  query.ID
}

// RemoveLink removes the link between parent and child.
type RemoveLink struct {
	Field    *schema.RelationField
	ParentID query.ID
	ChildID  query.ID
}

// RemoveParentLinks removes every link of the parent.
type RemoveParentLinks struct {
	Field    *schema.RelationField
	ParentID query.ID
}

// RemoveChildLinks removes every link of the child.
type RemoveChildLinks struct {
	Field   *schema.RelationField
	ChildID query.ID
}

func (m CreateLink) LinkField() *schema.RelationField        { return m.Field }
func (m RemoveLink) LinkField() *schema.RelationField        { return m.Field }
func (m RemoveParentLinks) LinkField() *schema.RelationField { return m.Field }
func (m RemoveChildLinks) LinkField() *schema.RelationField  { return m.Field }

func (CreateLink) linkMutation()        {}
func (RemoveLink) linkMutation()        {}
func (RemoveParentLinks) linkMutation() {}
func (RemoveChildLinks) linkMutation()  {}

// UpdateRows assigns Args to the rows identified by IDs.
type UpdateRows struct {
	Model *schema.Model
	IDs   []query.ID
	Args  query.Args
}

// ListUpdate replaces the scalar list Field of every row in IDs with Values.
// A nil Values clears the list.
type ListUpdate struct {
	Field  *schema.ScalarField
	IDs    []query.ID
	Values []any
}
