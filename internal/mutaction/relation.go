package mutaction

import (
	"context"

	"query-engine/internal/coreerr"
	"query-engine/internal/query"
	"query-engine/internal/schema"
)

// Connect links the row matched by where to parentID through field. Existing
// links that the relation's cardinality does not allow alongside the new one
// are removed first.
func Connect(ctx context.Context, tx Transaction, parentID query.ID, where query.NodeSelector, field *schema.RelationField) error {
	childID, err := tx.FindID(ctx, where)
	if err != nil {
		return err
	}
	return ConnectIDs(ctx, tx, parentID, childID, field)
}

// ConnectIDs links two known rows through field.
func ConnectIDs(ctx context.Context, tx Transaction, parentID, childID query.ID, field *schema.RelationField) error {
	c := cardinalityOf(field)
	if connectNeedsCheck(c) {
		if err := checkConnect(ctx, tx, field, parentID, childID); err != nil {
			return err
		}
	}
	if !c.parentList {
		if err := tx.Write(ctx, RemoveParentLinks{Field: field, ParentID: parentID}); err != nil {
			return err
		}
	}
	if !c.childList {
		if err := tx.Write(ctx, RemoveChildLinks{Field: field, ChildID: childID}); err != nil {
			return err
		}
	}
	return tx.Write(ctx, CreateLink{Field: field, ParentID: parentID, ChildID: childID})
}

// Disconnect removes a link of parentID through field. Without a selector
// the parent's link is removed and must exist (a missing link on a required
// field is a relation violation); with a selector the exact pair must be
// linked.
func Disconnect(ctx context.Context, tx Transaction, parentID query.ID, where *query.NodeSelector, field *schema.RelationField) error {
	c := cardinalityOf(field)
	if disconnectNeedsCheck(c) {
		if err := checkParentUnlinked(ctx, tx, field, parentID); err != nil {
			return err
		}
	}

	if where == nil {
		children, err := tx.SelectIDs(ctx, LinkQuery{Field: field, ParentIDs: []query.ID{parentID}})
		if err != nil {
			return err
		}
		if len(children) == 0 {
			if c.parentRequired {
				return violation(field)
			}
			return notConnected(field, parentID)
		}
		return tx.Write(ctx, RemoveParentLinks{Field: field, ParentID: parentID})
	}

	childID, err := tx.FindID(ctx, *where)
	if err != nil {
		return err
	}
	if err := ensureConnected(ctx, tx, field, parentID, childID); err != nil {
		return err
	}
	return tx.Write(ctx, RemoveLink{Field: field, ParentID: parentID, ChildID: childID})
}

// Set replaces every link of parentID through field with links to the rows
// matched by wheres, in order. The required check runs once, against the
// first selector, before any link is removed. It stops at the first failure;
// links written before it are left to the caller's transaction.
func Set(ctx context.Context, tx Transaction, parentID query.ID, wheres []query.NodeSelector, field *schema.RelationField) error {
	c := cardinalityOf(field)
	var checked []query.ID
	if connectNeedsCheck(c) {
		if len(wheres) == 0 {
			return violation(field)
		}
		childID, err := tx.FindID(ctx, wheres[0])
		if err != nil {
			return err
		}
		if err := checkConnect(ctx, tx, field, parentID, childID); err != nil {
			return err
		}
		checked = append(checked, childID)
	}
	if err := tx.Write(ctx, RemoveParentLinks{Field: field, ParentID: parentID}); err != nil {
		return err
	}
	for i, where := range wheres {
		var childID query.ID
		if i < len(checked) {
			childID = checked[i]
		} else {
			id, err := tx.FindID(ctx, where)
			if err != nil {
				return err
			}
			childID = id
		}
		if !c.childList {
			if err := tx.Write(ctx, RemoveChildLinks{Field: field, ChildID: childID}); err != nil {
				return err
			}
		}
		if err := tx.Write(ctx, CreateLink{Field: field, ParentID: parentID, ChildID: childID}); err != nil {
			return err
		}
	}
	return nil
}

func ensureConnected(ctx context.Context, tx Transaction, field *schema.RelationField, parentID, childID query.ID) error {
	linked, err := tx.SelectIDs(ctx, LinkQuery{
		Field:     field,
		ParentIDs: []query.ID{parentID},
		ChildIDs:  []query.ID{childID},
	})
	if err != nil {
		return err
	}
	if len(linked) == 0 {
		return coreerr.NotFound("no %s %s is connected to %s %s through %s",
			field.RelatedModel().Name, childID, field.Model().Name, parentID, field.Name)
	}
	return nil
}

func notConnected(field *schema.RelationField, parentID query.ID) error {
	return coreerr.NotFound("%s %s has no %s to disconnect", field.Model().Name, parentID, field.Name)
}

// linkedChild resolves the child a nested update or delete targets: the row
// matched by where, which must be linked to parentID, or the single linked
// child of a singular relation.
func linkedChild(ctx context.Context, tx Transaction, parentID query.ID, where *query.NodeSelector, field *schema.RelationField) (query.ID, error) {
	if where != nil {
		childID, err := tx.FindID(ctx, *where)
		if err != nil {
			return query.ID{}, err
		}
		if err := ensureConnected(ctx, tx, field, parentID, childID); err != nil {
			return query.ID{}, err
		}
		return childID, nil
	}
	if field.IsList {
		return query.ID{}, coreerr.Validation("list relation %s needs a where selector", field.Name)
	}
	children, err := tx.SelectIDs(ctx, LinkQuery{Field: field, ParentIDs: []query.ID{parentID}})
	if err != nil {
		return query.ID{}, err
	}
	if len(children) == 0 {
		return query.ID{}, coreerr.NotFound("%s %s has no %s", field.Model().Name, parentID, field.Name)
	}
	return children[0], nil
}
