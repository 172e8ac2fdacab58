package mutaction

import (
	"context"

	"query-engine/internal/coreerr"
	"query-engine/internal/query"
	"query-engine/internal/schema"
)

// cardinality is the (parent list, parent required, child list, child
// required) shape of a relation seen from the parent field.
type cardinality struct {
	parentList     bool
	parentRequired bool
	childList      bool
	childRequired  bool
}

func cardinalityOf(field *schema.RelationField) cardinality {
	c := cardinality{parentList: field.IsList, parentRequired: field.IsRequired}
	if related := field.RelatedField(); related != nil {
		c.childList = related.IsList
		c.childRequired = related.IsRequired
	}
	return c
}

// connectNeedsCheck: a required singular parent field over a singular child
// side is the only shape where connect can orphan another row.
func connectNeedsCheck(c cardinality) bool {
	return !c.parentList && c.parentRequired && !c.childList
}

var disconnectChecked = []cardinality{
	{false, true, false, true},
	{false, true, false, false},
	{false, false, false, true},
	{true, false, false, true},
	{false, true, true, false},
}

func disconnectNeedsCheck(c cardinality) bool {
	for _, checked := range disconnectChecked {
		if c == checked {
			return true
		}
	}
	return false
}

func violation(field *schema.RelationField) error {
	rel := field.Relation()
	if rel == nil {
		return coreerr.RelationViolation(field.RelationName, field.Model().Name, "")
	}
	return coreerr.RelationViolation(rel.Name, rel.ModelAName, rel.ModelBName)
}

// checkConnect fails when linking child to parent would take the child away
// from another parent that requires it, or, when the child side is required
// too, would leave the parent's current child without a parent.
func checkConnect(ctx context.Context, tx Transaction, field *schema.RelationField, parentID, childID query.ID) error {
	parents, err := tx.SelectIDs(ctx, LinkQuery{Field: field, ChildIDs: []query.ID{childID}, Select: SelectParents})
	if err != nil {
		return err
	}
	if containsOther(parents, parentID) {
		return violation(field)
	}
	if !cardinalityOf(field).childRequired {
		return nil
	}
	children, err := tx.SelectIDs(ctx, LinkQuery{Field: field, ParentIDs: []query.ID{parentID}})
	if err != nil {
		return err
	}
	if containsOther(children, childID) {
		return violation(field)
	}
	return nil
}

// checkParentUnlinked fails when the parent holds any link of field.
func checkParentUnlinked(ctx context.Context, tx Transaction, field *schema.RelationField, parentID query.ID) error {
	children, err := tx.SelectIDs(ctx, LinkQuery{Field: field, ParentIDs: []query.ID{parentID}})
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return violation(field)
	}
	return nil
}

func containsOther(ids []query.ID, self query.ID) bool {
	for _, id := range ids {
		if id != self {
			return true
		}
	}
	return false
}
