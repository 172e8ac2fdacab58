package query

import (
	"query-engine/internal/schema"
)

// SortOrder is the direction of an ordering.
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

func (s SortOrder) String() string {
	if s == Descending {
		return "DESC"
	}
	return "ASC"
}

// OrderBy orders a collection by one scalar field.
type OrderBy struct {
	Field     *schema.ScalarField
	SortOrder SortOrder
}

// QueryArguments are the recognized collection arguments. Unset options are nil.
type QueryArguments struct {
	Skip    *uint32
	First   *uint32
	Last    *uint32
	After   *ID
	Before  *ID
	OrderBy *OrderBy
	Filter  Filter
}

// Arg is one scalar assignment.
type Arg struct {
	Field *schema.ScalarField
	Value any
}

// Args is an ordered set of scalar assignments keyed by field name.
type Args []Arg

// Set assigns value to field, replacing an earlier assignment in place.
func (a *Args) Set(field *schema.ScalarField, value any) {
	for i := range *a {
		if (*a)[i].Field.Name == field.Name {
			(*a)[i].Value = value
			return
		}
	}
	*a = append(*a, Arg{Field: field, Value: value})
}

// Get returns the value assigned to the named field.
func (a Args) Get(name string) (any, bool) {
	for _, arg := range a {
		if arg.Field.Name == name {
			return arg.Value, true
		}
	}
	return nil, false
}

// ListArg replaces the whole content of a scalar list field.
type ListArg struct {
	Field  *schema.ScalarField
	Values []any
}

// WriteData is the payload of a create or update: scalar assignments, list
// replacements and nested mutations, applied in that order.
type WriteData struct {
	Args     Args
	ListArgs []ListArg
	Nested   []NestedMutation
}

// NodeSelector identifies exactly one row through a unique field.
type NodeSelector struct {
	Model *schema.Model
	Field *schema.ScalarField
	Value any
}
