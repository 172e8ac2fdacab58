package query

import (
	"query-engine/internal/schema"
)

// Filter is a row predicate. Variants: And, Or, Not, ScalarCondition and
// RelationCondition.
type Filter interface {
	filter()
}

// And holds when every filter holds. An empty And matches every row.
type And struct {
	Filters []Filter
}

// Or holds when at least one filter holds. An empty Or matches no row.
type Or struct {
	Filters []Filter
}

// Not holds when none of the filters hold.
type Not struct {
	Filters []Filter
}

// ScalarOp is a comparison against a scalar field.
type ScalarOp int

const (
	OpEquals ScalarOp = iota
	OpNotEquals
	OpIn
	OpNotIn
	OpLessThan
	OpLessThanOrEquals
	OpGreaterThan
	OpGreaterThanOrEquals
	OpContains
	OpNotContains
	OpStartsWith
	OpNotStartsWith
	OpEndsWith
	OpNotEndsWith
)

var scalarOpNames = [...]string{
	OpEquals:              "equals",
	OpNotEquals:           "not",
	OpIn:                  "in",
	OpNotIn:               "not_in",
	OpLessThan:            "lt",
	OpLessThanOrEquals:    "lte",
	OpGreaterThan:         "gt",
	OpGreaterThanOrEquals: "gte",
	OpContains:            "contains",
	OpNotContains:         "not_contains",
	OpStartsWith:          "starts_with",
	OpNotStartsWith:       "not_starts_with",
	OpEndsWith:            "ends_with",
	OpNotEndsWith:         "not_ends_with",
}

func (op ScalarOp) String() string {
	if int(op) < len(scalarOpNames) {
		return scalarOpNames[op]
	}
	return "unknown"
}

// ScalarCondition compares a scalar field with a value. For OpIn and OpNotIn
// Value is a []any. A nil Value with OpEquals or OpNotEquals tests for null.
type ScalarCondition struct {
	Field *schema.ScalarField
	Op    ScalarOp
	Value any
}

// RelationOp quantifies a relation filter.
type RelationOp int

const (
	// RelationSome holds when at least one related row matches.
	RelationSome RelationOp = iota
	// RelationEvery holds when all related rows match.
	RelationEvery
	// RelationNone holds when no related row matches.
	RelationNone
	// RelationToOne holds when the single related row matches.
	RelationToOne
)

func (op RelationOp) String() string {
	switch op {
	case RelationSome:
		return "some"
	case RelationEvery:
		return "every"
	case RelationNone:
		return "none"
	default:
		return "to_one"
	}
}

// RelationCondition filters on rows reachable through a relation field.
type RelationCondition struct {
	Field  *schema.RelationField
	Op     RelationOp
	Nested Filter
}

func (And) filter()               {}
func (Or) filter()                {}
func (Not) filter()               {}
func (ScalarCondition) filter()   {}
func (RelationCondition) filter() {}
