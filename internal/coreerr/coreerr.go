// Package coreerr defines the error kinds returned by the query engine core.
// Every builder and executor operation reports failures as one of these kinds so
// callers can map them to GraphQL error payloads without string matching.
package coreerr

import (
	"errors"
	"fmt"
)

// Kind classifies a core error.
type Kind int

const (
	// KindValidation marks a malformed or schema-inconsistent request.
	KindValidation Kind = iota + 1
	// KindNotFound marks a missing schema entity or a selector that matched no row.
	KindNotFound
	// KindRelationViolation marks a write that would break a required relation.
	KindRelationViolation
	// KindUnsupportedFeature marks request features the engine does not implement.
	KindUnsupportedFeature
	// KindStorage marks a failure reported by the storage layer.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindRelationViolation:
		return "relation_violation"
	case KindUnsupportedFeature:
		return "unsupported_feature"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error is the concrete error type for all core failures.
type Error struct {
	Kind    Kind
	Message string
	// Code is a stable machine-readable reason, e.g. "unique_violation".
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Extensions exposes the error classification to GraphQL error formatting.
func (e *Error) Extensions() map[string]interface{} {
	code := e.Code
	if code == "" {
		code = e.Kind.String()
	}
	return map[string]interface{}{
		"kind": e.Kind.String(),
		"code": code,
	}
}

// Validation returns a KindValidation error.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a KindNotFound error.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// RelationViolation returns a KindRelationViolation error for the named relation.
func RelationViolation(relation, modelA, modelB string) error {
	return &Error{
		Kind:    KindRelationViolation,
		Message: fmt.Sprintf("the change you are trying to make would violate the required relation %q between %s and %s", relation, modelA, modelB),
		Code:    "relation_violation",
	}
}

// Unsupported returns a KindUnsupportedFeature error.
func Unsupported(format string, args ...any) error {
	return &Error{Kind: KindUnsupportedFeature, Message: fmt.Sprintf(format, args...)}
}

// Storage wraps a storage failure with a reason code.
func Storage(code string, err error) error {
	return &Error{Kind: KindStorage, Message: "storage error", Code: code, Err: err}
}

// KindOf returns the kind of err, or zero if err is not a core error.
func KindOf(err error) Kind {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.Kind
	}
	return 0
}

// IsKind reports whether err is a core error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsNotFound reports whether err is a KindNotFound error.
func IsNotFound(err error) bool {
	return IsKind(err, KindNotFound)
}
