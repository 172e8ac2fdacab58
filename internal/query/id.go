// Package query defines the typed operation trees produced by the builders:
// read queries, write queries, nested mutations, filters and the values they
// carry. Every family is a closed set of variants; consumers switch over the
// concrete types.
package query

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// IDKind identifies the representation of an ID.
type IDKind int

const (
	IDString IDKind = iota
	IDUUID
	IDInt
)

// ID is a row identifier or cursor: a UUID, an opaque string, or a positional integer.
type ID struct {
	Kind IDKind
	UUID uuid.UUID
	Str  string
	Int  int64
}

// StringID returns a string id.
func StringID(s string) ID { return ID{Kind: IDString, Str: s} }

// UUIDID returns a UUID id.
func UUIDID(u uuid.UUID) ID { return ID{Kind: IDUUID, UUID: u} }

// IntID returns a positional id.
func IntID(i int64) ID { return ID{Kind: IDInt, Int: i} }

// ParseID classifies s: a valid UUID becomes a UUID id, anything else a string id.
func ParseID(s string) ID {
	if u, err := uuid.Parse(s); err == nil {
		return UUIDID(u)
	}
	return StringID(s)
}

// IDFromValue converts a value read from storage into an ID.
func IDFromValue(v any) (ID, error) {
	switch t := v.(type) {
	case ID:
		return t, nil
	case string:
		return ParseID(t), nil
	case []byte:
		return ParseID(string(t)), nil
	case int64:
		return IntID(t), nil
	case int:
		return IntID(int64(t)), nil
	case int32:
		return IntID(int64(t)), nil
	case uuid.UUID:
		return UUIDID(t), nil
	default:
		return ID{}, fmt.Errorf("unsupported id value %T", v)
	}
}

// Value returns the id as a storage value.
func (id ID) Value() any {
	switch id.Kind {
	case IDUUID:
		return id.UUID.String()
	case IDInt:
		return id.Int
	default:
		return id.Str
	}
}

func (id ID) String() string {
	switch id.Kind {
	case IDUUID:
		return id.UUID.String()
	case IDInt:
		return strconv.FormatInt(id.Int, 10)
	default:
		return id.Str
	}
}

// MarshalJSON renders UUID and string ids as JSON strings and positional ids as numbers.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Value())
}

// IDValues converts ids to storage values.
func IDValues(ids []ID) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id.Value()
	}
	return out
}
