package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// TypeIdentifier names the storage type of a scalar field, or marks a relation field.
type TypeIdentifier string

const (
	TypeString    TypeIdentifier = "String"
	TypeInt       TypeIdentifier = "Int"
	TypeFloat     TypeIdentifier = "Float"
	TypeBoolean   TypeIdentifier = "Boolean"
	TypeDateTime  TypeIdentifier = "DateTime"
	TypeEnum      TypeIdentifier = "Enum"
	TypeJSON      TypeIdentifier = "Json"
	TypeGraphQLID TypeIdentifier = "GraphQLID"
	TypeUUID      TypeIdentifier = "UUID"
	TypeRelation  TypeIdentifier = "Relation"
)

func (t TypeIdentifier) valid() bool {
	switch t {
	case TypeString, TypeInt, TypeFloat, TypeBoolean, TypeDateTime, TypeEnum, TypeJSON, TypeGraphQLID, TypeUUID, TypeRelation:
		return true
	default:
		return false
	}
}

// RelationSide identifies which link-table column holds a relation field's own model id.
type RelationSide string

const (
	SideA RelationSide = "A"
	SideB RelationSide = "B"
)

// Opposite returns the other side of a relation.
func (s RelationSide) Opposite() RelationSide {
	if s == SideA {
		return SideB
	}
	return SideA
}

// Template is the deserialized description a Graph is built from.
type Template struct {
	Models    []ModelTemplate    `json:"models" yaml:"models"`
	Relations []RelationTemplate `json:"relations" yaml:"relations"`
	Enums     []EnumTemplate     `json:"enums" yaml:"enums"`
	Version   *string            `json:"version,omitempty" yaml:"version,omitempty"`
}

// ModelTemplate describes one model.
type ModelTemplate struct {
	Name   string          `json:"name" yaml:"name"`
	DBName string          `json:"dbName,omitempty" yaml:"dbName,omitempty"`
	Fields []FieldTemplate `json:"fields" yaml:"fields"`
}

// FieldTemplate describes a scalar or relation field. Relation fields use
// TypeIdentifier "Relation" together with RelationName and RelationSide.
type FieldTemplate struct {
	Name           string         `json:"name" yaml:"name"`
	TypeIdentifier TypeIdentifier `json:"typeIdentifier" yaml:"typeIdentifier"`
	IsList         bool           `json:"isList" yaml:"isList"`
	IsRequired     bool           `json:"isRequired" yaml:"isRequired"`
	IsUnique       bool           `json:"isUnique" yaml:"isUnique"`
	IsID           bool           `json:"isId" yaml:"isId"`
	Enum           string         `json:"enum,omitempty" yaml:"enum,omitempty"`
	RelationName   string         `json:"relationName,omitempty" yaml:"relationName,omitempty"`
	RelationSide   RelationSide   `json:"relationSide,omitempty" yaml:"relationSide,omitempty"`
}

// RelationTemplate describes a relation between model A and model B.
type RelationTemplate struct {
	Name      string `json:"name" yaml:"name"`
	ModelA    string `json:"modelA" yaml:"modelA"`
	ModelB    string `json:"modelB" yaml:"modelB"`
	TableName string `json:"tableName,omitempty" yaml:"tableName,omitempty"`
}

// EnumTemplate describes an enum and its ordered values.
type EnumTemplate struct {
	Name   string   `json:"name" yaml:"name"`
	Values []string `json:"values" yaml:"values"`
}

// LoadTemplate reads a schema template from a .json, .yaml or .yml file.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema template %q: %w", path, err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	tmpl, err := ParseTemplate(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema template %q: %w", path, err)
	}
	return tmpl, nil
}

// ParseTemplate decodes a schema template in the given format ("json" or "yaml").
func ParseTemplate(data []byte, format string) (*Template, error) {
	var tmpl Template
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&tmpl); err != nil {
			return nil, err
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &tmpl); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported schema template format %q", format)
	}
	return &tmpl, nil
}
