package naming

import "strings"

// graphqlReservedTypeWords contains GraphQL keywords and built-in types
// that cannot be used as model names.
var graphqlReservedTypeWords = map[string]bool{
	"query":        true,
	"mutation":     true,
	"subscription": true,
	"type":         true,
	"schema":       true,
	"scalar":       true,
	"enum":         true,
	"input":        true,
	"interface":    true,
	"union":        true,
	"fragment":     true,
	"directive":    true,

	"int":     true,
	"float":   true,
	"string":  true,
	"boolean": true,
	"id":      true,
}

// IsReservedTypeName reports whether name collides with a GraphQL keyword,
// built-in scalar, or the introspection namespace.
func IsReservedTypeName(name string) bool {
	lowerName := strings.ToLower(name)
	if strings.HasPrefix(lowerName, "__") {
		return true
	}
	return graphqlReservedTypeWords[lowerName]
}

// IsReservedFieldName reports whether a field name is in the introspection namespace.
func IsReservedFieldName(name string) bool {
	return strings.HasPrefix(name, "__")
}
