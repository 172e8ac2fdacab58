package naming

import (
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// Pluralize returns the plural of word, preferring a configured override.
func (n *Namer) Pluralize(word string) string {
	return inflect(word, n.config.PluralOverrides, inflection.Plural)
}

// Singularize returns the singular of word, preferring a configured override.
func (n *Namer) Singularize(word string) string {
	return inflect(word, n.config.SingularOverrides, inflection.Singular)
}

// inflect looks word up in overrides, first exactly and then lowercased, since
// override keys read from config files arrive lowercased. A lowercased match
// takes the case of word's first letter ("Person" with {"person": "people"}
// gives "People").
func inflect(word string, overrides map[string]string, fallback func(string) string) string {
	if override, ok := overrides[word]; ok {
		return override
	}
	if override, ok := overrides[strings.ToLower(word)]; ok {
		if r := []rune(word); len(r) > 0 && unicode.IsUpper(r[0]) {
			return upperFirst(override)
		}
		return override
	}
	return fallback(word)
}
