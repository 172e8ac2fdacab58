// Package naming provides the casing and inflection rules that map schema model
// names to request field names, including irregular-name overrides.
package naming

// Config holds naming customization options
type Config struct {
	// PluralOverrides maps singular -> custom plural
	// Example: {"person": "people", "status": "statuses"}
	PluralOverrides map[string]string `mapstructure:"plural_overrides"`

	// SingularOverrides maps plural -> custom singular
	// Example: {"people": "person", "data": "datum"}
	SingularOverrides map[string]string `mapstructure:"singular_overrides"`

	// QueryNameOverrides maps a model name to its single-record root field name
	// when the default camel-casing produces the wrong result.
	// Example: {"AUser": "aUser"}
	QueryNameOverrides map[string]string `mapstructure:"query_name_overrides"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		PluralOverrides:   make(map[string]string),
		SingularOverrides: make(map[string]string),
		QueryNameOverrides: map[string]string{
			"AUser": "aUser",
		},
	}
}

// Merge overlays non-empty override maps from other onto a copy of c.
func (c Config) Merge(other Config) Config {
	out := Config{
		PluralOverrides:    copyMap(c.PluralOverrides),
		SingularOverrides:  copyMap(c.SingularOverrides),
		QueryNameOverrides: copyMap(c.QueryNameOverrides),
	}
	for k, v := range other.PluralOverrides {
		out.PluralOverrides[k] = v
	}
	for k, v := range other.SingularOverrides {
		out.SingularOverrides[k] = v
	}
	for k, v := range other.QueryNameOverrides {
		out.QueryNameOverrides[k] = v
	}
	return out
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
