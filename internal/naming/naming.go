package naming

import (
	"log/slog"
	"strings"
	"unicode"
)

// Namer provides all name transformation functions for converting model names
// to request field names. It handles casing, pluralization, and irregular overrides.
type Namer struct {
	config Config
	logger *slog.Logger
}

// New creates a Namer with the given configuration
func New(cfg Config, logger *slog.Logger) *Namer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PluralOverrides == nil {
		cfg.PluralOverrides = make(map[string]string)
	}
	if cfg.SingularOverrides == nil {
		cfg.SingularOverrides = make(map[string]string)
	}
	if cfg.QueryNameOverrides == nil {
		cfg.QueryNameOverrides = make(map[string]string)
	}
	return &Namer{
		config: cfg,
		logger: logger,
	}
}

// Default returns a Namer with default configuration
func Default() *Namer {
	return New(DefaultConfig(), nil)
}

// Logger returns the logger used for naming diagnostics.
func (n *Namer) Logger() *slog.Logger {
	return n.logger
}

// SingleQueryName returns the root field name that selects one record of a model.
// Example: "BlogPost" -> "blogPost"
func (n *Namer) SingleQueryName(modelName string) string {
	if override, ok := n.config.QueryNameOverrides[modelName]; ok {
		return override
	}
	if override, ok := n.config.QueryNameOverrides[strings.ToLower(modelName)]; ok {
		return override
	}
	return ToCamelCase(modelName)
}

// ManyQueryName returns the root field name that selects a collection of a model.
// Example: "BlogPost" -> "blogPosts"
func (n *Namer) ManyQueryName(modelName string) string {
	return n.Pluralize(n.SingleQueryName(modelName))
}

// ModelNameFromMutation converts the remainder of a mutation field name into the
// model naming convention.
// Example: "Posts" -> "Post", "blog_posts" -> "BlogPost"
func (n *Namer) ModelNameFromMutation(remainder string) string {
	return ToPascalCase(n.Singularize(remainder))
}

// ToPascalCase converts snake_case or camelCase to PascalCase
// Example: "user_profiles" -> "UserProfiles"
func ToPascalCase(s string) string {
	words := splitWords(s)
	for i, word := range words {
		words[i] = upperFirst(word)
	}
	return strings.Join(words, "")
}

// ToCamelCase converts snake_case or PascalCase to camelCase. Leading acronyms
// are lowered as a whole.
// Example: "user_name" -> "userName", "URLLink" -> "urlLink"
func ToCamelCase(s string) string {
	words := splitWords(s)
	for i, word := range words {
		if i == 0 {
			words[i] = strings.ToLower(word)
			continue
		}
		words[i] = upperFirst(word)
	}
	return strings.Join(words, "")
}

// splitWords breaks a name on separators and case boundaries, keeping acronyms
// together: "HTTPServer_config" -> ["HTTP", "Server", "config"].
func splitWords(s string) []string {
	var words []string
	runes := []rune(s)
	start := -1
	flush := func(end int) {
		if start >= 0 && end > start {
			words = append(words, string(runes[start:end]))
		}
		start = -1
	}
	for i, r := range runes {
		if r == '_' || r == '-' || r == ' ' {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
			continue
		}
		prev := runes[i-1]
		if unicode.IsUpper(r) {
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush(i)
				start = i
			}
		}
	}
	flush(len(runes))
	return words
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
