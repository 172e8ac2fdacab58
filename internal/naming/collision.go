package naming

import (
	"log/slog"
)

// RootFieldRegistry tracks the root field names derived from model names so that
// ambiguous schemas are reported at build time instead of resolving silently to
// whichever model happens to come first.
type RootFieldRegistry struct {
	seen   map[string]string // root field name → model name
	logger *slog.Logger
}

// NewRootFieldRegistry creates an empty registry.
func NewRootFieldRegistry(logger *slog.Logger) *RootFieldRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &RootFieldRegistry{
		seen:   make(map[string]string),
		logger: logger,
	}
}

// Register records fieldName as derived from modelName. It returns the model that
// already owns the name, if any, and logs a warning on collision.
func (r *RootFieldRegistry) Register(fieldName, modelName string) (string, bool) {
	if existing, ok := r.seen[fieldName]; ok && existing != modelName {
		r.logger.Warn("root field name collision, first model wins",
			slog.String("field", fieldName),
			slog.String("existing_model", existing),
			slog.String("new_model", modelName),
		)
		return existing, true
	}
	r.seen[fieldName] = modelName
	return "", false
}
