package config

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"query-engine/internal/naming"
)

// maxStatementPlaceholders is the MySQL limit on bound parameters per statement.
const maxStatementPlaceholders = 65535

// ValidationError represents a configuration validation error with context.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
	Hint    string
}

// ValidationResult contains the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error returns a combined error message if there are validation errors.
func (r *ValidationResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	var msgs []string
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for errors and returns validation results.
// It returns both errors (fatal) and warnings (non-fatal issues).
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}

	c.Engine.validate(result)
	c.Database.validate(result)
	c.Observability.validate(result)
	validateNamingConfig(result, c.Naming)

	if !c.Database.Enabled() {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "database.host",
			Message: "no database configured; mutations cannot be executed",
			Hint:    "set database.host or database.dsn to execute writes",
		})
	}
	return result
}

func (e *EngineConfig) validate(result *ValidationResult) {
	if e.BatchSize <= 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "engine.batch_size",
			Message: "batch_size must be greater than 0",
		})
	} else if e.BatchSize > maxStatementPlaceholders {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "engine.batch_size",
			Message: fmt.Sprintf("batch_size %d exceeds the MySQL placeholder limit", e.BatchSize),
			Hint:    fmt.Sprintf("statements with more than %d ids will be rejected by the server", maxStatementPlaceholders),
		})
	}
	if e.Timeout < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "engine.timeout",
			Message: "timeout cannot be negative",
		})
	}
}

var camelCaseFieldPattern = regexp.MustCompile(`^[a-z][A-Za-z0-9]*$`)

func validateNamingConfig(result *ValidationResult, cfg naming.Config) {
	for modelName, fieldName := range cfg.QueryNameOverrides {
		modelName = strings.TrimSpace(modelName)
		fieldName = strings.TrimSpace(fieldName)
		if modelName == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "naming.query_name_overrides",
				Message: "model name cannot be empty",
			})
			continue
		}
		if !camelCaseFieldPattern.MatchString(fieldName) {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "naming.query_name_overrides",
				Message: fmt.Sprintf("query name %q for model %q must be camelCase", fieldName, modelName),
			})
		}
		if naming.IsReservedTypeName(modelName) {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Field:   "naming.query_name_overrides",
				Message: fmt.Sprintf("model name %q is reserved and can never appear in a schema", modelName),
			})
		}
	}
	for field, overrides := range map[string]map[string]string{
		"naming.plural_overrides":   cfg.PluralOverrides,
		"naming.singular_overrides": cfg.SingularOverrides,
	} {
		for from, to := range overrides {
			if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
				result.Errors = append(result.Errors, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("override %q -> %q cannot have an empty side", from, to),
				})
			}
		}
	}
}

func (d *DatabaseConfig) validate(result *ValidationResult) {
	if d.ConnectionString == "" && d.Host != "" && (d.Port < 1 || d.Port > 65535) {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.port",
			Message: fmt.Sprintf("port %d is out of valid range (1-65535)", d.Port),
		})
	}

	d.TLS.validate(result)

	if d.Pool.MaxOpen < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.pool.max_open",
			Message: "max_open cannot be negative",
		})
	}
	if d.Pool.MaxIdle < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.pool.max_idle",
			Message: "max_idle cannot be negative",
		})
	}
	if d.Pool.MaxIdle > d.Pool.MaxOpen && d.Pool.MaxOpen > 0 {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "database.pool.max_idle",
			Message: "max_idle is greater than max_open",
			Hint:    "idle connections will be limited to max_open",
		})
	}
	if d.ConnectionTimeout < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.connection_timeout",
			Message: "connection_timeout cannot be negative",
		})
	}

	if !d.Enabled() {
		return
	}
	name, err := d.DatabaseName()
	switch {
	case err != nil && strings.HasPrefix(err.Error(), "database.dsn"):
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.dsn",
			Message: err.Error(),
			Hint:    "set a valid MySQL DSN in database.dsn/database.dsn_file",
		})
	case err != nil:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.database",
			Message: err.Error(),
			Hint:    "either remove database.database or set it to match the DSN database",
		})
	case name == "":
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.database",
			Message: "no database name configured",
			Hint:    "set database.database or include /<database> in database.dsn",
		})
	}
}

func (t *DatabaseTLSConfig) validate(result *ValidationResult) {
	validModes := map[string]bool{"": true, "off": true, "skip-verify": true, "verify-ca": true, "verify-full": true}
	if !validModes[t.Mode] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.tls.mode",
			Message: fmt.Sprintf("invalid TLS mode %q", t.Mode),
			Hint:    "valid values are: off, skip-verify, verify-ca, verify-full",
		})
	}

	if (t.Mode == "verify-ca" || t.Mode == "verify-full") && t.CAFile == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.tls.ca_file",
			Message: "CA file is required for verify-ca and verify-full modes",
		})
	}

	if (t.CertFile != "") != (t.KeyFile != "") {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.tls.cert_file",
			Message: "both cert_file and key_file must be specified for client certificate authentication",
			Hint:    "provide both cert_file and key_file, or neither",
		})
	}

	if t.Mode == "skip-verify" {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "database.tls.mode",
			Message: "skip-verify mode does not verify server certificates",
			Hint:    "use verify-ca or verify-full in production",
		})
	}
}

func (o *ObservabilityConfig) validate(result *ValidationResult) {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[o.Logging.Level] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.logging.level",
			Message: fmt.Sprintf("invalid log level %q", o.Logging.Level),
			Hint:    "valid values are: debug, info, warn, error",
		})
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[o.Logging.Format] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.logging.format",
			Message: fmt.Sprintf("invalid log format %q", o.Logging.Format),
			Hint:    "valid values are: json, text",
		})
	}

	if o.TraceSampleRatio < 0 || o.TraceSampleRatio > 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.trace_sample_ratio",
			Message: fmt.Sprintf("trace_sample_ratio %v is outside [0, 1]", o.TraceSampleRatio),
		})
	}
	if o.SQLCommenterEnabled && !o.TracingEnabled {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "observability.sqlcommenter_enabled",
			Message: "sqlcommenter is enabled but tracing is disabled",
			Hint:    "enable observability.tracing_enabled for trace context in SQL comments",
		})
	}

	o.OTLP.validate("observability.otlp", result)
	if o.Traces != nil {
		o.Traces.validate("observability.traces", result)
	}
	if o.Logs != nil {
		o.Logs.validate("observability.logs", result)
	}
}

func (o *OTLPConfig) validate(prefix string, result *ValidationResult) {
	validProtocols := map[string]bool{"": true, "grpc": true, "http/protobuf": true}
	if !validProtocols[o.Protocol] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   prefix + ".protocol",
			Message: fmt.Sprintf("invalid OTLP protocol %q", o.Protocol),
			Hint:    "valid values are: grpc, http/protobuf",
		})
	}

	if o.Protocol == "http/protobuf" && !validOTLPEndpoint(o.Endpoint) {
		result.Errors = append(result.Errors, ValidationError{
			Field:   prefix + ".endpoint",
			Message: fmt.Sprintf("invalid OTLP endpoint %q for http/protobuf", o.Endpoint),
			Hint:    "use host:port or a full URL",
		})
	}

	validCompressions := map[string]bool{"": true, "none": true, "gzip": true}
	if !validCompressions[o.Compression] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   prefix + ".compression",
			Message: fmt.Sprintf("invalid OTLP compression %q", o.Compression),
			Hint:    "valid values are: none, gzip",
		})
	}

	if o.RetryMaxAttempts < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   prefix + ".retry_max_attempts",
			Message: "retry_max_attempts cannot be negative",
		})
	}
}

func validOTLPEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	if strings.Contains(endpoint, "://") {
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return false
		}
		return parsed.Host != ""
	}
	_, _, err := net.SplitHostPort(endpoint)
	return err == nil
}
