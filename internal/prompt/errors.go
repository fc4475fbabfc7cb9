package prompt

import "fmt"

// ConfigError is the only fatal error class in this package. It marks
// malformed configuration - a negative budget, or a required component whose
// cost cannot be resolved. Budget pressure is never a ConfigError; it is
// absorbed into AssemblyMetrics.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid assembler configuration: %s: %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
