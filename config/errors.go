package config

import (
	"fmt"
	"strings"
)

// ConfigurationError reports required settings that are missing or invalid.
// It is fatal: callers surface it immediately and never retry.
type ConfigurationError struct {
	Missing []string // names of settings that were required but empty
	Reason  string   // optional free-form explanation
}

func (e *ConfigurationError) Error() string {
	switch {
	case len(e.Missing) > 0 && e.Reason != "":
		return fmt.Sprintf("configuration error: %s (missing: %s)", e.Reason, strings.Join(e.Missing, ", "))
	case len(e.Missing) > 0:
		return fmt.Sprintf("configuration error: missing required settings: %s", strings.Join(e.Missing, ", "))
	default:
		return "configuration error: " + e.Reason
	}
}

// Missing builds a ConfigurationError for the named settings.
func Missing(names ...string) *ConfigurationError {
	return &ConfigurationError{Missing: names}
}

// Invalid builds a ConfigurationError with a formatted reason.
func Invalid(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}
