package scoring

import (
	"errors"
	"fmt"
)

// ErrConfiguration is matched by every ConfigurationError
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports an invalid comparison setting. It is fatal and
// raised before any scoring runs; settings are never silently corrected.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigurationError creates a ConfigurationError for a setting
func NewConfigurationError(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
