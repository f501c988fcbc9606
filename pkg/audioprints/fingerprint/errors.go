package fingerprint

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is matched by every *ConfigurationError via errors.Is.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigurationError reports a parameter rejected before any computation ran.
// It is never retried; the caller has to fix the input.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

func configError(field string, value any, reason string) error {
	return &ConfigurationError{Field: field, Value: value, Reason: reason}
}
