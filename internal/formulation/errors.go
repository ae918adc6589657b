package formulation

import (
	"errors"
	"fmt"
)

// ErrConfiguration is wrapped by every *ConfigurationError.
var ErrConfiguration = errors.New("formulation: invalid configuration")

// ConfigurationError rejects an instance or option set before any variable is
// declared.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

func configErr(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
