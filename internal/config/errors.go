package config

import "fmt"

// ConfigurationError reports a stage parameter that makes rendering
// impossible. It is fatal: callers must reject it before any tick runs.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: %s %s, got %v", e.Field, e.Reason, e.Value)
}

// Positive returns a ConfigurationError when v is not strictly positive.
func Positive[T int | float64](field string, v T) error {
	if v > 0 {
		return nil
	}
	return &ConfigurationError{Field: field, Value: v, Reason: "must be positive"}
}
