package scoring

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("configuration error")
	// ErrBackendUnavailable marks a text-analysis backend that cannot be used.
	// Sub-scorers recover from it by reporting an indeterminate result.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrIncompleteInput marks missing timing data. It is recorded in details,
	// never returned.
	ErrIncompleteInput = errors.New("incomplete input")
)

// ConfigurationError is fatal at engine construction.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErr(field, reason string, err error) error {
	return &ConfigurationError{Field: field, Reason: reason, Err: err}
}
