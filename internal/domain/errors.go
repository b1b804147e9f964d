package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrBackend marks failures raised by a text generation backend.
	ErrBackend = errors.New("backend failure")
	// ErrUnknownConfigKey is returned for dotted keys outside the config key table.
	ErrUnknownConfigKey = errors.New("unknown config key")
	// ErrInvalidConfigValue is returned when a value fails per-key validation.
	ErrInvalidConfigValue = errors.New("invalid config value")
)

// BackendError wraps a transport, auth or API failure reported by a backend.
// It is distinct from a validation rejection and is never turned into a record.
type BackendError struct {
	Provider string
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Provider, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrBackend) match any BackendError.
func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}

// NewBackendError builds a BackendError, returning nil for a nil cause.
func NewBackendError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Provider: provider, Err: err}
}
