package ingest

import (
	"errors"

	"github.com/rotisserie/eris"
)

// ErrDuplicateImport reports that a byte-identical file was already imported
// for the source. It is a success outcome: the import is a no-op and the
// process exits zero.
var ErrDuplicateImport = eris.New("ingest: file already imported for source")

// ConfigError marks a fatal pre-flight problem (unknown source, missing
// input file, unknown adapter). Nothing has been written when it is raised.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError wraps an error as a configuration failure.
func NewConfigError(err error) *ConfigError {
	return &ConfigError{Err: err}
}

// IsConfigError returns true if the error chain contains a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// LoadValidationError marks a fatal staging failure: the file loaded but
// produced zero usable rows or did not match the adapter's column shape.
// The batch ledger is set to failed when it is raised.
type LoadValidationError struct {
	Err error
}

func (e *LoadValidationError) Error() string { return e.Err.Error() }
func (e *LoadValidationError) Unwrap() error { return e.Err }

// NewLoadValidationError wraps an error as a load validation failure.
func NewLoadValidationError(err error) *LoadValidationError {
	return &LoadValidationError{Err: err}
}

// IsLoadValidationError returns true if the error chain contains a
// LoadValidationError.
func IsLoadValidationError(err error) bool {
	var lve *LoadValidationError
	return errors.As(err, &lve)
}
