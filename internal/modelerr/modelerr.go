// Package modelerr defines the error taxonomy shared by the model packages.
//
// ConfigurationError covers defects detected while assembling a model:
// incompatible dimensions, empty layer stacks, unresolvable parameter
// roles. InputContractError covers defects in caller-supplied inputs at
// forward time: missing or conflicting tensors, indeterminable batch
// sizes. Both wrap an underlying cause and carry a stack trace.
package modelerr

import "github.com/pkg/errors"

// ConfigurationError reports an invalid model configuration discovered
// during construction, before any tensor computation runs.
type ConfigurationError struct {
	err error
}

func (e *ConfigurationError) Error() string { return "configuration: " + e.err.Error() }

func (e *ConfigurationError) Unwrap() error { return e.err }

// Configf builds a ConfigurationError from a format string.
func Configf(format string, args ...any) error {
	return &ConfigurationError{err: errors.Errorf(format, args...)}
}

// WrapConfig annotates err as a configuration defect.
func WrapConfig(err error, msg string) error {
	return &ConfigurationError{err: errors.Wrap(err, msg)}
}

// IsConfiguration reports whether err is (or wraps) a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// InputContractError reports caller-supplied forward inputs that violate
// the model's input contract.
type InputContractError struct {
	err error
}

func (e *InputContractError) Error() string { return "input contract: " + e.err.Error() }

func (e *InputContractError) Unwrap() error { return e.err }

// Inputf builds an InputContractError from a format string.
func Inputf(format string, args ...any) error {
	return &InputContractError{err: errors.Errorf(format, args...)}
}

// IsInputContract reports whether err is (or wraps) an InputContractError.
func IsInputContract(err error) bool {
	var ie *InputContractError
	return errors.As(err, &ie)
}
