package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrSaveInFlight is returned when a save is requested while another one
	// for the same document has not resolved yet.
	ErrSaveInFlight = errors.New("reconcile: save already in flight")
	ErrClosed       = errors.New("reconcile: engine closed")
	ErrDisabled     = errors.New("reconcile: engine disabled")
)

// ValidationError reports a failed precondition. The saver was never called.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// SaveError wraps a failure returned by the saver.
type SaveError struct {
	Err error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save failed: %v", e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

// KindOf classifies an error held in engine state.
func KindOf(err error) ErrorKind {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return ErrorKindValidation
	}
	return ErrorKindTransport
}

func asValidation(err error) *ValidationError {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return &ValidationError{Err: err}
}
