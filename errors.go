package governance

import (
	"errors"
	"fmt"
)

// Custom errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("resource not found")
	ErrConflict          = errors.New("conflict")
	ErrDenied            = errors.New("permission denied")
	ErrSessionUnverified = errors.New("external session not verified")
)

// DeniedError carries the reason an action was refused.
type DeniedError struct {
	Reason DenyReason
	Err    error
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("permission denied: %s", e.Reason)
}

func (e *DeniedError) Unwrap() error {
	return e.Err
}

// Is reports ErrDenied for every DeniedError.
func (e *DeniedError) Is(target error) bool {
	return target == ErrDenied
}

func deny(reason DenyReason) error {
	return &DeniedError{Reason: reason}
}

// StepError attaches workflow context to a failed step operation.
type StepError struct {
	Op         string
	WorkflowID string
	StepID     string
	Err        error
}

func (e *StepError) Error() string {
	if e.WorkflowID != "" {
		return fmt.Sprintf("%s workflow %s step %s: %v", e.Op, e.WorkflowID, e.StepID, e.Err)
	}
	return fmt.Sprintf("%s step %s: %v", e.Op, e.StepID, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the deny reason from err, if any.
func ReasonOf(err error) (DenyReason, bool) {
	var de *DeniedError
	if errors.As(err, &de) {
		return de.Reason, true
	}
	return "", false
}
