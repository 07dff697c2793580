package execution

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes execution errors.
type ErrorCode string

const (
	// ErrCodeUnresolvedReference indicates an insight reference could not
	// be resolved or loaded.
	ErrCodeUnresolvedReference ErrorCode = "UNRESOLVED_REFERENCE"

	// ErrCodeBackendExecution indicates the backend rejected or failed the
	// query or a page fetch.
	ErrCodeBackendExecution ErrorCode = "BACKEND_EXECUTION"

	// ErrCodeResultExpired indicates the backend no longer holds the result
	// a page was requested for.
	ErrCodeResultExpired ErrorCode = "RESULT_EXPIRED"
)

// Sentinel errors returned by backends and resolvers. The default error
// mappers translate them into the matching ExecutionError code.
var (
	// ErrReferenceNotFound is returned when a referenced object does not exist.
	ErrReferenceNotFound = errors.New("reference not found")

	// ErrResultNotFound is returned by Backend.ReadPage for unknown result ids.
	ErrResultNotFound = errors.New("result not found")
)

// ExecutionError is the error returned by Execute and ReadWindow. The
// backend's own error is kept in Err and reachable through errors.Is/As.
type ExecutionError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Workspace and Fingerprint identify the affected execution.
	Workspace   string
	Fingerprint string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Workspace != "" {
		msg = fmt.Sprintf("%s (workspace=%s)", msg, e.Workspace)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// IsUnresolvedReference returns true if err is an unresolved reference error.
func IsUnresolvedReference(err error) bool {
	return hasCode(err, ErrCodeUnresolvedReference)
}

// IsBackendExecution returns true if err is a backend execution error.
func IsBackendExecution(err error) bool {
	return hasCode(err, ErrCodeBackendExecution)
}

// IsResultExpired returns true if err reports an expired result.
func IsResultExpired(err error) bool {
	return hasCode(err, ErrCodeResultExpired)
}

// ErrorMapper translates a backend-specific error into an ExecutionError.
type ErrorMapper func(err error) error

// referenceErrorMapper maps every resolution failure to
// UNRESOLVED_REFERENCE.
func referenceErrorMapper(workspace, fingerprint, ref string) ErrorMapper {
	return func(err error) error {
		if _, ok := asExecutionError(err); ok {
			return err
		}
		return &ExecutionError{
			Code:        ErrCodeUnresolvedReference,
			Message:     fmt.Sprintf("cannot resolve reference %s", ref),
			Workspace:   workspace,
			Fingerprint: fingerprint,
			Err:         err,
		}
	}
}

// backendErrorMapper maps backend failures to BACKEND_EXECUTION, except
// ErrResultNotFound which becomes RESULT_EXPIRED and ErrReferenceNotFound
// which becomes UNRESOLVED_REFERENCE.
func backendErrorMapper(workspace, fingerprint, operation string) ErrorMapper {
	return func(err error) error {
		if _, ok := asExecutionError(err); ok {
			return err
		}
		code := ErrCodeBackendExecution
		switch {
		case errors.Is(err, ErrResultNotFound):
			code = ErrCodeResultExpired
		case errors.Is(err, ErrReferenceNotFound):
			code = ErrCodeUnresolvedReference
		}
		return &ExecutionError{
			Code:        code,
			Message:     operation + " failed",
			Workspace:   workspace,
			Fingerprint: fingerprint,
			Err:         err,
		}
	}
}

func asExecutionError(err error) (*ExecutionError, bool) {
	var ee *ExecutionError
	ok := errors.As(err, &ee)
	return ee, ok
}
