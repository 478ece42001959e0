// Package errors provides the error taxonomy used across the service.
// Errors are built with a fluent builder and marked with one of the
// sentinel errors below; callers classify errors with the Is* predicates
// rather than by string matching. Imported as ierr by convention.
package errors

import (
	"github.com/cockroachdb/errors"
)

// Sentinel errors used as marks. A marked error satisfies
// errors.Is(err, sentinel) regardless of how deep the cause chain is.
var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("resource not found")
	ErrAlreadyExists    = errors.New("resource already exists")
	ErrPermissionDenied = errors.New("permission denied")
	ErrDatabase         = errors.New("database error")
	ErrHTTPClient       = errors.New("http client error")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrInternal         = errors.New("internal error")
	ErrSystem           = errors.New("system error")
)

// InternalError carries a hint and reportable details alongside the cause.
type InternalError struct {
	cause   error
	hint    string
	details map[string]interface{}
}

func (e *InternalError) Error() string {
	return e.cause.Error()
}

func (e *InternalError) Unwrap() error {
	return e.cause
}

// Hint returns the human-facing hint attached to err, if any.
func Hint(err error) string {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.hint
	}
	return ""
}

// ReportableDetails returns the structured details attached to err, if any.
func ReportableDetails(err error) map[string]interface{} {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.details
	}
	return nil
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

func IsHTTPClient(err error) bool {
	return errors.Is(err, ErrHTTPClient)
}
