package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrorBuilder builds an error with an optional hint and reportable
// details, then marks it with a sentinel via Mark.
type ErrorBuilder struct {
	err     error
	hint    string
	details map[string]interface{}
}

// NewError starts building an error from a message.
func NewError(message string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.New(message)}
}

// NewErrorf starts building an error from a format string.
func NewErrorf(format string, args ...interface{}) *ErrorBuilder {
	return &ErrorBuilder{err: errors.Newf(format, args...)}
}

// WithError starts building an error that wraps an existing cause.
func WithError(err error) *ErrorBuilder {
	if err == nil {
		err = errors.New("unknown error")
	}
	return &ErrorBuilder{err: err}
}

// WithHint attaches a human-facing hint suitable for user-visible replies.
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.hint = hint
	return b
}

// WithHintf attaches a formatted human-facing hint.
func (b *ErrorBuilder) WithHintf(format string, args ...interface{}) *ErrorBuilder {
	b.hint = fmt.Sprintf(format, args...)
	return b
}

// WithReportableDetails attaches structured details for logs and API
// responses. Details must not contain secrets.
func (b *ErrorBuilder) WithReportableDetails(details map[string]interface{}) *ErrorBuilder {
	b.details = details
	return b
}

// Mark finalizes the error and marks it with the given sentinel so that
// errors.Is(result, mark) holds.
func (b *ErrorBuilder) Mark(mark error) error {
	wrapped := &InternalError{
		cause:   b.err,
		hint:    b.hint,
		details: b.details,
	}
	return errors.Mark(wrapped, mark)
}
