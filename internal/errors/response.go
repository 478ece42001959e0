package errors

import (
	"net/http"
)

// ErrorDetail is the wire shape of a single error.
type ErrorDetail struct {
	Message       string                 `json:"message"`
	InternalError string                 `json:"internal_error,omitempty"`
	Details       map[string]interface{} `json:"details,omitempty"`
}

// ErrorResponse is the wire shape of an error reply from the HTTP surface.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// NewErrorResponse converts an error into its wire shape. The hint, when
// present, becomes the user-facing message and the raw error is demoted to
// internal_error.
func NewErrorResponse(err error) *ErrorResponse {
	if err == nil {
		return nil
	}

	detail := ErrorDetail{
		Message: err.Error(),
		Details: ReportableDetails(err),
	}
	if hint := Hint(err); hint != "" {
		detail.Message = hint
		detail.InternalError = err.Error()
	}

	return &ErrorResponse{
		Success: false,
		Error:   detail,
	}
}

// HTTPStatusFromErr maps an error mark to an HTTP status code.
func HTTPStatusFromErr(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsValidation(err):
		return http.StatusBadRequest
	case IsAlreadyExists(err):
		return http.StatusConflict
	case IsPermissionDenied(err):
		return http.StatusForbidden
	case IsDatabase(err), IsHTTPClient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
