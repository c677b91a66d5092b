package guard

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Stable machine-readable error codes carried in ErrorResponse.Code.
const (
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeValidation         = "VALIDATION_ERROR"
	CodeMissingBody        = "MISSING_BODY"
	CodeInvalidContentType = "INVALID_CONTENT_TYPE"
	CodeInvalidJSON        = "INVALID_JSON"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeNotFound           = "NOT_FOUND"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
	CodeNoSchemaForStatus  = "NO_SCHEMA_FOR_STATUS"
)

// StatusCoder is implemented by errors or responses that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// ErrorResponse is the wire shape for every failure produced by the pipeline.
//
//nolint:errname // wire-shape name
type ErrorResponse struct {
	Reason    string            `json:"error"`
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   []ValidationError `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Path      string            `json:"path"`
	Method    string            `json:"method"`

	status int
}

// Error returns the message.
func (e *ErrorResponse) Error() string { return e.Message }

// StatusCode returns the HTTP status code.
func (e *ErrorResponse) StatusCode() int { return e.status }

// NewErrorResponse builds an ErrorResponse for the given request. The
// Reason field is derived from the status text, the timestamp is set to
// the current time.
func NewErrorResponse(r *http.Request, status int, code, message string) *ErrorResponse {
	e := &ErrorResponse{
		Reason:    http.StatusText(status),
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
		status:    status,
	}
	if r != nil {
		e.Path = r.URL.Path
		e.Method = r.Method
	}
	return e
}

// HTTPError is an error with an HTTP status code. Handlers return it to
// produce a non-500 error response with a custom message.
type HTTPError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Error returns the error message.
func (e *HTTPError) Error() string { return e.Message }

// StatusCode returns the HTTP status code.
func (e *HTTPError) StatusCode() int { return e.Status }

// Error returns an error with the given HTTP status code and message.
func Error(status int, message string) error {
	return &HTTPError{Status: status, Message: message}
}

// Errorf returns a formatted error with the given HTTP status code.
func Errorf(status int, format string, args ...any) error {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// ErrorStatus extracts the HTTP status code from an error. Returns
// http.StatusInternalServerError if the error does not implement StatusCoder.
func ErrorStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// AuthErrorHandler overrides how authentication and authorization failures
// are turned into responses.
type AuthErrorHandler interface {
	AuthError(r *http.Request, status int, code, message string) *Response
}

// ValidationErrorHandler overrides how query/body/params validation
// failures are turned into responses.
type ValidationErrorHandler interface {
	ValidationError(r *http.Request, status int, code, message string, issues []ValidationError) *Response
}

// InternalErrorHandler overrides how uncaught handler errors are turned
// into responses. The raw error is passed through unredacted; the handler
// owns whatever redaction it wants.
type InternalErrorHandler interface {
	InternalError(r *http.Request, err error) *Response
}

// defaultResponders builds the built-in error responses. Override handlers
// configured on the Controller take precedence over these.
type defaultResponders struct {
	mode Mode
}

func (d defaultResponders) AuthError(r *http.Request, status int, code, message string) *Response {
	return errResponse(NewErrorResponse(r, status, code, message))
}

func (d defaultResponders) ValidationError(r *http.Request, status int, code, message string, issues []ValidationError) *Response {
	e := NewErrorResponse(r, status, code, message)
	e.Details = issues
	return errResponse(e)
}

func (d defaultResponders) InternalError(r *http.Request, err error) *Response {
	message := "Internal server error"
	if d.mode == ModeDevelopment && err != nil {
		message = err.Error()
	}
	return errResponse(NewErrorResponse(r, http.StatusInternalServerError, CodeInternal, message))
}

// errResponse wraps an ErrorResponse into a JSON Response carrying its status.
func errResponse(e *ErrorResponse) *Response {
	return JSON(e.status, e)
}
