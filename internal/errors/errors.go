package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Error codes carried in the error_code extension of a problem response
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidJSON        = "INVALID_JSON"
	CodeMissingContentType = "MISSING_CONTENT_TYPE"
	CodeValidation         = "VALIDATION_FAILED"
	CodeInvalidData        = "INVALID_DATA"
	CodeNotFound           = "NOT_FOUND"
	CodeDatasetNotFound    = "DATASET_NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedFormat  = "UNSUPPORTED_FORMAT"
	CodeUnsupportedMedia   = "UNSUPPORTED_MEDIA_TYPE"
	CodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
)

// problemTypes maps an error code to its RFC 7807 type URI. Unknown codes
// are reported as internal errors.
var problemTypes = map[string]string{
	CodeInvalidRequest:     TypeValidation,
	CodeInvalidJSON:        TypeValidation,
	CodeMissingContentType: TypeValidation,
	CodeValidation:         TypeValidation,
	CodeInvalidData:        TypeDataInvalid,
	CodeNotFound:           TypeNotFound,
	CodeDatasetNotFound:    TypeDatasetNotFound,
	CodeConflict:           TypeConflict,
	CodeMethodNotAllowed:   TypeMethod,
	CodePayloadTooLarge:    TypePayloadTooLarge,
	CodeUnsupportedFormat:  TypeUnsupportedFormat,
	CodeUnsupportedMedia:   TypeUnsupportedFormat,
	CodeRateLimited:        TypeRateLimit,
	CodeUnavailable:        TypeServiceDown,
}

// APIError is an error raised by an HTTP handler that already knows its
// status and code
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// problemType returns the type URI for the error code
func (e *APIError) problemType() string {
	if t, ok := problemTypes[e.ErrorCode]; ok {
		return t
	}
	return TypeInternal
}

// ValidationError names one rejected request field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the details payload for several rejected fields
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message}
}

func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message, Details: details}
}

var (
	ErrInvalidRequest       = New(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format")
	ErrNotFound             = New(http.StatusNotFound, CodeNotFound, "Resource not found")
	ErrDatasetNotFound      = New(http.StatusNotFound, CodeDatasetNotFound, "Dataset not found")
	ErrPayloadTooLarge      = New(http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Uploaded data exceeds the allowed size")
	ErrUnsupportedMediaType = New(http.StatusUnsupportedMediaType, CodeUnsupportedFormat, "Unsupported file format")
)

// InvalidRequestWithError wraps a decoding failure; the cause becomes the details
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format", err.Error())
}

// ErrValidation rejects a single field
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidation, "Request validation failed",
		ValidationError{Field: field, Message: message})
}

// NewValidationErrors rejects several fields at once
func NewValidationErrors(errs []ValidationError) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidation, "Request validation failed",
		ValidationErrors{Errors: errs})
}

func NotFoundError(resource string) *APIError {
	return NewWithDetails(http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s not found", resource), resource)
}

// InvalidDataError reports table data the cleaning pipeline or a chart cannot work with
func InvalidDataError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidData, "The data cannot be processed", err.Error())
}
