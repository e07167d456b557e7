package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/field-service-api/internal/lifecycle"
)

// Error codes
const (
	// Authentication errors
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"

	// Authorization errors
	ErrCodeForbidden               = "FORBIDDEN"
	ErrCodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"

	// Validation errors
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeMissingField  = "MISSING_FIELD"
	ErrCodeInvalidFormat = "INVALID_FORMAT"

	// Resource errors
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeConflict      = "CONFLICT"

	// Task lifecycle errors
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeMissingLocation   = "MISSING_LOCATION"
	ErrCodeAlreadyPaused     = "ALREADY_PAUSED"
	ErrCodeNoActivePause     = "NO_ACTIVE_PAUSE"
	ErrCodeMissingDependency = "MISSING_DEPENDENCY"

	// Business logic errors
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeOperationFailed  = "OPERATION_FAILED"

	// Service errors
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// APIError represents a standardized API error response
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// NewAPIErrorWithDetails creates a new APIError with details
func NewAPIErrorWithDetails(code, message string, details interface{}) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	c.JSON(statusCode, err)
}

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	RespondWithError(c, http.StatusUnauthorized, NewAPIError(ErrCodeUnauthorized, message))
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Access denied"
	}
	RespondWithError(c, http.StatusForbidden, NewAPIError(ErrCodeForbidden, message))
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, NewAPIError(ErrCodeNotFound, message))
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "Invalid request"
	}
	RespondWithError(c, http.StatusBadRequest, NewAPIError(ErrCodeInvalidInput, message))
}

// BadRequestWithDetails sends a 400 response with details
func BadRequestWithDetails(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, NewAPIErrorWithDetails(ErrCodeInvalidInput, message, details))
}

// Conflict sends a 409 response
func Conflict(c *gin.Context, message string) {
	if message == "" {
		message = "Resource conflict"
	}
	RespondWithError(c, http.StatusConflict, NewAPIError(ErrCodeConflict, message))
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	RespondWithError(c, http.StatusInternalServerError, NewAPIError(ErrCodeInternalError, message))
}

// ServiceUnavailable sends a 503 response
func ServiceUnavailable(c *gin.Context, message string) {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	RespondWithError(c, http.StatusServiceUnavailable, NewAPIError(ErrCodeServiceUnavailable, message))
}

// Lifecycle writes the response for an engine error and reports whether err
// was one. Transition errors carry the offending edge in details.
func Lifecycle(c *gin.Context, err error) bool {
	var te *lifecycle.TransitionError
	var le *lifecycle.LocationError
	var de *lifecycle.DependencyError

	switch {
	case stderrors.As(err, &te):
		RespondWithError(c, http.StatusConflict, NewAPIErrorWithDetails(ErrCodeInvalidTransition, te.Error(),
			gin.H{"from": te.From, "to": te.To}))
	case stderrors.As(err, &le):
		RespondWithError(c, http.StatusUnprocessableEntity, NewAPIErrorWithDetails(ErrCodeMissingLocation, le.Error(),
			gin.H{"from": le.From, "to": le.To}))
	case stderrors.Is(err, lifecycle.ErrMissingLocation):
		RespondWithError(c, http.StatusUnprocessableEntity, NewAPIError(ErrCodeMissingLocation, err.Error()))
	case stderrors.Is(err, lifecycle.ErrAlreadyPaused):
		RespondWithError(c, http.StatusConflict, NewAPIError(ErrCodeAlreadyPaused, "Task is already paused"))
	case stderrors.Is(err, lifecycle.ErrNoActivePause):
		RespondWithError(c, http.StatusConflict, NewAPIError(ErrCodeNoActivePause, "Task has no active pause"))
	case stderrors.As(err, &de):
		RespondWithError(c, http.StatusUnprocessableEntity, NewAPIErrorWithDetails(ErrCodeMissingDependency, de.Error(),
			gin.H{"missing": de.What}))
	case stderrors.Is(err, lifecycle.ErrInvalidTransition):
		RespondWithError(c, http.StatusConflict, NewAPIError(ErrCodeInvalidTransition, err.Error()))
	default:
		return false
	}
	return true
}
