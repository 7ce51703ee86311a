package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker-api/internal/constants"
	"github.com/yukikurage/task-tracker-api/internal/translator"
)

// Error codes
const (
	// Authentication errors
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"

	// Authorization errors
	ErrCodeForbidden = "FORBIDDEN"

	// Validation errors
	ErrCodeInvalidInput = "INVALID_INPUT"

	// Resource errors
	ErrCodeNotFound = "NOT_FOUND"
	ErrCodeConflict = "CONFLICT"

	// Service errors
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Default message IDs per response kind
const (
	MsgUnauthorized       = "unauthorized"
	MsgForbidden          = "forbidden"
	MsgNotFound           = "not_found"
	MsgInvalidRequest     = "invalid_request"
	MsgConflict           = "conflict"
	MsgInternalError      = "internal_error"
	MsgServiceUnavailable = "service_unavailable"
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

// RespondWithError sends an error response and stops the handler chain
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	c.AbortWithStatusJSON(statusCode, err)
}

// Message localizes messageID for the language negotiated on this request
func Message(c *gin.Context, messageID string, data map[string]interface{}) string {
	return translator.Localize(c.GetString(constants.ContextKeyLanguage), messageID, data)
}

func respond(c *gin.Context, status int, code, messageID, fallbackID string, data map[string]interface{}) {
	if messageID == "" {
		messageID = fallbackID
	}
	RespondWithError(c, status, NewAPIError(code, Message(c, messageID, data)))
}

// Helper functions for common error responses. Each takes a message ID; an
// empty ID uses the kind's default message.

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, messageID string) {
	respond(c, http.StatusUnauthorized, ErrCodeUnauthorized, messageID, MsgUnauthorized, nil)
}

// InvalidCredentials sends a 401 response for a failed login
func InvalidCredentials(c *gin.Context) {
	respond(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, "invalid_credentials", MsgUnauthorized, nil)
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, messageID string) {
	respond(c, http.StatusForbidden, ErrCodeForbidden, messageID, MsgForbidden, nil)
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, messageID string) {
	respond(c, http.StatusNotFound, ErrCodeNotFound, messageID, MsgNotFound, nil)
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, messageID string) {
	respond(c, http.StatusBadRequest, ErrCodeInvalidInput, messageID, MsgInvalidRequest, nil)
}

// BadRequestWithData sends a 400 response whose message takes template data
func BadRequestWithData(c *gin.Context, messageID string, data map[string]interface{}) {
	respond(c, http.StatusBadRequest, ErrCodeInvalidInput, messageID, MsgInvalidRequest, data)
}

// BadRequestWithDetails sends a 400 response with details
func BadRequestWithDetails(c *gin.Context, messageID string, details interface{}) {
	if messageID == "" {
		messageID = MsgInvalidRequest
	}
	RespondWithError(c, http.StatusBadRequest, NewAPIErrorWithDetails(ErrCodeInvalidInput, Message(c, messageID, nil), details))
}

// Conflict sends a 409 response
func Conflict(c *gin.Context, messageID string) {
	respond(c, http.StatusConflict, ErrCodeConflict, messageID, MsgConflict, nil)
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, messageID string) {
	respond(c, http.StatusInternalServerError, ErrCodeInternalError, messageID, MsgInternalError, nil)
}

// ServiceUnavailable sends a 503 response
func ServiceUnavailable(c *gin.Context, messageID string) {
	respond(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, messageID, MsgServiceUnavailable, nil)
}
