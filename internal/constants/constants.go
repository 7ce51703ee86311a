package constants

// Context and session keys
const (
	ContextKeyUserID    = "user_id"
	ContextKeyActor     = "actor"
	ContextKeyLanguage  = "lang"
	ContextKeyRequestID = "request_id"
	SessionCookieName   = "task_session"
)

// HeaderRequestID carries the request correlation id.
const HeaderRequestID = "X-Request-ID"

// Validation limits
const (
	MinPasswordLength   = 8
	MaxAIGeneratedTasks = 20
)

// Token types stored in the "typ" claim
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)
