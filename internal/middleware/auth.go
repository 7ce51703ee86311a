package middleware

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker-api/internal/auth"
	"github.com/yukikurage/task-tracker-api/internal/constants"
	apierrors "github.com/yukikurage/task-tracker-api/internal/errors"
	"github.com/yukikurage/task-tracker-api/internal/models"
)

// UserLoader loads the acting user for an authenticated request
type UserLoader interface {
	GetUser(id uint64) (*models.User, error)
}

// RequireAuth authenticates the request with a bearer access token or, when no
// Authorization header is sent, with the session cookie. The user is reloaded
// on every request so role changes apply immediately.
func RequireAuth(users UserLoader, tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var userID uint64

		if header := c.GetHeader("Authorization"); header != "" {
			token, ok := BearerToken(header)
			if !ok {
				apierrors.Unauthorized(c, "invalid_token")
				return
			}
			id, err := tokens.Parse(token, constants.TokenTypeAccess)
			if err != nil {
				apierrors.Unauthorized(c, "invalid_token")
				return
			}
			userID = id
		} else {
			session := sessions.Default(c)
			id, ok := toUint64(session.Get(constants.ContextKeyUserID))
			if !ok {
				apierrors.Unauthorized(c, "")
				return
			}
			userID = id
		}

		user, err := users.GetUser(userID)
		if err != nil {
			apierrors.Unauthorized(c, "")
			return
		}

		// Store user ID and actor in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyActor, user)
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUint64(userID)
}

// GetActor retrieves the authenticated user from context
func GetActor(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(constants.ContextKeyActor)
	if !exists {
		return nil, false
	}
	actor, ok := v.(*models.User)
	return actor, ok && actor != nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func toUint64(v interface{}) (uint64, bool) {
	switch v := v.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}
