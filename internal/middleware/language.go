package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker-api/internal/constants"
	"github.com/yukikurage/task-tracker-api/internal/translator"
)

// Language negotiates the response language from Accept-Language
func Language() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(constants.ContextKeyLanguage, translator.MatchLanguage(c.GetHeader("Accept-Language")))
		c.Next()
	}
}
