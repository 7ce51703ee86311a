package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/task-tracker-api/internal/errors"
)

const paramKeyPrefix = "param:"

// RequireIDParams checks that each named path parameter is a positive integer
// and stores the parsed values for GetIDParam
func RequireIDParams(names ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range names {
			id, err := strconv.ParseUint(c.Param(name), 10, 64)
			if err != nil || id == 0 {
				apierrors.BadRequest(c, "invalid_id")
				return
			}
			c.Set(paramKeyPrefix+name, id)
		}
		c.Next()
	}
}

// GetIDParam returns a path parameter parsed by RequireIDParams
func GetIDParam(c *gin.Context, name string) (uint64, bool) {
	v, exists := c.Get(paramKeyPrefix + name)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}
