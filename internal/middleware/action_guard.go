package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	appErrors "github.com/campus-shuttle/shuttle-api/pkg/errors"
	"github.com/campus-shuttle/shuttle-api/pkg/response"
)

// ActionLocker hands out per-user action locks.
type ActionLocker interface {
	Acquire(ctx context.Context, userID string) (func(), error)
}

// ActionGuard admits one in-flight advisor action per user. A second request
// while the first is running is answered with 409 ACTION_IN_PROGRESS.
func ActionGuard(locker ActionLocker) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentUser(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		release, err := locker.Acquire(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		defer release()
		c.Next()
	}
}
