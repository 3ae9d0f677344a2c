package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus-shuttle/shuttle-api/internal/middleware"
	"github.com/campus-shuttle/shuttle-api/internal/models"
	appErrors "github.com/campus-shuttle/shuttle-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		return nil
	}
	return claims
}

// today is the calendar date in loc.
func today(loc *time.Location, now func() time.Time) string {
	return now().In(loc).Format(models.DateLayout)
}

func queryLimit(c *gin.Context, fallback, max int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer")
	}
	if limit > max {
		limit = max
	}
	return limit, nil
}
