package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lecture-booking-api/internal/middleware"
	"github.com/noah-isme/lecture-booking-api/internal/models"
	appErrors "github.com/noah-isme/lecture-booking-api/pkg/errors"
	"github.com/noah-isme/lecture-booking-api/pkg/response"
)

// actorFromContext resolves the authenticated caller, writing a 401 when the
// route was reached without claims.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	claims, ok := middleware.Claims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, false
	}
	return claims.Actor(), true
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}
