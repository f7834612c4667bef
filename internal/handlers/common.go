package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hfeng/codegrader/internal/services"
	"github.com/hfeng/codegrader/pkg/response"
)

// serviceError maps service sentinel errors onto HTTP responses.
func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, services.ErrConflict):
		response.Conflict(c, err.Error())
	case errors.Is(err, services.ErrUnsupportedLanguage),
		errors.Is(err, services.ErrMaxAttempts):
		response.BadRequest(c, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

// paramID parses a :id style path parameter. Reports false after writing
// the error response.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// currentUserID reads the authenticated user set by the auth middleware.
func currentUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "unauthorized")
		return 0, false
	}
	id, ok := v.(uint)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return 0, false
	}
	return id, true
}
