// Package handler holds the request helpers shared by the resource handlers.
package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/medtracker-api/internal/model"
	apperrors "github.com/jwalitptl/medtracker-api/pkg/errors"
	"github.com/jwalitptl/medtracker-api/pkg/httputil"
	"github.com/jwalitptl/medtracker-api/pkg/validator"
)

// ParseID reads the :id path parameter. A malformed id cannot name an
// existing resource, so it is answered with 404.
func ParseID(c *gin.Context, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NotFound(resource, err))
		return uuid.Nil, false
	}
	return id, true
}

// BindJSON decodes and validates the request body, answering 400 on failure.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(validator.Translate(err), err))
		return false
	}
	return true
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(model.DateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Fail hands err to the error middleware and stops the chain.
func Fail(c *gin.Context, err error) {
	c.Error(err)
	c.Abort()
}
