// Package v1 implements the v1 API. All resources are scoped to a
// single user, matching the per-user document collections of the
// frontend.
package v1

import (
	"errors"
	"net/http"

	"github.com/centsible/backend/internal/httputil"
	"github.com/centsible/backend/internal/models"
	"github.com/centsible/backend/internal/recurring"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// engine is shared by all handlers so that the in-process concurrency
// guard spans every request path.
var engine = recurring.NewEngine()

type httpError struct {
	Error string `json:"error" example:"the specified resource ID is not a valid UUID"`
}

// status returns the appropriate HTTP status for a database error
func status(err error) int {
	if errors.Is(err, models.ErrGeneral) {
		return http.StatusInternalServerError
	}

	if errors.Is(err, models.ErrResourceNotFound) {
		return http.StatusNotFound
	}

	return http.StatusBadRequest
}

// userID parses the user ID from the request URI.
func userID(c *gin.Context) (uuid.UUID, error) {
	return httputil.UUIDFromString(c.Param("userId"))
}

// resourceID parses the resource ID from the request URI.
func resourceID(c *gin.Context) (uuid.UUID, error) {
	return httputil.UUIDFromString(c.Param("id"))
}

// RegisterRoutes registers all v1 routes with the user-scoped
// RouterGroup that is passed.
func RegisterRoutes(r *gin.RouterGroup) {
	RegisterTemplateRoutes(r.Group("/templates"))
	RegisterExpenseRoutes(r.Group("/expenses"))

	{
		r.OPTIONS("/materialize", OptionsMaterialize)
		r.POST("/materialize", Materialize)
	}
}
