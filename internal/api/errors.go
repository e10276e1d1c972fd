package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/foxholetools/artyplanner/internal/history"
	"github.com/foxholetools/artyplanner/internal/planner"
	"github.com/foxholetools/artyplanner/internal/storage"
	"github.com/foxholetools/artyplanner/internal/validate"
	"github.com/gin-gonic/gin"
)

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, validate.ErrInvalidGeometry),
		errors.Is(err, validate.ErrInvalidReference),
		errors.Is(err, validate.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrPlanNotFound),
		errors.Is(err, planner.ErrSessionNotFound),
		errors.Is(err, history.ErrNothingToRemove):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes err as {"error": ...}. Internal errors are logged
// and replaced by a generic message.
func abortWithError(c *gin.Context, log *slog.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.ErrorContext(c.Request.Context(), "Request failed", "path", c.FullPath(), "error", err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
}
