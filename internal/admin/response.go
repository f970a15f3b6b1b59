package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"convalesense/internal/model"
	"convalesense/internal/repository"
	"convalesense/internal/service"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// ListEnvelope wraps list responses.
type ListEnvelope struct {
	Entity string `json:"entity"`
	Items  []Row  `json:"items"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// respondServiceError maps domain errors onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		RespondError(c, http.StatusBadRequest, "validation_failed", err)
	case errors.Is(err, repository.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrDuplicateRecord):
		RespondError(c, http.StatusConflict, "duplicate_record", err)
	case errors.Is(err, service.ErrUnavailable):
		RespondError(c, http.StatusConflict, "unavailable", err)
	case errors.Is(err, model.ErrZeroReps):
		RespondError(c, http.StatusUnprocessableEntity, "zero_reps", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
