package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/capstone/internal/apperr"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error    string `json:"error"`
	Field    string `json:"field,omitempty"`
	Snapshot any    `json:"snapshot,omitempty"`
}

// statusFor maps the error taxonomy to an HTTP status.
func statusFor(err error) int {
	var (
		ve *apperr.ValidationError
		ne *apperr.StageNotEligibleError
		pe *apperr.PersistenceError
	)
	switch {
	case errors.As(err, &ve),
		errors.Is(err, apperr.ErrRevisionCeiling),
		errors.Is(err, apperr.ErrScheduleLocked),
		errors.Is(err, apperr.ErrVerdictTooEarly),
		errors.Is(err, apperr.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.As(err, &ne), errors.Is(err, apperr.ErrAnchorDeletion):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &pe):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
		body.Error = ve.Error()
	}
	var pe *apperr.PersistenceError
	if errors.As(err, &pe) {
		body.Error = "the change could not be saved; showing the last saved state"
		body.Snapshot = snapshotJSON(pe.Snapshot)
	}
	if status == http.StatusInternalServerError {
		log.Printf("api: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, body)
}
