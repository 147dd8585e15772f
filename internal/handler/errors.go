package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"peritagem/internal/repository"
	"peritagem/internal/service"
	"peritagem/internal/workflow"
	"peritagem/pkg/response"
)

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, workflow.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrForbiddenEdit),
		errors.Is(err, workflow.ErrRoleNotAllowed),
		errors.Is(err, service.ErrAwaitingApproval),
		errors.Is(err, service.ErrInactive):
		return http.StatusForbidden
	case errors.Is(err, service.ErrStaleRevision),
		errors.Is(err, workflow.ErrTerminal),
		errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, service.ErrReportUnavailable),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrNoAuthor):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError replies with the mapped status. Internal errors are not echoed.
func writeError(c *gin.Context, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "Internal server error"
	}
	c.JSON(code, response.Error(code, msg))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, msg))
}
