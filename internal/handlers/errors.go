package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/skyplanner/skyplanner/internal/repo"
	"github.com/skyplanner/skyplanner/internal/service"
	"github.com/skyplanner/skyplanner/internal/transport/respond"
	"github.com/skyplanner/skyplanner/pkg/logging"
)

// failFromErr maps service and repository sentinels to the JSON envelope.
// Anything unmapped is a 500; the raw error goes to the log, never the client.
func failFromErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return respond.Fail(c, http.StatusBadRequest, "validation", "invalid request")
	case errors.Is(err, service.ErrTwoFactorRequired):
		return respond.Fail(c, http.StatusUnauthorized, "twoFactorRequired", "a two-factor code is required")
	case errors.Is(err, service.ErrInvalidCode):
		return respond.Fail(c, http.StatusUnauthorized, "invalidCode", "invalid verification code")
	case errors.Is(err, repo.ErrInvalidCredentials):
		return respond.Fail(c, http.StatusUnauthorized, "invalidCredentials", "invalid email or password")
	case errors.Is(err, repo.ErrCannotTerminateCurrent):
		return respond.Fail(c, http.StatusBadRequest, "cannotTerminateCurrentSession", "use logout to end the current session")
	case errors.Is(err, repo.ErrTOTPAlreadyEnabled):
		return respond.Fail(c, http.StatusBadRequest, "alreadyEnabled", "two-factor authentication is already enabled")
	case errors.Is(err, repo.ErrTOTPNotConfigured):
		return respond.Fail(c, http.StatusBadRequest, "notConfigured", "two-factor authentication is not configured")
	case errors.Is(err, repo.ErrNotFound):
		return respond.Fail(c, http.StatusNotFound, "notFound", "not found")
	default:
		logging.FromContext(c.Request().Context()).Error("handler error", "path", c.Path(), "error", err)
		return respond.Fail(c, http.StatusInternalServerError, "internal", "internal error")
	}
}
