package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/skyplanner/skyplanner/internal/middleware/auth"
	"github.com/skyplanner/skyplanner/internal/service"
	"github.com/skyplanner/skyplanner/internal/transport/respond"
)

type SessionHandler struct {
	Sessions *service.SessionService
}

func (h *SessionHandler) List(c echo.Context) error {
	claims := auth.ClaimsFrom(c)
	if claims == nil {
		return respond.RequireLogin(c, http.StatusUnauthorized, "requireLogin", "authentication required")
	}

	views, err := h.Sessions.List(c.Request().Context(), claims)
	if err != nil {
		return failFromErr(c, err)
	}
	return respond.OK(c, http.StatusOK, map[string]any{"sessions": views})
}

func (h *SessionHandler) Terminate(c echo.Context) error {
	claims := auth.ClaimsFrom(c)
	if claims == nil {
		return respond.RequireLogin(c, http.StatusUnauthorized, "requireLogin", "authentication required")
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Fail(c, http.StatusBadRequest, "validation", "invalid session id")
	}

	if err := h.Sessions.Terminate(c.Request().Context(), claims, sessionID); err != nil {
		return failFromErr(c, err)
	}
	return respond.OK(c, http.StatusOK, nil)
}
