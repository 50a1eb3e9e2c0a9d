package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/skyplanner/skyplanner/internal/repo"
	"github.com/skyplanner/skyplanner/internal/service"
	"github.com/skyplanner/skyplanner/internal/transport/respond"
)

type TwoFactorHandler struct {
	TwoFactor *service.TwoFactorService
	Repo      *repo.GormRepo
}

// Setup provisions a fresh secret and backup codes. The plaintext secret and
// codes appear in this response and nowhere else.
func (h *TwoFactorHandler) Setup(c echo.Context) error {
	k, err := loadKlient(c, h.Repo)
	if err != nil {
		return failFromErr(c, err)
	}

	setup, err := h.TwoFactor.Setup(c.Request().Context(), k)
	if err != nil {
		return failFromErr(c, err)
	}
	return respond.OK(c, http.StatusOK, setup)
}

func (h *TwoFactorHandler) Verify(c echo.Context) error {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.Bind(&req); err != nil || req.Code == "" {
		return respond.Fail(c, http.StatusBadRequest, "validation", "a verification code is required")
	}

	k, err := loadKlient(c, h.Repo)
	if err != nil {
		return failFromErr(c, err)
	}

	if err := h.TwoFactor.Verify(c.Request().Context(), k, req.Code); err != nil {
		return failFromErr(c, err)
	}
	return respond.OK(c, http.StatusOK, map[string]any{"totp_enabled": true})
}

func (h *TwoFactorHandler) Disable(c echo.Context) error {
	var req struct {
		Password string `json:"password"`
		Code     string `json:"code"`
	}
	if err := c.Bind(&req); err != nil {
		return respond.Fail(c, http.StatusBadRequest, "validation", "invalid request body")
	}

	k, err := loadKlient(c, h.Repo)
	if err != nil {
		return failFromErr(c, err)
	}

	if err := h.TwoFactor.Disable(c.Request().Context(), k, req.Password, req.Code); err != nil {
		return failFromErr(c, err)
	}
	return respond.OK(c, http.StatusOK, map[string]any{"totp_enabled": false})
}

func (h *TwoFactorHandler) RegenerateBackupCodes(c echo.Context) error {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.Bind(&req); err != nil || req.Code == "" {
		return respond.Fail(c, http.StatusBadRequest, "validation", "a verification code is required")
	}

	k, err := loadKlient(c, h.Repo)
	if err != nil {
		return failFromErr(c, err)
	}

	codes, err := h.TwoFactor.RegenerateBackupCodes(c.Request().Context(), k, req.Code)
	if err != nil {
		return failFromErr(c, err)
	}
	return respond.OK(c, http.StatusOK, map[string]any{"backup_codes": codes})
}
