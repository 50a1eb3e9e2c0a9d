package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/skyplanner/skyplanner/internal/middleware/auth"
	"github.com/skyplanner/skyplanner/internal/models"
	"github.com/skyplanner/skyplanner/internal/repo"
	"github.com/skyplanner/skyplanner/internal/service"
	"github.com/skyplanner/skyplanner/internal/transport/respond"
	"github.com/skyplanner/skyplanner/pkg/tokens"
)

type AuthHandler struct {
	Auth   *service.AuthService
	Repo   *repo.GormRepo
	Secure bool
}

type klientView struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	UserType    string  `json:"user_type"`
	OrgID       *string `json:"org_id,omitempty"`
	OrgSlug     *string `json:"org_slug,omitempty"`
	TOTPEnabled bool    `json:"totp_enabled"`
}

func newKlientView(k *models.Klient) klientView {
	v := klientView{
		ID:          k.ID.String(),
		Email:       k.Email,
		UserType:    k.UserType,
		OrgSlug:     k.OrgSlug,
		TOTPEnabled: k.TOTPEnabled,
	}
	if k.OrgID != nil {
		id := k.OrgID.String()
		v.OrgID = &id
	}
	return v
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Code     string `json:"code"`
	}
	if err := c.Bind(&req); err != nil {
		return respond.Fail(c, http.StatusBadRequest, "validation", "invalid request body")
	}

	meta := service.SessionMeta{
		IP:         c.RealIP(),
		UserAgent:  c.Request().UserAgent(),
		DeviceInfo: c.Request().Header.Get("X-Device-Info"),
	}
	res, err := h.Auth.Login(c.Request().Context(), req.Email, req.Password, req.Code, meta)
	if err != nil {
		return failFromErr(c, err)
	}

	c.SetCookie(tokens.NewSessionCookie(res.Token, res.ExpiresAt, h.Secure))

	return respond.OK(c, http.StatusOK, map[string]any{
		"token":      res.Token,
		"expires_at": res.ExpiresAt,
		"klient":     newKlientView(res.Klient),
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	claims := auth.ClaimsFrom(c)
	if claims == nil {
		return respond.RequireLogin(c, http.StatusUnauthorized, "requireLogin", "authentication required")
	}

	if err := h.Auth.Logout(c.Request().Context(), claims); err != nil {
		return failFromErr(c, err)
	}

	c.SetCookie(tokens.DeleteSessionCookie(h.Secure))
	return respond.OK(c, http.StatusOK, nil)
}

func (h *AuthHandler) Me(c echo.Context) error {
	k, err := loadKlient(c, h.Repo)
	if err != nil {
		return failFromErr(c, err)
	}
	return respond.OK(c, http.StatusOK, newKlientView(k))
}

// loadKlient resolves the account row behind the authenticated claims.
func loadKlient(c echo.Context, r *repo.GormRepo) (*models.Klient, error) {
	claims := auth.ClaimsFrom(c)
	if claims == nil {
		return nil, repo.ErrNotFound
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, repo.ErrNotFound
	}
	return r.FindKlientByID(c.Request().Context(), id)
}
