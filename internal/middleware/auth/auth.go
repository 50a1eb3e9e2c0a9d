package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/skyplanner/skyplanner/internal/repo"
	"github.com/skyplanner/skyplanner/internal/transport/respond"
	"github.com/skyplanner/skyplanner/pkg/logging"
	"github.com/skyplanner/skyplanner/pkg/tokens"
)

const (
	CtxClaims   = "session_claims"
	CtxUserID   = "user_id"
	CtxUserType = "user_type"
	CtxOrgID    = "org_id"
	CtxOrgSlug  = "org_slug"
)

// Guard authenticates requests from either a bearer header or the session
// cookie. Every accepted token is checked against the blacklist, so a
// terminated session dies immediately instead of at natural expiry.
type Guard struct {
	JWTSecret []byte
	Repo      *repo.GormRepo
	Secure    bool
}

func NewGuard(secret []byte, r *repo.GormRepo, secure bool) *Guard {
	return &Guard{JWTSecret: secret, Repo: r, Secure: secure}
}

func (g *Guard) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()

		raw := tokens.FromAuthorizationHeader(req)
		if raw == "" {
			raw = tokens.FromSessionCookie(req)
		}
		if raw == "" {
			return respond.RequireLogin(c, http.StatusUnauthorized, "requireLogin", "authentication required")
		}

		claims, err := tokens.SessionClaimsFromToken(raw, g.JWTSecret)
		if err != nil {
			c.SetCookie(tokens.DeleteSessionCookie(g.Secure))
			if errors.Is(err, tokens.ErrTokenExpired) {
				return respond.Fail(c, http.StatusUnauthorized, "sessionExpired", "your session has expired, please sign in again")
			}
			return respond.Fail(c, http.StatusUnauthorized, "invalidToken", "invalid session token")
		}
		if claims.Subject == "" || claims.ID == "" {
			return respond.Fail(c, http.StatusUnauthorized, "invalidToken", "invalid session token")
		}

		blocked, err := g.Repo.IsBlacklisted(req.Context(), claims.ID)
		if err != nil {
			return respond.Fail(c, http.StatusInternalServerError, "internal", "internal error")
		}
		if blocked {
			c.SetCookie(tokens.DeleteSessionCookie(g.Secure))
			return respond.Fail(c, http.StatusUnauthorized, "invalidToken", "invalid session token")
		}

		if err := g.Repo.TouchSession(req.Context(), claims.ID, time.Now()); err != nil {
			logging.FromContext(req.Context()).Error("touch session", "error", err)
		}

		c.Set(CtxClaims, claims)
		c.Set(CtxUserID, claims.Subject)
		c.Set(CtxUserType, claims.UserType)
		if claims.OrgID != nil {
			c.Set(CtxOrgID, *claims.OrgID)
		}
		if claims.OrgSlug != nil {
			c.Set(CtxOrgSlug, *claims.OrgSlug)
		}

		return next(c)
	}
}

// RequireTenant rejects authenticated callers that have not resolved an
// organization yet. Runs after RequireLogin.
func (g *Guard) RequireTenant(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := ClaimsFrom(c)
		if claims == nil || claims.OrgID == nil || *claims.OrgID == "" {
			return respond.Fail(c, http.StatusUnauthorized, "MissingTenantContext", "no organization resolved for this session")
		}
		return next(c)
	}
}

// ClaimsFrom returns the claims RequireLogin stored, or nil outside the
// guarded groups.
func ClaimsFrom(c echo.Context) *tokens.SessionClaims {
	claims, _ := c.Get(CtxClaims).(*tokens.SessionClaims)
	return claims
}
