package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/skyplanner/skyplanner/internal/billing"
	"github.com/skyplanner/skyplanner/internal/middleware/auth"
	"github.com/skyplanner/skyplanner/internal/transport/respond"
)

type BillingHandler struct {
	Billing *billing.Client
}

// Portal opens a billing portal session for the caller's organization.
// Requires tenant context; the route runs behind RequireTenant.
func (h *BillingHandler) Portal(c echo.Context) error {
	claims := auth.ClaimsFrom(c)
	if claims == nil || claims.OrgID == nil {
		return respond.Fail(c, http.StatusUnauthorized, "MissingTenantContext", "no organization resolved for this session")
	}

	var req struct {
		ReturnURL string `json:"return_url"`
	}
	if err := c.Bind(&req); err != nil {
		return respond.Fail(c, http.StatusBadRequest, "validation", "invalid request body")
	}
	if req.ReturnURL == "" {
		req.ReturnURL = "/dashboard/billing"
	}

	session, err := h.Billing.CreatePortalSession(c.Request().Context(), *claims.OrgID, req.ReturnURL)
	if err != nil {
		return failFromErr(c, err)
	}
	return respond.OK(c, http.StatusOK, session)
}
