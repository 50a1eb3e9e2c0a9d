package handlers

import (
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/skyplanner/skyplanner/internal/middleware/auth"
	"github.com/skyplanner/skyplanner/internal/repo"
	"github.com/skyplanner/skyplanner/internal/service/search"
	"github.com/skyplanner/skyplanner/internal/transport/respond"
)

type AuditHandler struct {
	Repo    *repo.GormRepo
	ES      *elasticsearch.Client
	ESIndex string
}

// Search returns the caller's security audit trail. Without a query it reads
// the authoritative database log; with one it goes through the search index.
func (h *AuditHandler) Search(c echo.Context) error {
	claims := auth.ClaimsFrom(c)
	if claims == nil {
		return respond.RequireLogin(c, http.StatusUnauthorized, "requireLogin", "authentication required")
	}
	klientID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return respond.Fail(c, http.StatusUnauthorized, "invalidToken", "invalid session token")
	}

	q := c.QueryParam("q")
	if q == "" || h.ES == nil {
		limit, _ := strconv.Atoi(c.QueryParam("limit"))
		entries, err := h.Repo.ListAudit(c.Request().Context(), klientID, limit)
		if err != nil {
			return failFromErr(c, err)
		}
		return respond.OK(c, http.StatusOK, map[string]any{"total": len(entries), "entries": entries})
	}

	from, _ := strconv.Atoi(c.QueryParam("from"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	if size <= 0 || size > 100 {
		size = 20
	}

	total, hits, err := search.AuditSearch(c.Request().Context(), h.ES, h.ESIndex, klientID.String(), q, from, size)
	if err != nil {
		return failFromErr(c, err)
	}
	return respond.OK(c, http.StatusOK, map[string]any{"total": total, "entries": hits})
}
