package http

import (
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/labstack/echo/v4"

	"github.com/skyplanner/skyplanner/internal/billing"
	"github.com/skyplanner/skyplanner/internal/handlers"
	authmw "github.com/skyplanner/skyplanner/internal/middleware/auth"
	"github.com/skyplanner/skyplanner/internal/middleware/csrf"
	"github.com/skyplanner/skyplanner/internal/proxy"
	"github.com/skyplanner/skyplanner/internal/repo"
	"github.com/skyplanner/skyplanner/internal/service"
)

type Deps struct {
	Repo      *repo.GormRepo
	Auth      *service.AuthService
	TwoFactor *service.TwoFactorService
	Sessions  *service.SessionService
	Billing   *billing.Client

	ES      *elasticsearch.Client
	ESIndex string

	JWTSecret     []byte
	BackendOrigin string
	Secure        bool
}

// Register wires middleware and routes. The CSRF guard runs ahead of auth on
// everything; the backend proxy sits behind login so the internal origin is
// never reachable anonymously.
func Register(e *echo.Echo, d *Deps) error {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	csrfCfg := csrf.DefaultConfig()
	csrfCfg.Secure = d.Secure
	e.Use(csrf.Middleware(csrfCfg))

	guard := authmw.NewGuard(d.JWTSecret, d.Repo, d.Secure)

	authHandler := &handlers.AuthHandler{Auth: d.Auth, Repo: d.Repo, Secure: d.Secure}
	twoFactorHandler := &handlers.TwoFactorHandler{TwoFactor: d.TwoFactor, Repo: d.Repo}
	sessionHandler := &handlers.SessionHandler{Sessions: d.Sessions}
	auditHandler := &handlers.AuditHandler{Repo: d.Repo, ES: d.ES, ESIndex: d.ESIndex}
	billingHandler := &handlers.BillingHandler{Billing: d.Billing}

	api := e.Group("/api")

	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("/auth", guard.RequireLogin)
	authed.POST("/logout", authHandler.Logout)
	authed.GET("/me", authHandler.Me)

	dashboard := api.Group("/dashboard", guard.RequireLogin)
	dashboard.POST("/2fa/setup", twoFactorHandler.Setup)
	dashboard.POST("/2fa/verify", twoFactorHandler.Verify)
	dashboard.POST("/2fa/disable", twoFactorHandler.Disable)
	dashboard.POST("/2fa/backup-codes", twoFactorHandler.RegenerateBackupCodes)
	dashboard.GET("/sessions", sessionHandler.List)
	dashboard.DELETE("/sessions/:id", sessionHandler.Terminate)
	dashboard.GET("/audit/search", auditHandler.Search)
	dashboard.POST("/billing/portal", billingHandler.Portal, guard.RequireTenant)

	backendProxy, err := proxy.New(d.BackendOrigin, "/api/backend")
	if err != nil {
		return err
	}
	backend := api.Group("/backend", guard.RequireLogin)
	backend.Any("", backendProxy)
	backend.Any("/*", backendProxy)

	return nil
}
