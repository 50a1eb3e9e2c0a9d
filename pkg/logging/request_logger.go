package logging

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
)

// Echo context keys the auth guard populates once a session token checks
// out. Mirrored here so completed-request lines can name the account and
// tenant without re-parsing the token.
const (
	identityKey = "user_id"
	userTypeKey = "user_type"
	tenantKey   = "org_id"
)

// RequestLogger attaches a request-scoped logger to the context and emits
// one line per completed request, tiered by status. Requests that passed the
// auth guard additionally carry the klient and org identity.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			l := base.With(
				"method", req.Method,
				"route", c.Path(),
				"path", req.URL.Path,
				"remote_ip", c.RealIP(),
			)
			if rid := req.Header.Get(echo.HeaderXRequestID); rid != "" {
				l = l.With("request_id", rid)
				c.Response().Header().Set(echo.HeaderXRequestID, rid)
			}

			c.SetRequest(req.WithContext(IntoContext(req.Context(), l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Echo().HTTPErrorHandler(err, c)
			}

			attrs := []any{
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"bytes_out", c.Response().Size,
			}
			attrs = appendIdentity(attrs, c)
			if err != nil {
				attrs = append(attrs, "error", err.Error())
			}

			switch status := c.Response().Status; {
			case err != nil || status >= 500:
				l.Error("request completed", attrs...)
			case status >= 400:
				l.Warn("request completed", attrs...)
			default:
				l.Info("request completed", attrs...)
			}
			return nil
		}
	}
}

// appendIdentity reads what the guard stored on the echo context. The guard
// runs after this middleware, so the values are only there once the handler
// chain has returned.
func appendIdentity(attrs []any, c echo.Context) []any {
	if id, ok := c.Get(identityKey).(string); ok && id != "" {
		attrs = append(attrs, "klient_id", id)
	}
	if ut, ok := c.Get(userTypeKey).(string); ok && ut != "" {
		attrs = append(attrs, "user_type", ut)
	}
	if org, ok := c.Get(tenantKey).(string); ok && org != "" {
		attrs = append(attrs, "org_id", org)
	}
	return attrs
}
