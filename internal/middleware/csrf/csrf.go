package csrf

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/skyplanner/skyplanner/internal/transport/respond"
)

type Config struct {
	CookieName string
	HeaderName string

	CookiePath string
	Domain     string
	Secure     bool
	SameSite   http.SameSite
	MaxAge     time.Duration

	// Prefixes exempt from the double-submit check: webhooks and the
	// credential endpoints that run before any cookie exists, plus the
	// proxied backend paths which carry the header through untouched.
	SkipPrefixes []string
}

func DefaultConfig() Config {
	return Config{
		CookieName: "__csrf",
		HeaderName: "X-CSRF-Token",
		CookiePath: "/",
		Secure:     false,
		SameSite:   http.SameSiteStrictMode,
		MaxAge:     24 * time.Hour,
		SkipPrefixes: []string{
			"/api/webhooks/",
			"/api/auth/login",
			"/api/auth/register",
			"/api/auth/password-reset",
			"/api/backend/",
		},
	}
}

func Middleware(cfg Config) echo.MiddlewareFunc {
	def := DefaultConfig()
	if cfg.CookieName == "" {
		cfg.CookieName = def.CookieName
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = def.HeaderName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = def.CookiePath
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = def.SameSite
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = def.MaxAge
	}
	if cfg.SkipPrefixes == nil {
		cfg.SkipPrefixes = def.SkipPrefixes
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			token := readCookie(req, cfg.CookieName)

			if !mutating(req.Method) || skipped(req.URL.Path, cfg.SkipPrefixes) {
				// Issue the cookie on plain navigations only, and only when
				// the browser doesn't hold one yet. Mutating requests never
				// mint: they prove possession of an existing token.
				if token == "" && !mutating(req.Method) {
					fresh, err := newToken(32)
					if err != nil {
						return respond.Fail(c, http.StatusInternalServerError, "internal", "failed to create CSRF token")
					}
					setCSRFCookie(c, cfg, fresh)
				}
				return next(c)
			}

			provided := req.Header.Get(cfg.HeaderName)
			if !secureCompare(token, provided) {
				return respond.Fail(c, http.StatusForbidden, "csrfMismatch", "invalid CSRF token")
			}

			return next(c)
		}
	}
}

func mutating(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func skipped(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func newToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func setCSRFCookie(c echo.Context, cfg Config, token string) {
	c.SetCookie(&http.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     cfg.CookiePath,
		Domain:   cfg.Domain,
		Secure:   cfg.Secure,
		HttpOnly: false,
		MaxAge:   int(cfg.MaxAge.Seconds()),
		SameSite: cfg.SameSite,
	})
}

func readCookie(req *http.Request, name string) string {
	ck, err := req.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}

// secureCompare never short-circuits on the first differing byte.
func secureCompare(a, b string) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	var v byte
	for i := 0; i < len(a); i++ {
		v |= a[i] ^ b[i]
	}
	return v == 0
}
