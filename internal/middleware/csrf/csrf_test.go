package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRequest(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Middleware(DefaultConfig())(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	require.NoError(t, handler(c))
	return rec
}

func csrfCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "__csrf" {
			return ck
		}
	}
	return nil
}

func TestCSRF_GetMintsCookie(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec := runRequest(t, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	ck := csrfCookie(t, rec)
	require.NotNil(t, ck)
	assert.NotEmpty(t, ck.Value)
	assert.False(t, ck.HttpOnly, "double-submit requires script access to the cookie")
	assert.Equal(t, http.SameSiteStrictMode, ck.SameSite)
	assert.Equal(t, 24*60*60, ck.MaxAge)
}

func TestCSRF_GetKeepsExistingCookie(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "__csrf", Value: "existing-token"})
	rec := runRequest(t, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, csrfCookie(t, rec), "a held token must not be re-issued")
}

func TestCSRF_MutatingRequestsNeverMint(t *testing.T) {
	t.Parallel()

	// A POST without a cookie fails the check and must not receive one
	// either; tokens only come from plain navigations.
	req := httptest.NewRequest(http.MethodPost, "/api/dashboard/2fa/setup", nil)
	req.Header.Set("X-CSRF-Token", "tok-1")
	rec := runRequest(t, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, csrfCookie(t, rec))

	// Same for a mutating request that passes: the existing cookie is
	// left alone rather than re-set with a fresh expiry.
	req = httptest.NewRequest(http.MethodPost, "/api/dashboard/2fa/setup", nil)
	req.AddCookie(&http.Cookie{Name: "__csrf", Value: "tok-1"})
	req.Header.Set("X-CSRF-Token", "tok-1")
	rec = runRequest(t, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, csrfCookie(t, rec))
}

func TestCSRF_MutatingRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		method     string
		path       string
		cookie     string
		header     string
		wantStatus int
	}{
		{name: "matching tokens pass", method: http.MethodPost, path: "/api/dashboard/2fa/setup", cookie: "tok-1", header: "tok-1", wantStatus: http.StatusOK},
		{name: "mismatch rejected", method: http.MethodPost, path: "/api/dashboard/2fa/setup", cookie: "tok-1", header: "tok-2", wantStatus: http.StatusForbidden},
		{name: "missing header rejected", method: http.MethodPost, path: "/api/dashboard/2fa/setup", cookie: "tok-1", header: "", wantStatus: http.StatusForbidden},
		{name: "missing cookie rejected", method: http.MethodDelete, path: "/api/dashboard/sessions/x", cookie: "", header: "tok-1", wantStatus: http.StatusForbidden},
		{name: "put checked", method: http.MethodPut, path: "/api/dashboard/profile", cookie: "tok-1", header: "tok-2", wantStatus: http.StatusForbidden},
		{name: "login exempt", method: http.MethodPost, path: "/api/auth/login", cookie: "", header: "", wantStatus: http.StatusOK},
		{name: "webhooks exempt", method: http.MethodPost, path: "/api/webhooks/payment", cookie: "", header: "", wantStatus: http.StatusOK},
		{name: "password reset exempt", method: http.MethodPost, path: "/api/auth/password-reset/confirm", cookie: "", header: "", wantStatus: http.StatusOK},
		{name: "backend proxy exempt", method: http.MethodPost, path: "/api/backend/tasks", cookie: "", header: "", wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "__csrf", Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set("X-CSRF-Token", tt.header)
			}

			rec := runRequest(t, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestSecureCompare(t *testing.T) {
	t.Parallel()

	assert.True(t, secureCompare("abc123", "abc123"))
	assert.False(t, secureCompare("abc123", "abc124"))
	assert.False(t, secureCompare("abc123", "abc12"))
	assert.False(t, secureCompare("", ""))
	assert.False(t, secureCompare("abc", ""))
}
