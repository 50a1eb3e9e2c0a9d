package tokens

import (
	"net/http"
	"strings"
)

// FromAuthorizationHeader returns the bearer token or "" when absent. Call
// sites pick exactly one source; there is no fallback chain in this package.
func FromAuthorizationHeader(r *http.Request) string {
	ah := strings.TrimSpace(r.Header.Get("Authorization"))
	if ah == "" {
		return ""
	}
	parts := strings.SplitN(ah, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// FromSessionCookie returns the session cookie value or "" when absent.
func FromSessionCookie(r *http.Request) string {
	ck, err := r.Cookie(SessionCookieName)
	if err != nil || ck == nil {
		return ""
	}
	return ck.Value
}
