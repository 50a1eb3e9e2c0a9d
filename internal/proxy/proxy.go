package proxy

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/skyplanner/skyplanner/pkg/logging"
)

// Only these request headers cross to the backend; everything else the
// browser sent stays on this side.
var forwardedHeaders = []string{"Cookie", "Content-Type", "Authorization", "X-CSRF-Token"}

// Response headers that describe the transport, not the payload.
var dropResponseHeaders = []string{"Transfer-Encoding", "Connection"}

// New returns an echo handler forwarding requests to the backend origin,
// with stripPrefix removed from the path first.
func New(target, stripPrefix string) (echo.HandlerFunc, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}

	baseTransport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 60 * time.Second,
		}).DialContext,
		MaxIdleConns:          200,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	p := httputil.NewSingleHostReverseProxy(u)
	p.Transport = baseTransport

	origDirector := p.Director
	p.Director = func(req *http.Request) {
		kept := http.Header{}
		for _, h := range forwardedHeaders {
			if vs := req.Header.Values(h); len(vs) > 0 {
				kept[http.CanonicalHeaderKey(h)] = vs
			}
		}

		origDirector(req)
		req.Header = kept
		req.Host = u.Host

		if stripPrefix != "" && strings.HasPrefix(req.URL.Path, stripPrefix) {
			req.URL.Path = strings.TrimPrefix(req.URL.Path, stripPrefix)
			if req.URL.Path == "" {
				req.URL.Path = "/"
			}
			if rp := req.URL.RawPath; rp != "" && strings.HasPrefix(rp, stripPrefix) {
				req.URL.RawPath = strings.TrimPrefix(rp, stripPrefix)
			}
		}
	}

	p.ModifyResponse = func(resp *http.Response) error {
		for _, h := range dropResponseHeaders {
			resp.Header.Del(h)
		}
		return nil
	}

	// Upstream failures become a structured 502; the raw error stays in the
	// server log only.
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logging.FromContext(r.Context()).Error("backend proxy", "path", r.URL.Path, "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   map[string]string{"code": "backendUnavailable", "message": "backend service is unavailable"},
		})
	}

	p.FlushInterval = 100 * time.Millisecond

	return func(c echo.Context) error {
		p.ServeHTTP(c.Response(), c.Request())
		return nil
	}, nil
}
