package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client creates billing portal sessions against the payment provider's API.
type Client struct {
	endpoint   string
	secretKey  string
	httpClient *http.Client
}

func NewClient(endpoint, secretKey string) *Client {
	return &Client{
		endpoint:  endpoint,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type PortalSession struct {
	URL string `json:"url"`
}

// CreatePortalSession returns a URL the browser is redirected to for managing
// the organization's subscription.
func (c *Client) CreatePortalSession(ctx context.Context, customerRef, returnURL string) (*PortalSession, error) {
	if c.secretKey == "" {
		return nil, fmt.Errorf("billing: secret key not configured")
	}

	form := url.Values{}
	form.Set("customer", customerRef)
	form.Set("return_url", returnURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("portal session failed with status: %d", resp.StatusCode)
	}

	var out PortalSession
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
