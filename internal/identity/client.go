// Package identity talks to the external account-linking service used
// by the verify-identity command.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Client queries the identity backend over HTTP. Transient backend
// errors are retried by the underlying client; only a definitive
// answer or exhaustion reaches the caller.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 5 * time.Second
	c.HTTPClient.Timeout = 10 * time.Second
	c.Logger = slog.NewLogLogger(logger.Handler(), slog.LevelDebug)
	return &Client{baseURL: baseURL, http: c}
}

// IsIdentityLinked reports whether a forge login is linked to a known
// identity. 404 is a definitive "not linked", not an error.
func (c *Client) IsIdentityLinked(ctx context.Context, login string) (bool, error) {
	if c.baseURL == "" {
		return false, fmt.Errorf("identity backend is not configured")
	}

	endpoint := fmt.Sprintf("%s/v1/identities/%s", c.baseURL, url.PathEscape(login))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("build identity request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("query identity backend: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("identity backend returned %s", resp.Status)
	}
}
