// Package cdn warms the CDN cache for a freshly uploaded retrieval URL. The
// call is best effort: callers log failures and still return the upload
// result, because the content is already durable on the storage network.
package cdn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Client calls the cache-warm endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient builds a cache-warm client. An empty endpoint disables warming:
// Warm becomes a no-op.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// Warm asks the CDN to fetch and cache arweaveURL. It returns an error when
// the endpoint is unreachable or does not report success; callers treat that
// as non-fatal to the upload itself.
func (c *Client) Warm(ctx context.Context, arweaveURL string) error {
	if c.endpoint == "" {
		return nil
	}

	endpoint := fmt.Sprintf("%s?arweaveUrl=%s", c.endpoint, url.QueryEscape(arweaveURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("cache warm: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cache warm: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			zap.L().Error("error closing cache warm response body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cache warm: status %d", resp.StatusCode)
	}

	var reply struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return fmt.Errorf("cache warm: decode response: %w", err)
	}
	if reply.Message != "success" {
		return fmt.Errorf("cache warm: unexpected reply %q", reply.Message)
	}
	return nil
}
