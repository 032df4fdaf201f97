// Package directory checks claimed identities against the user directory.
// A public key is registered iff the directory answers 200 for it; every
// other status, and every transport failure, reads as "does not exist".
package directory

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client queries the user directory API.
type Client struct {
	apiURL string
	http   *http.Client
}

// NewClient builds a directory client for the given API base URL (without a
// trailing slash).
func NewClient(apiURL string, timeout time.Duration) *Client {
	return &Client{
		apiURL: apiURL,
		http:   &http.Client{Timeout: timeout},
	}
}

// Exists reports whether publicKey belongs to a registered user. Lookup
// failures are logged and reported as false, which short-circuits the request
// before any funding or upload work.
func (c *Client) Exists(ctx context.Context, publicKey string) bool {
	endpoint := fmt.Sprintf("%s/user/get/%s", c.apiURL, publicKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		zap.L().Error("directory request build failed", zap.Error(err))
		return false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		zap.L().Error("directory lookup failed", zap.Error(err))
		return false
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			zap.L().Error("error closing directory response body", zap.Error(cerr))
		}
	}()

	return resp.StatusCode == http.StatusOK
}
