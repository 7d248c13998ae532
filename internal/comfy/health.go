package comfy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// QueueStatus asks the server for its queue state and returns any 200
// response body verbatim. Used by the operator health check only.
func (c *Client) QueueStatus(ctx context.Context) (string, error) {
	query := url.Values{"client_id": {c.clientID}}
	resp, err := c.request(ctx, "health", http.MethodGet, "/queue/status", query, nil, nil, HealthTimeout, HealthTimeout)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.classify("health", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("health check failed: server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return string(body), nil
}
