package comfy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"
)

// Per-endpoint timeouts. These match the ComfyUI deployments comfycam is
// used against and are not configurable.
const (
	UploadConnectTimeout   = 5 * time.Second
	UploadReadTimeout      = 120 * time.Second
	SubmitConnectTimeout   = 5 * time.Second
	SubmitReadTimeout      = 180 * time.Second
	PollConnectTimeout     = 5 * time.Second
	PollReadTimeout        = 180 * time.Second
	DownloadConnectTimeout = 5 * time.Second
	DownloadReadTimeout    = 180 * time.Second
	HealthTimeout          = 3 * time.Second

	// DefaultPollTimeout bounds one poll loop end to end.
	DefaultPollTimeout = 180 * time.Second
	// DefaultPollInterval is the sleep between history queries.
	DefaultPollInterval = 700 * time.Millisecond
)

// newHTTPClient builds an http.Client with a connect timeout on the dialer
// and a read deadline covering the response body.
func newHTTPClient(connect, read time.Duration) *http.Client {
	return &http.Client{
		Timeout: read,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: connect,
			}).DialContext,
		},
	}
}

// request issues one HTTP request with per-call timeouts and returns the
// response. A non-2xx status is not an error; callers read error bodies for
// diagnostics. Transport failures are classified so the orchestrator can
// tell an absent server from a slow one.
func (c *Client) request(ctx context.Context, op, method, path string, query url.Values, header http.Header, body io.Reader, connect, read time.Duration) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	c.log.Debug("http request", "op", op, "method", method, "url", u)
	resp, err := newHTTPClient(connect, read).Do(req)
	if err != nil {
		return nil, c.classify(op, err)
	}
	return resp, nil
}

// classify maps a transport failure onto the error taxonomy: timeouts first,
// then connection refusal / unreachable hosts, everything else as-is.
func (c *Client) classify(op string, err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &RequestTimeoutError{Op: op, Err: err}
	}
	if isUnreachable(err) {
		return fmt.Errorf("%s: ComfyUI at %s: %w", op, c.host, ErrServerUnreachable)
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

func isUnreachable(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return false
}
