// Package comfy is an HTTP client for the ComfyUI server API: image upload,
// prompt submission, history polling, result download, queue health, and the
// websocket progress feed. One Client carries a fixed client_id token for the
// process lifetime; the token scopes client identity with the server, not
// individual jobs.
package comfy

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"comfycam/internal/logging"
)

// Client talks to one ComfyUI server.
type Client struct {
	host     string
	baseURL  string
	clientID string
	log      *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithClientID fixes the correlation token instead of generating one.
func WithClientID(id string) Option {
	return func(c *Client) {
		c.clientID = id
	}
}

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New creates a Client for the server at host (host:port, or a full URL).
func New(host string, opts ...Option) *Client {
	c := &Client{
		host: host,
		log:  logging.Default().WithComponent("comfy"),
	}
	if strings.Contains(host, "://") {
		c.baseURL = strings.TrimSuffix(host, "/")
		c.host = strings.TrimPrefix(strings.TrimPrefix(c.baseURL, "http://"), "https://")
	} else {
		c.baseURL = "http://" + host
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.clientID == "" {
		c.clientID = newClientID()
	}
	return c
}

// Host returns the host:port of the server.
func (c *Client) Host() string { return c.host }

// ClientID returns the process-lifetime correlation token.
func (c *Client) ClientID() string { return c.clientID }

func newClientID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms
		return "comfycam"
	}
	return hex.EncodeToString(b[:])
}
