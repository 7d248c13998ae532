package comfy

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// ProgressEvent is one update from the server's websocket feed: sampler
// progress counters and node execution transitions for the client's jobs.
type ProgressEvent struct {
	PromptID string
	Node     string
	Value    int
	Max      int
}

// ListenProgress connects to the server's websocket feed and invokes fn for
// each progress or executing event until ctx is cancelled or the connection
// drops. The feed is purely observational; polling remains the completion
// authority, so callers treat any returned error as best-effort.
func (c *Client) ListenProgress(ctx context.Context, fn func(ProgressEvent)) error {
	wsURL := "ws://" + c.host + "/ws?clientId=" + url.QueryEscape(c.clientID)
	if strings.HasPrefix(c.baseURL, "https://") {
		wsURL = "wss://" + c.host + "/ws?clientId=" + url.QueryEscape(c.clientID)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	// A failed upgrade still carries the HTTP response.
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return c.classify("progress", err)
	}
	defer conn.Close()

	// Unblock ReadMessage when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if kind != websocket.TextMessage {
			// Binary frames carry preview images; skip them.
			continue
		}

		var msg struct {
			Type string `json:"type"`
			Data struct {
				PromptID string `json:"prompt_id"`
				Node     string `json:"node"`
				Value    int    `json:"value"`
				Max      int    `json:"max"`
			} `json:"data"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "progress", "executing":
			fn(ProgressEvent{
				PromptID: msg.Data.PromptID,
				Node:     msg.Data.Node,
				Value:    msg.Data.Value,
				Max:      msg.Data.Max,
			})
		}
	}
}
