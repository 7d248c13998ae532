package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"comfycam/internal/workflow"
)

// SubmitPrompt submits a prompt graph for execution and returns the prompt
// id the server assigned. The request carries the client's fixed correlation
// token. A response without a prompt id is a hard failure for the cycle.
func (c *Client) SubmitPrompt(ctx context.Context, graph *workflow.Graph) (string, error) {
	payload := struct {
		Prompt   *workflow.Graph `json:"prompt"`
		ClientID string          `json:"client_id"`
	}{Prompt: graph, ClientID: c.clientID}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode prompt: %w", err)
	}

	header := http.Header{"Content-Type": {"application/json"}}
	resp, err := c.request(ctx, "submit", http.MethodPost, "/prompt", nil, header, bytes.NewReader(body), SubmitConnectTimeout, SubmitReadTimeout)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.classify("submit", err)
	}

	var parsed struct {
		PromptID string `json:"prompt_id"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.PromptID == "" {
		return "", &MalformedResponseError{
			Message: "Bad submission response",
			Body:    strings.TrimSpace(string(raw)),
		}
	}

	c.log.Debug("prompt submitted", "prompt_id", parsed.PromptID)
	return parsed.PromptID, nil
}
