package comfy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// ArtifactRef names an image on the server, as reported by a completed job's
// output descriptor or implied by an upload.
type ArtifactRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// PollOptions bounds one poll loop. Zero values take the package defaults;
// OutputNode must name the graph node whose outputs the poller watches.
type PollOptions struct {
	Timeout    time.Duration
	Interval   time.Duration
	OutputNode string
}

func (o PollOptions) withDefaults() PollOptions {
	if o.Timeout <= 0 {
		o.Timeout = DefaultPollTimeout
	}
	if o.Interval <= 0 {
		o.Interval = DefaultPollInterval
	}
	return o
}

// PollHistory repeatedly queries the job's history entry until the watched
// node reports an image, the timeout elapses, or ctx is cancelled. A timeout
// is not an error: it returns (nil, nil) and the caller treats it as "no
// result yet". Transport failures propagate so the caller can classify them.
//
// The output node binds the poller to one specific node of the prompt graph.
// If the graph changes which node publishes the final image, the configured
// node must change with it; nothing auto-discovers it.
func (c *Client) PollHistory(ctx context.Context, promptID string, opts PollOptions) (*ArtifactRef, error) {
	opts = opts.withDefaults()
	start := time.Now()

	for time.Since(start) < opts.Timeout {
		ref, err := c.historyOutput(ctx, promptID, opts.OutputNode)
		if err != nil {
			return nil, err
		}
		if ref != nil {
			c.log.Debug("output ready", "prompt_id", promptID, "filename", ref.Filename)
			return ref, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.Interval):
		}
	}
	return nil, nil
}

// historyOutput fetches the history entry once. A missing entry, missing
// outputs, or a non-200 response all mean "not ready yet" and return
// (nil, nil); only transport failures are errors.
func (c *Client) historyOutput(ctx context.Context, promptID, outputNode string) (*ArtifactRef, error) {
	resp, err := c.request(ctx, "poll", http.MethodGet, "/history/"+promptID, nil, nil, nil, PollConnectTimeout, PollReadTimeout)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.classify("poll", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("history query returned non-200, retrying", "status", resp.StatusCode)
		return nil, nil
	}

	var history map[string]struct {
		Outputs map[string]struct {
			Images []ArtifactRef `json:"images"`
		} `json:"outputs"`
	}
	if err := json.Unmarshal(body, &history); err != nil {
		c.log.Warn("history response not parseable, retrying", "error", err)
		return nil, nil
	}

	entry, ok := history[promptID]
	if !ok {
		return nil, nil
	}
	node, ok := entry.Outputs[outputNode]
	if !ok || len(node.Images) == 0 {
		return nil, nil
	}
	return &node.Images[0], nil
}
