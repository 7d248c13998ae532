package comfy

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	// Registered for image.Decode of downloaded results.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// FetchView downloads a produced artifact via /view and decodes it. A
// non-200 response or undecodable body yields (nil, nil) with a log line —
// the cycle surfaces a failure status but nothing hard-fails. The body is
// persisted to a fixed temp path whose extension follows the artifact's
// filename, then decoded from there.
func (c *Client) FetchView(ctx context.Context, ref ArtifactRef) (image.Image, error) {
	kind := ref.Type
	if kind == "" {
		kind = "output"
	}
	query := url.Values{
		"filename":  {ref.Filename},
		"subfolder": {ref.Subfolder},
		"type":      {kind},
	}
	header := http.Header{
		"Accept":        {"image/*"},
		"Cache-Control": {"no-cache"},
	}

	resp, err := c.request(ctx, "download", http.MethodGet, "/view", query, header, nil, DownloadConnectTimeout, DownloadReadTimeout)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.log.Warn("view download failed",
			"filename", ref.Filename,
			"status", resp.StatusCode,
			"body", strings.TrimSpace(string(body)),
		)
		return nil, nil
	}

	path := resultTempPath(ref.Filename)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create result file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return nil, c.classify("download", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to write result file: %w", err)
	}

	rf, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen result file: %w", err)
	}
	defer rf.Close()

	img, _, err := image.Decode(rf)
	if err != nil {
		c.log.Warn("result image not decodable", "filename", ref.Filename, "error", err)
		return nil, nil
	}
	return img, nil
}

// resultTempPath returns the fixed download target, with the extension
// derived case-insensitively from the artifact filename.
func resultTempPath(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff":
	default:
		ext = ".png"
	}
	return filepath.Join(os.TempDir(), "comfycam_result"+ext)
}
