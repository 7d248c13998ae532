package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

// UploadImage uploads a local image file to the server and returns the name
// the server assigned to it. The response is parsed permissively: a `name`
// field, the first entry of a `files` list, or — when neither is present —
// the local file's base name. The upload itself succeeded at that point, so
// unparseable metadata alone never fails the call.
func (c *Client) UploadImage(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	base := filepath.Base(path)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, base))
	header.Set("Content-Type", imageContentType(base))
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finish upload form: %w", err)
	}

	reqHeader := http.Header{"Content-Type": {mw.FormDataContentType()}}
	resp, err := c.request(ctx, "upload", http.MethodPost, "/upload/image", nil, reqHeader, &buf, UploadConnectTimeout, UploadReadTimeout)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.classify("upload", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("upload failed: server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Name  string   `json:"name"`
		Files []string `json:"files"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Name != "" {
			return parsed.Name, nil
		}
		if len(parsed.Files) > 0 && parsed.Files[0] != "" {
			return parsed.Files[0], nil
		}
	}

	c.log.Warn("upload response had no usable name, falling back to local name", "body", string(body))
	return base, nil
}

func imageContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	default:
		return "image/png"
	}
}
