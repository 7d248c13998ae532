package capture

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	// Registered for image.Decode of directory frames.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// DirectorySource treats a directory of image files as a capture device.
// Each Frame call returns the next file in sorted order, wrapping around.
type DirectorySource struct {
	// Dir is the image directory.
	Dir string
}

// ListDevices returns the directory as the single device.
func (s *DirectorySource) ListDevices() ([]string, error) {
	if _, err := os.Stat(s.Dir); err != nil {
		return nil, fmt.Errorf("capture directory: %w", err)
	}
	return []string{s.Dir}, nil
}

// Open opens the directory device. The name is ignored; the source has one
// device.
func (s *DirectorySource) Open(name string) (Device, error) {
	files, err := listImageFiles(s.Dir)
	if err != nil {
		return nil, err
	}
	return &directoryDevice{dir: s.Dir, files: files}, nil
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

func listImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

type directoryDevice struct {
	mu     sync.Mutex
	dir    string
	files  []string
	next   int
	closed bool
}

func (d *directoryDevice) Name() string { return d.dir }

func (d *directoryDevice) Frame() (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || len(d.files) == 0 {
		return nil, ErrFrameUnavailable
	}

	path := d.files[d.next%len(d.files)]
	d.next++

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame %s: %w", path, err)
	}
	return img, nil
}

func (d *directoryDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
