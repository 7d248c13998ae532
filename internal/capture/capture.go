// Package capture provides frame sources for comfycam. Real camera hardware
// sits behind the Source interface as an external collaborator; the package
// ships a directory-backed source for headless operation and a synthetic
// pattern source as the always-available fallback.
package capture

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

// ErrFrameUnavailable is returned when a device cannot produce a frame right
// now (empty directory, closed device).
var ErrFrameUnavailable = errors.New("no frame available")

// Device produces frames once opened.
type Device interface {
	// Name identifies the device.
	Name() string
	// Frame returns the current frame, or ErrFrameUnavailable.
	Frame() (image.Image, error)
	// Close releases the device.
	Close() error
}

// Source enumerates and opens capture devices.
type Source interface {
	// ListDevices returns the names of available devices.
	ListDevices() ([]string, error)
	// Open opens the named device.
	Open(name string) (Device, error)
}

// SaveFrame persists a frame as a PNG local artifact with a
// timestamp-derived unique name and returns the file path. Artifacts are
// retained; nothing cleans them up.
func SaveFrame(img image.Image, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create capture dir: %w", err)
	}

	name := fmt.Sprintf("frame_%s.png", time.Now().Format("20060102_150405.000000000"))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create frame file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("failed to encode frame: %w", err)
	}
	return path, nil
}
