package capture

import (
	"image"
	"image/color"
	"sync"
)

// PatternDeviceName is the single device exposed by the pattern source.
const PatternDeviceName = "pattern"

// PatternSource is the fallback frame source. It always has exactly one
// device that renders a synthetic test pattern, so a cycle can run without
// any camera or image directory present.
type PatternSource struct {
	// Width and Height of generated frames. Zero values mean 640x480.
	Width  int
	Height int
}

// ListDevices returns the single pattern device.
func (s *PatternSource) ListDevices() ([]string, error) {
	return []string{PatternDeviceName}, nil
}

// Open opens the pattern device. Any name is accepted; there is only one.
func (s *PatternSource) Open(name string) (Device, error) {
	w, h := s.Width, s.Height
	if w <= 0 {
		w = 640
	}
	if h <= 0 {
		h = 480
	}
	return &patternDevice{width: w, height: h}, nil
}

type patternDevice struct {
	mu     sync.Mutex
	width  int
	height int
	seq    int
	closed bool
}

func (d *patternDevice) Name() string { return PatternDeviceName }

// Frame renders a color gradient with a sweeping bar so consecutive frames
// differ and generated results are distinguishable.
func (d *patternDevice) Frame() (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrFrameUnavailable
	}
	d.seq++

	img := image.NewRGBA(image.Rect(0, 0, d.width, d.height))
	barX := (d.seq * 8) % d.width
	for y := 0; y < d.height; y++ {
		for x := 0; x < d.width; x++ {
			c := color.RGBA{
				R: uint8(255 * x / d.width),
				G: uint8(255 * y / d.height),
				B: uint8((x + y + d.seq) % 256),
				A: 255,
			}
			if x >= barX && x < barX+8 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img, nil
}

func (d *patternDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
