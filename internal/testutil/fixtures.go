package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

// SampleGraphJSON is a two-node prompt graph: LoadImage feeding SaveImage.
// Node ids match the production defaults (input "10", output "9").
const SampleGraphJSON = `{
  "10": {
    "class_type": "LoadImage",
    "inputs": {
      "image": "example.png"
    }
  },
  "9": {
    "class_type": "SaveImage",
    "inputs": {
      "filename_prefix": "test",
      "images": ["10", 0]
    }
  }
}`

// TinyPNG returns an encoded 4x4 PNG.
func TinyPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(60 * x), G: uint8(60 * y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
