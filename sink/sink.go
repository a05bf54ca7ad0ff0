// Package sink implements the frame sink boundary: consumers that
// durably store a raw pixel buffer. The FileSink encodes frames to PNG
// or JPEG on disk.
package sink

import (
	"fmt"
	"image"

	"github.com/MacroScale/macroscale-game-capture/provider"
)

// toRGBA converts a raw frame buffer in the given format to image.RGBA.
func toRGBA(format provider.BufferFormat, data []byte, width, height int) (*image.RGBA, error) {
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("sink: unsupported buffer format %d", int(format))
	}
	expected := width * height * bpp
	if len(data) != expected {
		return nil, fmt.Errorf("sink: invalid %s data size: got %d, expected %d",
			format, len(data), expected)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	n := width * height

	switch format {
	case provider.FormatRGB:
		for i := 0; i < n; i++ {
			img.Pix[i*4+0] = data[i*3+0]
			img.Pix[i*4+1] = data[i*3+1]
			img.Pix[i*4+2] = data[i*3+2]
			img.Pix[i*4+3] = 255
		}
	case provider.FormatRGBA:
		copy(img.Pix, data)
	case provider.FormatBGRA:
		for i := 0; i < n; i++ {
			img.Pix[i*4+0] = data[i*4+2]
			img.Pix[i*4+1] = data[i*4+1]
			img.Pix[i*4+2] = data[i*4+0]
			img.Pix[i*4+3] = data[i*4+3]
		}
	}

	return img, nil
}
