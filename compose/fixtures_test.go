package compose

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

// makeColorJPEG encodes a deterministic pattern as a 4:2:0 baseline JPEG
func makeColorJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x + y), G: uint8(x * 3), B: uint8(y * 7), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("Failed to encode color JPEG: %v", err)
	}
	return buf.Bytes()
}

// makeGrayJPEG encodes a deterministic pattern as a single-component JPEG
func makeGrayJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x*9 + y*4)})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("Failed to encode gray JPEG: %v", err)
	}
	return buf.Bytes()
}

func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to decode JPEG: %v", err)
	}
	return img
}

func lumaAt(t *testing.T, img image.Image, x, y int) uint8 {
	t.Helper()
	switch m := img.(type) {
	case *image.YCbCr:
		return m.Y[m.YOffset(x, y)]
	case *image.Gray:
		return m.GrayAt(x, y).Y
	}
	t.Fatalf("Unexpected image type %T", img)
	return 0
}

// compareLuma checks that the w x h luma area of got at (gx, gy) matches
// want at the origin
func compareLuma(t *testing.T, got image.Image, gx, gy int, want image.Image, w, h int) {
	t.Helper()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if g, e := lumaAt(t, got, gx+x, gy+y), lumaAt(t, want, x, y); g != e {
				t.Fatalf("Luma mismatch at (%d,%d): got %d, want %d", gx+x, gy+y, g, e)
			}
		}
	}
}
