package jpegtran

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

// makeColorJPEG encodes a deterministic pattern as a 4:2:0 baseline JPEG
func makeColorJPEG(t *testing.T, width, height, quality int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x*7 + y*3),
				G: uint8(x*x + y),
				B: uint8((x ^ y) * 5),
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("Failed to encode color JPEG: %v", err)
	}
	return buf.Bytes()
}

// makeGrayJPEG encodes a deterministic pattern as a single-component JPEG
func makeGrayJPEG(t *testing.T, width, height, quality int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x*11 + y*5)})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("Failed to encode gray JPEG: %v", err)
	}
	return buf.Bytes()
}

// decodeJPEG decodes data with the standard library decoder
func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to decode JPEG: %v", err)
	}
	return img
}

// lumaAt returns the decoded luma sample at (x, y)
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
// want at (wx, wy)
func compareLuma(t *testing.T, got image.Image, gx, gy int, want image.Image, wx, wy, w, h int) {
	t.Helper()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := lumaAt(t, got, gx+x, gy+y)
			e := lumaAt(t, want, wx+x, wy+y)
			if g != e {
				t.Fatalf("Luma mismatch at (%d,%d): got %d, want %d", gx+x, gy+y, g, e)
			}
		}
	}
}

// makeSyntheticJPEG writes a 3-component image with the given sampling
// factors through the engine's own writer
func makeSyntheticJPEG(t *testing.T, width, height int, sampling [3][2]int, restartInterval int) []byte {
	t.Helper()
	f := &frame{width: width, height: height, precision: 8}
	for i := 0; i < 3; i++ {
		tq := 0
		if i > 0 {
			tq = 1
		}
		f.components = append(f.components, frameComponent{
			id: byte(i + 1),
			h:  sampling[i][0],
			v:  sampling[i][1],
			tq: tq,
		})
		f.rawSampling = append(f.rawSampling, sampling[i])
	}
	f.scanComponents = []int{0, 1, 2}
	for i := 0; i < 2; i++ {
		var q [64]uint16
		for k := range q {
			q[k] = uint16(2 + k/4 + i)
		}
		f.qtables[i] = &q
	}
	f.layout()

	img := newCoefImage(f)
	for ci, p := range img.planes {
		for i := range p.blocks {
			b := &p.blocks[i]
			b[0] = int16((i*13+ci*40)%400 - 200)
			b[1] = int16(i%7 - 3)
			b[2] = int16((i + ci) % 5)
			b[9] = int16(-(i % 3))
			b[63] = int16(i % 2)
		}
	}

	data, err := writeCoefficients(img, writerOptions{restartInterval: restartInterval})
	if err != nil {
		t.Fatalf("Failed to write synthetic JPEG: %v", err)
	}
	return data
}

// insertSegment adds a marker segment right after SOI
func insertSegment(data []byte, marker byte, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Write(data[:2])
	n := len(payload) + 2
	buf.Write([]byte{0xFF, marker, byte(n >> 8), byte(n)})
	buf.Write(payload)
	buf.Write(data[2:])
	return buf.Bytes()
}
