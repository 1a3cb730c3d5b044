package jpegtran

import (
	"fmt"
	"strings"
)

// ColorSpace is the color space a JPEG declares for its components
type ColorSpace int

const (
	ColorSpaceUnknown ColorSpace = iota
	ColorSpaceGrayscale
	ColorSpaceRGB
	ColorSpaceYCbCr
)

func (cs ColorSpace) String() string {
	switch cs {
	case ColorSpaceGrayscale:
		return "greyscale"
	case ColorSpaceRGB:
		return "RGB"
	case ColorSpaceYCbCr:
		return "YCbCr"
	default:
		return "unknown colorspace"
	}
}

// ComponentID names a color component by its JPEG identifier
type ComponentID int

const (
	ComponentUnknown ComponentID = iota
	ComponentY
	ComponentCb
	ComponentCr
)

func componentIDFromRaw(raw byte) ComponentID {
	switch raw {
	case 1:
		return ComponentY
	case 2:
		return ComponentCb
	case 3:
		return ComponentCr
	}
	return ComponentUnknown
}

// Component describes the sampling geometry of one color channel
type Component struct {
	ID ComponentID

	// RawID is the identifier byte stored in the frame header
	RawID int

	HSampFactor int
	VSampFactor int

	// BlockWidth and BlockHeight count the DCT blocks covering the image
	// area of this component
	BlockWidth  int
	BlockHeight int

	DCTScaledSize int
}

func (c Component) idString() string {
	switch c.ID {
	case ComponentY:
		return "Y"
	case ComponentCb:
		return "Cb"
	case ComponentCr:
		return "Cr"
	}
	return fmt.Sprintf("UNK(%d)", c.RawID)
}

func (c Component) String() string {
	return fmt.Sprintf("id:%s hsampfac:%d vsampfac:%d blockw:%d blockh:%d dctscaledsize:%d",
		c.idString(), c.HSampFactor, c.VSampFactor, c.BlockWidth, c.BlockHeight, c.DCTScaledSize)
}

// Header is a snapshot of the structural metadata of a baseline JPEG
type Header struct {
	Width  int
	Height int

	NumComponents   int
	ColorSpace      ColorSpace
	BitsOfPrecision int
	Components      []Component

	// MCUWidth and MCUHeight are the pixel dimensions of one MCU
	MCUWidth  int
	MCUHeight int

	RestartInterval int

	// Orientation is the EXIF orientation tag, 1 when absent
	Orientation  int
	HasThumbnail bool
}

func (h *Header) String() string {
	lines := []string{
		fmt.Sprintf("height: %d", h.Height),
		fmt.Sprintf("width: %d", h.Width),
		fmt.Sprintf("num_components: %d", h.NumComponents),
		fmt.Sprintf("colorspace: %s", h.ColorSpace),
		fmt.Sprintf("bitsofprecision: %d", h.BitsOfPrecision),
		fmt.Sprintf("mcu: %dx%d", h.MCUWidth, h.MCUHeight),
		"components:",
	}
	for _, c := range h.Components {
		lines = append(lines, "\t"+c.String())
	}
	return strings.Join(lines, "\n")
}

// ReadHeader parses the frame header of a baseline JPEG. The input is not
// modified.
func ReadHeader(data []byte) (*Header, error) {
	f, _, err := parseFrame(data)
	if err != nil {
		return nil, err
	}
	h := newHeader(f)
	h.Orientation, h.HasThumbnail = readExif(f.findMetadata(MarkerAPP1, exifIdentifier))
	return h, nil
}

func newHeader(f *frame) *Header {
	mcuW, mcuH := f.mcuSize()
	h := &Header{
		Width:           f.width,
		Height:          f.height,
		NumComponents:   len(f.components),
		ColorSpace:      detectColorSpace(f),
		BitsOfPrecision: f.precision,
		MCUWidth:        mcuW,
		MCUHeight:       mcuH,
		RestartInterval: f.restart,
		Orientation:     1,
	}
	for i, c := range f.components {
		h.Components = append(h.Components, Component{
			ID:            componentIDFromRaw(c.id),
			RawID:         int(c.id),
			HSampFactor:   f.rawSampling[i][0],
			VSampFactor:   f.rawSampling[i][1],
			BlockWidth:    c.widthInBlocks,
			BlockHeight:   c.heightInBlocks,
			DCTScaledSize: DCTSize,
		})
	}
	return h
}

// detectColorSpace guesses the color space the way libjpeg does
func detectColorSpace(f *frame) ColorSpace {
	switch len(f.components) {
	case 1:
		return ColorSpaceGrayscale
	case 3:
		if f.findMetadata(MarkerAPP0, jfifIdentifier) != nil {
			return ColorSpaceYCbCr
		}
		if adobe := f.findMetadata(MarkerAPP14, adobeIdentifier); len(adobe) >= 12 {
			if adobe[11] == 0 {
				return ColorSpaceRGB
			}
			return ColorSpaceYCbCr
		}
		c := f.components
		if c[0].id == 'R' && c[1].id == 'G' && c[2].id == 'B' {
			return ColorSpaceRGB
		}
		return ColorSpaceYCbCr
	}
	return ColorSpaceUnknown
}
