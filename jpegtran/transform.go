package jpegtran

import (
	"fmt"
	"io"
	"log"
)

// CopyMode selects which metadata segments survive a transform
type CopyMode int

const (
	// CopyAll keeps every APPn and COM segment
	CopyAll CopyMode = iota
	// CopyComments keeps only COM segments
	CopyComments
	// CopyNone drops all metadata
	CopyNone
)

func (m CopyMode) String() string {
	switch m {
	case CopyAll:
		return "all"
	case CopyComments:
		return "comments"
	case CopyNone:
		return "none"
	}
	return fmt.Sprintf("CopyMode(%d)", int(m))
}

// ParseCopyMode parses the names accepted by jpegtran's -copy switch
func ParseCopyMode(s string) (CopyMode, error) {
	switch s {
	case "all":
		return CopyAll, nil
	case "comments":
		return CopyComments, nil
	case "none":
		return CopyNone, nil
	}
	return 0, fmt.Errorf("unknown copy mode %q", s)
}

func (m CopyMode) keeps(marker byte) bool {
	switch m {
	case CopyAll:
		return true
	case CopyComments:
		return marker == MarkerCOM
	}
	return false
}

// Option configures an Engine
type Option func(e *Engine)

// WithCopyMode sets which metadata segments are copied to the output
func WithCopyMode(mode CopyMode) Option {
	return func(e *Engine) {
		e.opts.copyMode = mode
	}
}

// WithOptimize forces optimal Huffman tables on every output
func WithOptimize(optimize bool) Option {
	return func(e *Engine) {
		e.opts.optimize = optimize
	}
}

// WithRestartInterval emits a restart marker every n MCUs; 0 disables them
func WithRestartInterval(n int) Option {
	return func(e *Engine) {
		e.opts.restartInterval = n
	}
}

// WithLogger sets the logger for transform tracing
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// Engine performs lossless crop and drop-in transforms. It keeps no state
// between calls and is safe for concurrent use.
type Engine struct {
	opts   writerOptions
	logger *log.Logger
}

// NewEngine creates an Engine with the given options
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ReadHeader parses the frame header of data
func (e *Engine) ReadHeader(data []byte) (*Header, error) {
	return ReadHeader(data)
}

// CropRequest describes a crop region in pixels
type CropRequest struct {
	Width   int
	Height  int
	XOffset int
	YOffset int

	// RoundUp extends Width and Height to the next MCU boundary
	RoundUp bool
}

func (r CropRequest) String() string {
	s := fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.XOffset, r.YOffset)
	if r.RoundUp {
		s += " (round up)"
	}
	return s
}

// Crop extracts the region r from data. Offsets must fall on the MCU grid.
// The region may extend past the source; blocks outside the source's coded
// grid are filled with neutral grey.
func (e *Engine) Crop(data []byte, r CropRequest) ([]byte, error) {
	src, err := readCoefficients(data)
	if err != nil {
		return nil, err
	}
	f := src.frame
	mcuW, mcuH := f.mcuSize()

	if r.Width <= 0 || r.Height <= 0 {
		return nil, errorf(KindTransform, "crop %s: empty region", r)
	}
	if r.XOffset < 0 || r.YOffset < 0 || r.XOffset >= f.width || r.YOffset >= f.height {
		return nil, errorf(KindTransform, "crop %s: offset outside %dx%d source", r, f.width, f.height)
	}
	if r.XOffset%mcuW != 0 || r.YOffset%mcuH != 0 {
		return nil, errorf(KindTransform, "crop %s: offset not a multiple of the %dx%d MCU", r, mcuW, mcuH)
	}

	width, height := r.Width, r.Height
	if r.RoundUp {
		width = ceilDiv(width, mcuW) * mcuW
		height = ceilDiv(height, mcuH) * mcuH
	}
	if width > maxDimension || height > maxDimension || width*height > maxPixels {
		return nil, errorf(KindTransform, "crop %s: output %dx%d too large", r, width, height)
	}

	nf := f.clone()
	nf.resize(width, height)
	out := newCoefImage(nf)
	for ci, c := range out.frame.components {
		dst := out.planes[ci]
		from := src.planes[ci]
		xb := r.XOffset / mcuW * c.h
		yb := r.YOffset / mcuH * c.v
		for by := 0; by < dst.blocksH; by++ {
			for bx := 0; bx < dst.blocksW; bx++ {
				if b := from.at(bx+xb, by+yb); b != nil {
					*dst.at(bx, by) = *b
				}
			}
		}
	}

	e.logger.Printf("crop %dx%d %s -> %dx%d", f.width, f.height, r, width, height)
	return writeCoefficients(out, e.opts)
}

// DropIn replaces the blocks of source at (xOffset, yOffset) with the blocks
// of patch. Both offsets must be multiples of the source MCU size and the
// patch must fit inside the source.
func (e *Engine) DropIn(source, patch []byte, xOffset, yOffset int) ([]byte, error) {
	dst, err := readCoefficients(source)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}
	drop, err := readCoefficients(patch)
	if err != nil {
		return nil, fmt.Errorf("reading patch: %w", err)
	}
	sf, pf := dst.frame, drop.frame
	mcuW, mcuH := sf.mcuSize()

	if xOffset%mcuW != 0 || yOffset%mcuH != 0 {
		return nil, errorf(KindAlignment, "drop +%d+%d: offset not a multiple of the %dx%d MCU", xOffset, yOffset, mcuW, mcuH)
	}
	if xOffset < 0 || yOffset < 0 || xOffset+pf.width > sf.width || yOffset+pf.height > sf.height {
		return nil, errorf(KindBounds, "drop %dx%d at +%d+%d does not fit in %dx%d",
			pf.width, pf.height, xOffset, yOffset, sf.width, sf.height)
	}
	if len(pf.components) > len(sf.components) {
		return nil, errorf(KindTransform, "patch has %d components, source only %d",
			len(pf.components), len(sf.components))
	}
	for ci := range pf.components {
		sc, pc := sf.components[ci], pf.components[ci]
		if sc.h*pf.maxH != pc.h*sf.maxH || sc.v*pf.maxV != pc.v*sf.maxV {
			return nil, errorf(KindTransform, "%s of patch does not match %s of source", pc, sc)
		}
	}

	for ci, sc := range sf.components {
		dstPlane := dst.planes[ci]
		xb := xOffset / mcuW * sc.h
		yb := yOffset / mcuH * sc.v

		if ci >= len(pf.components) {
			// Neutral blocks over the patch area
			w := ceilDiv(pf.width*sc.h, mcuW)
			h := ceilDiv(pf.height*sc.v, mcuH)
			for by := 0; by < h; by++ {
				for bx := 0; bx < w; bx++ {
					if b := dstPlane.at(bx+xb, by+yb); b != nil {
						*b = block{}
					}
				}
			}
			continue
		}

		pc := pf.components[ci]
		from := drop.planes[ci]
		srcQ, dstQ := pf.qtables[pc.tq], sf.qtables[sc.tq]
		requant := *srcQ != *dstQ
		if requant {
			e.logger.Printf("requantizing %s of patch", pc)
		}
		for by := 0; by < pc.heightInBlocks; by++ {
			for bx := 0; bx < pc.widthInBlocks; bx++ {
				b := dstPlane.at(bx+xb, by+yb)
				if b == nil {
					continue
				}
				*b = *from.at(bx, by)
				if requant {
					requantize(b, srcQ, dstQ)
				}
			}
		}
	}

	e.logger.Printf("drop %dx%d at +%d+%d into %dx%d", pf.width, pf.height, xOffset, yOffset, sf.width, sf.height)
	return writeCoefficients(dst, e.opts)
}

// requantize rescales b from quantization table from to table to, rounding
// to nearest and clamping to the baseline coefficient range
func requantize(b *block, from, to *[64]uint16) {
	for k := range b {
		if b[k] == 0 {
			continue
		}
		num := int32(b[k]) * int32(from[k])
		q := int32(to[k])
		var v int32
		if num >= 0 {
			v = (num + q/2) / q
		} else {
			v = -((-num + q/2) / q)
		}
		if k == 0 {
			v = min(max(v, -1024), 1023)
		} else {
			v = min(max(v, -1023), 1023)
		}
		b[k] = int16(v)
	}
}
