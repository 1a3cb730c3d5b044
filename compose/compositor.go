package compose

import (
	"fmt"
	"io"
	"log"

	"github.com/leijurv/jpeg_drop_go/jpegtran"
)

// Transformer is the lossless transform engine the compositor drives.
// *jpegtran.Engine implements it.
type Transformer interface {
	ReadHeader(data []byte) (*jpegtran.Header, error)
	Crop(data []byte, r jpegtran.CropRequest) ([]byte, error)
	DropIn(source, patch []byte, xOffset, yOffset int) ([]byte, error)
}

// MCUPolicy decides what happens when source and patch MCU sizes differ
type MCUPolicy int

const (
	// MCURequireMatch fails with ErrMCUMismatch
	MCURequireMatch MCUPolicy = iota
	// MCULeastCommonMultiple extends both images to the LCM of the two grids
	MCULeastCommonMultiple
)

func (p MCUPolicy) String() string {
	switch p {
	case MCURequireMatch:
		return "match"
	case MCULeastCommonMultiple:
		return "lcm"
	}
	return fmt.Sprintf("MCUPolicy(%d)", int(p))
}

// ParseMCUPolicy parses "match" or "lcm"
func ParseMCUPolicy(s string) (MCUPolicy, error) {
	switch s {
	case "match", "":
		return MCURequireMatch, nil
	case "lcm":
		return MCULeastCommonMultiple, nil
	}
	return 0, fmt.Errorf("unknown MCU policy %q", s)
}

// Option configures a Compositor
type Option func(c *Compositor)

// WithMCUPolicy sets the MCU mismatch policy
func WithMCUPolicy(p MCUPolicy) Option {
	return func(c *Compositor) {
		c.policy = p
	}
}

// WithLogger sets the logger for step tracing
func WithLogger(logger *log.Logger) Option {
	return func(c *Compositor) {
		c.logger = logger
	}
}

// Compositor merges two JPEGs through a Transformer. It holds no state
// between calls.
type Compositor struct {
	engine Transformer
	policy MCUPolicy
	logger *log.Logger
}

// New creates a Compositor that drives engine
func New(engine Transformer, opts ...Option) *Compositor {
	c := &Compositor{
		engine: engine,
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Layout is the geometry of a composition
type Layout struct {
	// Source and Patch are the sizes after alignment
	Source Size
	Patch  Size

	SourceMCU Size
	PatchMCU  Size

	// Grid is the MCU size both images are aligned to
	Grid Size

	Canvas Size

	// X and Y are the patch position on the canvas
	X, Y int
}

func (l *Layout) String() string {
	return fmt.Sprintf("source %s (mcu %s), patch %s (mcu %s), canvas %s, patch at +%d+%d",
		l.Source, l.SourceMCU, l.Patch, l.PatchMCU, l.Canvas, l.X, l.Y)
}

// Align rounds the image up to its own MCU grid. Aligning an aligned image
// returns the same bytes.
func (c *Compositor) Align(image []byte) ([]byte, error) {
	out, _, err := c.align(image)
	return out, err
}

func (c *Compositor) align(image []byte) ([]byte, *jpegtran.Header, error) {
	h, err := c.engine.ReadHeader(image)
	if err != nil {
		return nil, nil, err
	}
	out, err := c.engine.Crop(image, jpegtran.CropRequest{Width: h.Width, Height: h.Height, RoundUp: true})
	if err != nil {
		return nil, nil, err
	}
	aligned, err := c.engine.ReadHeader(out)
	if err != nil {
		return nil, nil, err
	}
	c.logger.Printf("aligned %dx%d to %dx%d", h.Width, h.Height, aligned.Width, aligned.Height)
	return out, aligned, nil
}

// extend crops an aligned image to a larger size on the shared grid
func (c *Compositor) extend(image []byte, h *jpegtran.Header, size Size) ([]byte, error) {
	if h.Width == size.Width && h.Height == size.Height {
		return image, nil
	}
	c.logger.Printf("extending %dx%d to %s", h.Width, h.Height, size)
	return c.engine.Crop(image, jpegtran.CropRequest{Width: size.Width, Height: size.Height})
}

// layout computes the canvas for two headers. offset is the caller's free
// coordinate; it is neither validated nor rounded.
func (c *Compositor) layout(src, patch *jpegtran.Header, offset int, p Placement) (*Layout, error) {
	l := &Layout{}
	l.SourceMCU.Width, l.SourceMCU.Height = MCUSize(src)
	l.PatchMCU.Width, l.PatchMCU.Height = MCUSize(patch)

	if l.SourceMCU != l.PatchMCU {
		if c.policy != MCULeastCommonMultiple {
			return nil, fmt.Errorf("%w: source %s, patch %s", ErrMCUMismatch, l.SourceMCU, l.PatchMCU)
		}
		l.Grid = Size{lcm(l.SourceMCU.Width, l.PatchMCU.Width), lcm(l.SourceMCU.Height, l.PatchMCU.Height)}
	} else {
		l.Grid = l.SourceMCU
	}

	l.Source = Size{RoundUpToBlock(src.Width, l.Grid.Width), RoundUpToBlock(src.Height, l.Grid.Height)}
	l.Patch = Size{RoundUpToBlock(patch.Width, l.Grid.Width), RoundUpToBlock(patch.Height, l.Grid.Height)}

	l.Canvas, l.X, l.Y = p.canvas(l.Source, l.Patch, offset)
	if p.Kind == PlaceAt {
		l.Canvas.Width = RoundUpToBlock(l.Canvas.Width, l.Grid.Width)
		l.Canvas.Height = RoundUpToBlock(l.Canvas.Height, l.Grid.Height)
	}
	return l, nil
}

// Plan reports the geometry Compose would use without transforming anything
func (c *Compositor) Plan(source, patch []byte, offset int, p Placement) (*Layout, error) {
	sh, err := c.engine.ReadHeader(source)
	if err != nil {
		return nil, &StepError{Step: StepAlignSource, Err: err}
	}
	ph, err := c.engine.ReadHeader(patch)
	if err != nil {
		return nil, &StepError{Step: StepAlignPatch, Err: err}
	}
	l, err := c.layout(sh, ph, offset, p)
	if err != nil {
		return nil, &StepError{Step: StepLayout, Err: err}
	}
	return l, nil
}

// Compose aligns source and patch, grows the source into a canvas that fits
// both according to p and drops the patch blocks into it. offset is the
// horizontal patch position for Below and the vertical one for RightOf; it
// must already be a multiple of the MCU size.
func (c *Compositor) Compose(source, patch []byte, offset int, p Placement) ([]byte, error) {
	src, sh, err := c.align(source)
	if err != nil {
		return nil, &StepError{Step: StepAlignSource, Err: err}
	}
	c.warn("source", sh)

	pat, ph, err := c.align(patch)
	if err != nil {
		return nil, &StepError{Step: StepAlignPatch, Err: err}
	}
	c.warn("patch", ph)

	l, err := c.layout(sh, ph, offset, p)
	if err != nil {
		return nil, &StepError{Step: StepLayout, Err: err}
	}
	c.logger.Printf("layout: %s", l)

	if src, err = c.extend(src, sh, l.Source); err != nil {
		return nil, &StepError{Step: StepAlignSource, Err: err}
	}
	if pat, err = c.extend(pat, ph, l.Patch); err != nil {
		return nil, &StepError{Step: StepAlignPatch, Err: err}
	}

	canvas, err := c.engine.Crop(src, jpegtran.CropRequest{Width: l.Canvas.Width, Height: l.Canvas.Height})
	if err != nil {
		return nil, &StepError{Step: StepExpand, Err: err}
	}

	out, err := c.engine.DropIn(canvas, pat, l.X, l.Y)
	if err != nil {
		return nil, &StepError{Step: StepPlace, Err: err}
	}
	return out, nil
}

func (c *Compositor) warn(name string, h *jpegtran.Header) {
	if h.Orientation != 1 {
		c.logger.Printf("warning: %s has EXIF orientation %d, composing in stored orientation", name, h.Orientation)
	}
	if h.HasThumbnail {
		c.logger.Printf("warning: %s carries an EXIF thumbnail that will no longer match", name)
	}
}
