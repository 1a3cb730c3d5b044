package compose

import (
	"fmt"
	"strings"
)

// PlacementKind selects how the canvas is grown to fit the patch
type PlacementKind int

const (
	// PlaceBelow stacks the patch under the source
	PlaceBelow PlacementKind = iota
	// PlaceRightOf puts the patch to the right of the source
	PlaceRightOf
	// PlaceAt puts the patch at an explicit point
	PlaceAt
)

// Placement positions the patch relative to the source
type Placement struct {
	Kind PlacementKind

	// X and Y are only used by PlaceAt
	X, Y int
}

// Below stacks the patch under the source. The caller's offset is horizontal.
func Below() Placement { return Placement{Kind: PlaceBelow} }

// RightOf places the patch beside the source. The caller's offset is vertical.
func RightOf() Placement { return Placement{Kind: PlaceRightOf} }

// At places the patch at (x, y) on the canvas
func At(x, y int) Placement { return Placement{Kind: PlaceAt, X: x, Y: y} }

func (p Placement) String() string {
	switch p.Kind {
	case PlaceBelow:
		return "below"
	case PlaceRightOf:
		return "right"
	case PlaceAt:
		return fmt.Sprintf("at(%d,%d)", p.X, p.Y)
	}
	return fmt.Sprintf("Placement(%d)", int(p.Kind))
}

// ParsePlacement parses "below", "right" or "at". For "at" the point is
// taken from x and y.
func ParsePlacement(s string, x, y int) (Placement, error) {
	switch strings.ToLower(s) {
	case "below", "":
		return Below(), nil
	case "right", "rightof":
		return RightOf(), nil
	case "at":
		return At(x, y), nil
	}
	return Placement{}, fmt.Errorf("unknown placement %q", s)
}

// Size is a width and height in pixels
type Size struct {
	Width, Height int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// canvas returns the canvas size and patch offset for aligned source and
// patch sizes. offset is the caller's free coordinate for Below and RightOf.
func (p Placement) canvas(src, patch Size, offset int) (Size, int, int) {
	switch p.Kind {
	case PlaceRightOf:
		return Size{src.Width + patch.Width, max(src.Height, patch.Height)}, src.Width, offset
	case PlaceAt:
		return Size{max(src.Width, p.X+patch.Width), max(src.Height, p.Y+patch.Height)}, p.X, p.Y
	default:
		return Size{max(src.Width, patch.Width), src.Height + patch.Height}, offset, src.Height
	}
}
