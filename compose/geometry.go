// Package compose merges two baseline JPEGs without re-encoding pixels. Both
// inputs are first rounded up to their MCU grid, the source is extended to a
// canvas that fits both, and the patch blocks are dropped into the canvas.
package compose

import "github.com/leijurv/jpeg_drop_go/jpegtran"

// DefaultBlock is the MCU edge of 2x2 chroma subsampled images
const DefaultBlock = 16

// RoundUpToBlock returns the smallest multiple of block that is >= x. A
// non-positive block is treated as 1.
func RoundUpToBlock(x, block int) int {
	if block <= 0 {
		block = 1
	}
	if x <= 0 {
		return 0
	}
	return (x + block - 1) / block * block
}

// MCUSize returns the MCU dimensions in pixels derived from the header's
// sampling factors
func MCUSize(h *jpegtran.Header) (int, int) {
	if h.MCUWidth > 0 && h.MCUHeight > 0 {
		return h.MCUWidth, h.MCUHeight
	}
	maxH, maxV := 1, 1
	for _, c := range h.Components {
		maxH = max(maxH, c.HSampFactor)
		maxV = max(maxV, c.VSampFactor)
	}
	if len(h.Components) == 1 {
		maxH, maxV = 1, 1
	}
	return jpegtran.DCTSize * maxH, jpegtran.DCTSize * maxV
}

// AlignedSize returns the header's dimensions rounded up to its MCU grid
func AlignedSize(h *jpegtran.Header) (int, int) {
	mcuW, mcuH := MCUSize(h)
	return RoundUpToBlock(h.Width, mcuW), RoundUpToBlock(h.Height, mcuH)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return a / gcd(a, b) * b
}
