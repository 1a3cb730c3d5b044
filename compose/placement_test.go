package compose

import "testing"

// TestPlacementCanvas tests canvas sizes and patch positions per placement
func TestPlacementCanvas(t *testing.T) {
	src := Size{640, 480}
	patch := Size{304, 208}
	testCases := []struct {
		name       string
		placement  Placement
		offset     int
		wantCanvas Size
		wantX      int
		wantY      int
	}{
		{"below", Below(), 0, Size{640, 688}, 0, 480},
		{"below with offset", Below(), 320, Size{640, 688}, 320, 480},
		{"right of", RightOf(), 16, Size{944, 480}, 640, 16},
		{"at inside", At(32, 64), 0, Size{640, 480}, 32, 64},
		{"at past corner", At(480, 400), 0, Size{784, 608}, 480, 400},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			canvas, x, y := tc.placement.canvas(src, patch, tc.offset)
			if canvas != tc.wantCanvas {
				t.Errorf("Expected canvas %s, got %s", tc.wantCanvas, canvas)
			}
			if x != tc.wantX || y != tc.wantY {
				t.Errorf("Expected patch at +%d+%d, got +%d+%d", tc.wantX, tc.wantY, x, y)
			}
		})
	}
}

// TestPatchLargerThanSource tests that the canvas grows to the wider image
func TestPatchLargerThanSource(t *testing.T) {
	canvas, x, y := Below().canvas(Size{64, 32}, Size{128, 16}, 0)
	if canvas != (Size{128, 48}) || x != 0 || y != 32 {
		t.Errorf("Expected 128x48 with patch at +0+32, got %s at +%d+%d", canvas, x, y)
	}
	canvas, x, y = RightOf().canvas(Size{64, 32}, Size{16, 64}, 0)
	if canvas != (Size{80, 64}) || x != 64 || y != 0 {
		t.Errorf("Expected 80x64 with patch at +64+0, got %s at +%d+%d", canvas, x, y)
	}
}

// TestParsePlacement tests placement names
func TestParsePlacement(t *testing.T) {
	testCases := []struct {
		in   string
		want Placement
	}{
		{"", Below()},
		{"below", Below()},
		{"Right", RightOf()},
		{"rightof", RightOf()},
		{"at", At(16, 32)},
	}
	for _, tc := range testCases {
		got, err := ParsePlacement(tc.in, 16, 32)
		if err != nil {
			t.Fatalf("Failed to parse %q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParsePlacement(%q) = %s, expected %s", tc.in, got, tc.want)
		}
	}
	if _, err := ParsePlacement("above", 0, 0); err == nil {
		t.Errorf("Expected error for unknown placement")
	}
}
