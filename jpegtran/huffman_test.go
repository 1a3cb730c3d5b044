package jpegtran

import (
	"testing"
)

// TestBitWriter tests bit packing, 0xFF stuffing and padding
func TestBitWriter(t *testing.T) {
	w := newBitWriter(16)

	w.write(0x1, 4)
	w.write(0x2, 4)
	w.write(0xFF, 8)
	w.write(0x0, 3)
	result := w.bytes()

	// 0x12, 0xFF escaped, then 000 padded with ones
	expected := []byte{0x12, 0xFF, 0x00, 0x1F}
	if len(result) != len(expected) {
		t.Fatalf("Expected %d bytes, got %d (% x)", len(expected), len(result), result)
	}
	for i := range expected {
		if result[i] != expected[i] {
			t.Errorf("Byte %d: expected 0x%02x, got 0x%02x", i, expected[i], result[i])
		}
	}
}

// TestBitReaderStopsAtMarker tests that the reader never consumes a marker
func TestBitReaderStopsAtMarker(t *testing.T) {
	data := []byte{0xA5, 0xFF, 0x00, 0xFF, 0xD9}
	r := newBitReader(data, 0)

	if v := r.read(8); v != 0xA5 {
		t.Errorf("Expected 0xa5, got 0x%02x", v)
	}
	if v := r.read(8); v != 0xFF {
		t.Errorf("Expected stuffed 0xff, got 0x%02x", v)
	}
	if r.truncated {
		t.Fatalf("Reader truncated before the marker")
	}
	if v := r.read(4); v != 0 {
		t.Errorf("Expected zero fill past the marker, got 0x%x", v)
	}
	if !r.truncated {
		t.Errorf("Expected reader to report truncation at the marker")
	}
	if r.pos != 3 {
		t.Errorf("Expected reader to stop at offset 3, got %d", r.pos)
	}
}

// TestExtendCategory tests that category and extend are inverse
func TestExtendCategory(t *testing.T) {
	for v := int32(-2047); v <= 2047; v++ {
		cat := category(v)
		raw := uint32(v)
		if v < 0 {
			raw = uint32(v-1) & (1<<cat - 1)
		}
		if got := extend(uint16(raw), cat); got != v {
			t.Fatalf("extend(category(%d)) = %d", v, got)
		}
	}
}

// TestOptimalHuffmanTable tests table construction and a coding round trip
func TestOptimalHuffmanTable(t *testing.T) {
	testCases := []struct {
		name string
		freq func() *[256]int64
	}{
		{"single symbol", func() *[256]int64 {
			var f [256]int64
			f[0] = 10
			return &f
		}},
		{"uniform", func() *[256]int64 {
			var f [256]int64
			for i := range f {
				f[i] = 3
			}
			return &f
		}},
		{"fibonacci", func() *[256]int64 {
			// Skewed enough to need length limiting
			var f [256]int64
			a, b := int64(1), int64(1)
			for i := 0; i < 40; i++ {
				f[i] = a
				a, b = b, a+b
			}
			return &f
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			freq := tc.freq()
			h := optimalHuffmanTable(freq)

			total := 0
			for l := 1; l <= 16; l++ {
				total += int(h.NumCodes[l])
			}
			if total != len(h.Symbols) {
				t.Fatalf("Table lists %d codes for %d symbols", total, len(h.Symbols))
			}

			enc := h.encodeTable()
			if !enc.covers(freq) {
				t.Fatalf("Table does not cover every used symbol")
			}

			// All-ones codes are reserved
			for sym, l := range enc.lengths {
				if l > 0 && enc.codes[sym] == 1<<l-1 {
					t.Errorf("Symbol %d was given the all-ones code of length %d", sym, l)
				}
			}

			w := newBitWriter(64)
			var sequence []uint8
			for sym, f := range freq {
				if f > 0 {
					sequence = append(sequence, uint8(sym))
					w.write(uint32(enc.codes[sym]), uint32(enc.lengths[sym]))
				}
			}
			data := w.bytes()

			r := newBitReader(data, 0)
			for i, want := range sequence {
				got, err := h.decode(r)
				if err != nil {
					t.Fatalf("Failed to decode symbol %d: %v", i, err)
				}
				if got != want {
					t.Fatalf("Symbol %d: expected %d, got %d", i, want, got)
				}
			}
		})
	}
}

// TestHuffmanTableOverflow tests rejection of counts that overflow the code space
func TestHuffmanTableOverflow(t *testing.T) {
	var numCodes [17]uint8
	numCodes[1] = 3
	if _, err := newHuffmanTable(numCodes, []uint8{0, 1, 2}); err == nil {
		t.Fatalf("Expected error for three 1-bit codes")
	} else if KindOf(err) != KindMalformed {
		t.Errorf("Expected kind %s, got %s", KindMalformed, KindOf(err))
	}
}
