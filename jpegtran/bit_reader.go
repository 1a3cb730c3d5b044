package jpegtran

// bitReader reads a JPEG entropy-coded segment from memory, removing 0xFF00
// stuffing. It never consumes a marker: reaching one (or the end of the
// buffer) before the scan is complete feeds zero bits and sets truncated,
// which is how libjpeg treats a premature end of data.
type bitReader struct {
	data      []byte
	pos       int
	bits      uint64
	bitsLeft  uint32
	truncated bool
	// rst is the index of the next expected restart marker
	rst int
}

func newBitReader(data []byte, pos int) *bitReader {
	return &bitReader{data: data, pos: pos}
}

// fill loads whole bytes until at least n bits are buffered
func (r *bitReader) fill(n uint32) {
	for r.bitsLeft < n {
		b, ok := r.nextByte()
		if !ok {
			r.truncated = true
		}
		r.bits = r.bits<<8 | uint64(b)
		r.bitsLeft += 8
	}
}

func (r *bitReader) nextByte() (byte, bool) {
	if r.pos >= len(r.data) {
		return 0, false
	}
	b := r.data[r.pos]
	if b != 0xFF {
		r.pos++
		return b, true
	}
	if r.pos+1 >= len(r.data) {
		return 0, false
	}
	if r.data[r.pos+1] == 0x00 {
		r.pos += 2
		return 0xFF, true
	}
	// A marker; leave it for whoever reads markers
	return 0, false
}

func (r *bitReader) readBit() uint32 {
	if r.bitsLeft == 0 {
		r.fill(1)
	}
	r.bitsLeft--
	return uint32(r.bits>>r.bitsLeft) & 1
}

// read returns the next n bits (n <= 16)
func (r *bitReader) read(n uint32) uint16 {
	if n == 0 {
		return 0
	}
	if r.bitsLeft < n {
		r.fill(n)
	}
	r.bitsLeft -= n
	return uint16((r.bits >> r.bitsLeft) & (1<<n - 1))
}

// restart discards the fill bits of the current byte and consumes the next
// RSTn marker, which must carry the expected index
func (r *bitReader) restart() error {
	r.bits = 0
	r.bitsLeft = 0
	if r.truncated {
		return nil
	}
	if r.pos+1 >= len(r.data) {
		r.truncated = true
		return nil
	}
	want := byte(MarkerRST0 + r.rst&7)
	if r.data[r.pos] != 0xFF || r.data[r.pos+1] != want {
		return errorf(KindMalformed, "invalid restart code %02x %02x found in stream (expected ff %02x)",
			r.data[r.pos], r.data[r.pos+1], want)
	}
	r.pos += 2
	r.rst++
	return nil
}

// extend converts a magnitude category and its raw bits to a signed value
func extend(bits uint16, size uint8) int32 {
	if size == 0 {
		return 0
	}
	// If MSB is 0, value is negative
	if bits < 1<<(size-1) {
		return int32(bits) - int32(1<<size) + 1
	}
	return int32(bits)
}
