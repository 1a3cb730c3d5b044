package jpegtran

// bitWriter writes bits to a byte buffer with JPEG-style FF escaping
type bitWriter struct {
	dataBuffer   []byte
	fillRegister uint64
	currentBit   uint32
}

// newBitWriter creates a new bitWriter with the given initial buffer
func newBitWriter(initialCapacity int) *bitWriter {
	return &bitWriter{
		dataBuffer: make([]byte, 0, initialCapacity),
		currentBit: 64,
	}
}

// write writes the low numBits of val, most significant first
func (w *bitWriter) write(val uint32, numBits uint32) {
	if numBits == 0 {
		return
	}
	val &= uint32(1<<numBits - 1)

	if numBits <= w.currentBit {
		w.fillRegister |= uint64(val) << (w.currentBit - numBits)
		w.currentBit -= numBits
		return
	}

	// Fill up the register to 64 bits and flush
	leftoverNewBits := numBits - w.currentBit
	fill := w.fillRegister | uint64(val)>>leftoverNewBits
	w.writeFFEncoded(fill)

	leftoverVal := val & (1<<leftoverNewBits - 1)
	w.fillRegister = uint64(leftoverVal) << (64 - leftoverNewBits)
	w.currentBit = 64 - leftoverNewBits
}

// writeFFEncoded writes 8 bytes, escaping any 0xFF bytes
func (w *bitWriter) writeFFEncoded(fill uint64) {
	for i := 0; i < 8; i++ {
		b := byte(fill >> (56 - (i * 8)))
		w.dataBuffer = append(w.dataBuffer, b)
		if b == 0xFF {
			w.dataBuffer = append(w.dataBuffer, 0x00)
		}
	}
}

// pad fills to the next byte boundary with 1 bits and flushes
func (w *bitWriter) pad() {
	if rem := w.currentBit & 7; rem != 0 {
		w.write(1<<rem-1, rem)
	}
	w.flushWholeBytes()
}

// flushWholeBytes flushes complete bytes from the register to the buffer
func (w *bitWriter) flushWholeBytes() {
	for w.currentBit <= 56 {
		b := byte(w.fillRegister >> 56)
		w.dataBuffer = append(w.dataBuffer, b)
		if b == 0xFF {
			w.dataBuffer = append(w.dataBuffer, 0x00)
		}
		w.fillRegister <<= 8
		w.currentBit += 8
	}
}

// writeMarker writes an unescaped two-byte marker; the writer must be padded
func (w *bitWriter) writeMarker(marker byte) {
	w.dataBuffer = append(w.dataBuffer, 0xFF, marker)
}

// bytes pads the final byte and returns the buffer
func (w *bitWriter) bytes() []byte {
	w.pad()
	return w.dataBuffer
}
