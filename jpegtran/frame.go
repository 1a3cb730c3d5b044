package jpegtran

import (
	"bytes"
	"fmt"
)

// segment is a marker and its payload (without the length field)
type segment struct {
	marker byte
	data   []byte
}

// frameComponent holds the SOF and SOS parameters of one color component
type frameComponent struct {
	// id is the JPEG component identifier
	id byte

	// h and v are the horizontal and vertical sampling factors
	h, v int

	// tq is the quantization table index
	tq int

	// td and ta are the DC and AC Huffman table indices
	td, ta int

	// blocksW and blocksH span the whole MCU grid, padding included
	blocksW, blocksH int

	// widthInBlocks and heightInBlocks cover only the image area
	widthInBlocks, heightInBlocks int
}

// frame contains everything parsed from the segments preceding the scan
type frame struct {
	width, height int
	precision     int

	components []frameComponent

	// raw sampling factors as they appear in SOF, before normalization
	rawSampling [][2]int

	maxH, maxV     int
	mcusX, mcusY   int
	qtables        [4]*[64]uint16 // zigzag order
	qtable16       [4]bool
	dcTables       [4]*HuffmanTable
	acTables       [4]*HuffmanTable
	restart        int
	metadata       []segment
	scanComponents []int
}

// mcuSize returns the MCU dimensions in pixels
func (f *frame) mcuSize() (int, int) {
	return f.maxH * DCTSize, f.maxV * DCTSize
}

// layout recomputes the MCU and block grid for the current dimensions
func (f *frame) layout() {
	f.maxH, f.maxV = 1, 1
	for _, c := range f.components {
		f.maxH = max(f.maxH, c.h)
		f.maxV = max(f.maxV, c.v)
	}
	mcuW, mcuH := f.mcuSize()
	f.mcusX = ceilDiv(f.width, mcuW)
	f.mcusY = ceilDiv(f.height, mcuH)
	for i := range f.components {
		c := &f.components[i]
		c.blocksW = f.mcusX * c.h
		c.blocksH = f.mcusY * c.v
		c.widthInBlocks = ceilDiv(f.width*c.h, mcuW)
		c.heightInBlocks = ceilDiv(f.height*c.v, mcuH)
	}
}

// clone returns a deep enough copy to change dimensions independently
func (f *frame) clone() *frame {
	n := *f
	n.components = append([]frameComponent(nil), f.components...)
	n.rawSampling = append([][2]int(nil), f.rawSampling...)
	n.metadata = append([]segment(nil), f.metadata...)
	n.scanComponents = append([]int(nil), f.scanComponents...)
	return &n
}

// resize sets new dimensions and recomputes the grid
func (f *frame) resize(width, height int) {
	f.width = width
	f.height = height
	f.layout()
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// parseFrame walks the marker segments from SOI up to and including the
// first SOS. It returns the frame and the offset of the entropy-coded data.
func parseFrame(data []byte) (*frame, int, error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != MarkerSOI {
		return nil, 0, NewError(KindMalformed, "JPEG must start with 0xFF 0xD8")
	}

	f := &frame{}
	pos := 2
	for {
		// Skip fill bytes preceding the marker
		if pos >= len(data) || data[pos] != 0xFF {
			return nil, 0, errorf(KindMalformed, "expected marker at offset %d", pos)
		}
		for pos < len(data) && data[pos] == 0xFF {
			pos++
		}
		if pos >= len(data) {
			return nil, 0, NewError(KindMalformed, "truncated before SOS")
		}
		marker := data[pos]
		pos++

		switch {
		case marker == MarkerEOI:
			return nil, 0, NewError(KindMalformed, "unexpected EOI marker")
		case marker == MarkerSOI || (marker >= MarkerRST0 && marker <= MarkerRST7) || marker == 0x01:
			// Standalone markers without a length
			continue
		}

		if pos+2 > len(data) {
			return nil, 0, NewError(KindMalformed, "truncated segment length")
		}
		segmentLen := int(data[pos])<<8 | int(data[pos+1])
		if segmentLen < 2 {
			return nil, 0, NewError(KindMalformed, "segment too short")
		}
		if pos+segmentLen > len(data) {
			return nil, 0, errorf(KindMalformed, "segment %02x truncated: %d bytes declared, %d available",
				marker, segmentLen-2, len(data)-pos-2)
		}
		payload := data[pos+2 : pos+segmentLen]
		pos += segmentLen

		var err error
		switch {
		case marker == MarkerSOF0 || marker == MarkerSOF1:
			err = f.parseSOF(payload)
		case marker == MarkerSOF2:
			err = NewError(KindMalformed, "progressive JPEG not supported")
		case marker == MarkerSOF3 || (marker > MarkerDHT && marker <= MarkerSOF15 && marker != MarkerDAC):
			err = errorf(KindMalformed, "unsupported frame type SOF%d", marker-MarkerSOF0)
		case marker == MarkerDAC:
			err = NewError(KindMalformed, "arithmetic coding not supported")
		case marker == MarkerDHT:
			err = f.parseDHT(payload)
		case marker == MarkerDQT:
			err = f.parseDQT(payload)
		case marker == MarkerDRI:
			if len(payload) < 2 {
				err = NewError(KindMalformed, "DRI segment too short")
			} else {
				f.restart = int(payload[0])<<8 | int(payload[1])
			}
		case (marker >= MarkerAPP0 && marker <= MarkerAPP15) || marker == MarkerCOM:
			f.metadata = append(f.metadata, segment{marker: marker, data: payload})
		case marker == MarkerSOS:
			if err := f.parseSOS(payload); err != nil {
				return nil, 0, err
			}
			return f, pos, nil
		default:
			// Skip anything else (DNL, EXP, JPGn)
		}
		if err != nil {
			return nil, 0, err
		}
	}
}

// parseSOF parses the Start Of Frame segment
func (f *frame) parseSOF(data []byte) error {
	if len(data) < 6 {
		return NewError(KindMalformed, "SOF segment too short")
	}
	if f.components != nil {
		return NewError(KindMalformed, "multiple SOF markers")
	}
	f.precision = int(data[0])
	if f.precision != 8 {
		return errorf(KindMalformed, "%d bit precision not supported", f.precision)
	}

	f.height = int(data[1])<<8 | int(data[2])
	f.width = int(data[3])<<8 | int(data[4])
	n := int(data[5])

	if f.height == 0 || f.width == 0 {
		return NewError(KindMalformed, "image dimensions cannot be zero")
	}
	if n < 1 || n > MaxComponents {
		return errorf(KindMalformed, "image has %d components, 1 to %d supported", n, MaxComponents)
	}
	if len(data) < 6+3*n {
		return NewError(KindMalformed, "SOF segment too short for components")
	}

	f.components = make([]frameComponent, n)
	f.rawSampling = make([][2]int, n)
	for i := range f.components {
		c := &f.components[i]
		p := data[6+3*i:]
		c.id = p[0]
		c.h = int(p[1] >> 4)
		c.v = int(p[1] & 0x0F)
		c.tq = int(p[2])
		if c.h < 1 || c.h > 4 || c.v < 1 || c.v > 4 {
			return errorf(KindMalformed, "component %d has invalid sampling factors %dx%d", c.id, c.h, c.v)
		}
		if c.tq > 3 {
			return NewError(KindMalformed, "quantization table index too big")
		}
		f.rawSampling[i] = [2]int{c.h, c.v}
	}

	// A single-component scan is never interleaved, so its MCU is one block
	// whatever the declared factors
	if n == 1 {
		f.components[0].h, f.components[0].v = 1, 1
	}
	f.layout()
	return nil
}

// parseDHT parses a Define Huffman Table segment
func (f *frame) parseDHT(data []byte) error {
	pos := 0
	for pos < len(data) {
		tableClass := data[pos] >> 4
		tableID := data[pos] & 0x0F
		pos++

		if tableClass > 1 || tableID > 3 {
			return NewError(KindMalformed, "invalid Huffman table index")
		}
		if pos+16 > len(data) {
			return NewError(KindMalformed, "DHT segment too short")
		}

		var numCodes [17]uint8
		totalSymbols := 0
		for i := 1; i <= 16; i++ {
			numCodes[i] = data[pos+i-1]
			totalSymbols += int(numCodes[i])
		}
		pos += 16

		if totalSymbols > 256 || pos+totalSymbols > len(data) {
			return NewError(KindMalformed, "DHT segment too short for symbols")
		}
		symbols := append([]uint8(nil), data[pos:pos+totalSymbols]...)
		pos += totalSymbols

		ht, err := newHuffmanTable(numCodes, symbols)
		if err != nil {
			return err
		}
		if tableClass == 0 {
			f.dcTables[tableID] = ht
		} else {
			f.acTables[tableID] = ht
		}
	}
	return nil
}

// parseDQT parses a Define Quantization Table segment
func (f *frame) parseDQT(data []byte) error {
	pos := 0
	for pos < len(data) {
		precision := data[pos] >> 4
		tableID := data[pos] & 0x0F
		pos++

		if tableID > 3 || precision > 1 {
			return NewError(KindMalformed, "invalid quantization table index")
		}

		var table [64]uint16
		if precision == 0 {
			if pos+64 > len(data) {
				return NewError(KindMalformed, "DQT segment too short")
			}
			for i := 0; i < 64; i++ {
				table[i] = uint16(data[pos+i])
			}
			pos += 64
		} else {
			if pos+128 > len(data) {
				return NewError(KindMalformed, "DQT segment too short")
			}
			for i := 0; i < 64; i++ {
				table[i] = uint16(data[pos+i*2])<<8 | uint16(data[pos+i*2+1])
			}
			pos += 128
		}
		for _, q := range table {
			if q == 0 {
				return NewError(KindMalformed, "quantization table contains zero")
			}
		}
		f.qtables[tableID] = &table
		f.qtable16[tableID] = precision == 1
	}
	return nil
}

// parseSOS parses the Start Of Scan segment. Only a single scan that covers
// every component (or the only component) is supported.
func (f *frame) parseSOS(data []byte) error {
	if f.components == nil {
		return NewError(KindMalformed, "SOS before SOF")
	}
	if len(data) < 1 {
		return NewError(KindMalformed, "SOS segment too short")
	}

	n := int(data[0])
	if n == 0 || n > len(f.components) {
		return errorf(KindMalformed, "scan has %d components", n)
	}
	if n != len(f.components) {
		return NewError(KindMalformed, "multi-scan sequential JPEG not supported")
	}
	if len(data) < 1+2*n+3 {
		return NewError(KindMalformed, "SOS segment too short for components")
	}

	f.scanComponents = make([]int, n)
	for i := 0; i < n; i++ {
		id := data[1+2*i]
		idx := -1
		for j := range f.components {
			if f.components[j].id == id {
				idx = j
				break
			}
		}
		if idx < 0 {
			return NewError(KindMalformed, "component ID mismatch in SOS")
		}
		c := &f.components[idx]
		c.td = int(data[2+2*i] >> 4)
		c.ta = int(data[2+2*i] & 0x0F)
		if c.td > 3 || c.ta > 3 {
			return NewError(KindMalformed, "invalid Huffman table selector")
		}
		f.scanComponents[i] = idx
	}

	p := data[1+2*n:]
	if p[0] != 0 || p[1] != 63 || p[2] != 0 {
		return errorf(KindMalformed, "unexpected spectral selection %d-%d for sequential scan", p[0], p[1])
	}
	return nil
}

// validateTables checks that every table the scan refers to was defined
func (f *frame) validateTables() error {
	for _, c := range f.components {
		if f.qtables[c.tq] == nil {
			return errorf(KindMalformed, "missing quantization table %d", c.tq)
		}
		if f.dcTables[c.td] == nil || f.acTables[c.ta] == nil {
			return NewError(KindMalformed, "missing Huffman table")
		}
	}
	return nil
}

// findMetadata returns the first metadata segment with the given marker whose
// payload starts with prefix
func (f *frame) findMetadata(marker byte, prefix []byte) []byte {
	for _, s := range f.metadata {
		if s.marker == marker && bytes.HasPrefix(s.data, prefix) {
			return s.data
		}
	}
	return nil
}

func (c frameComponent) String() string {
	return fmt.Sprintf("component %d (%dx%d, q%d)", c.id, c.h, c.v, c.tq)
}
