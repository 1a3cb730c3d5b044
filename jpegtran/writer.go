package jpegtran

import (
	"bytes"
	"math/bits"
	"sort"
)

// writerOptions control how coefficient images are serialized
type writerOptions struct {
	copyMode        CopyMode
	optimize        bool
	restartInterval int
}

// scanEncoder emits Huffman symbols for blocks. In counting mode it only
// gathers symbol statistics so tables can be chosen before writing.
type scanEncoder struct {
	counting bool
	dcFreq   [4][256]int64
	acFreq   [4][256]int64

	dcCodes [4]*encodeTable
	acCodes [4]*encodeTable
	bw      *bitWriter
}

func (e *scanEncoder) emit(ac bool, table int, symbol uint8) {
	switch {
	case e.counting && ac:
		e.acFreq[table][symbol]++
	case e.counting:
		e.dcFreq[table][symbol]++
	case ac:
		e.bw.write(uint32(e.acCodes[table].codes[symbol]), uint32(e.acCodes[table].lengths[symbol]))
	default:
		e.bw.write(uint32(e.dcCodes[table].codes[symbol]), uint32(e.dcCodes[table].lengths[symbol]))
	}
}

func (e *scanEncoder) extra(value int32, category uint8) {
	if e.counting || category == 0 {
		return
	}
	v := uint32(value)
	if value < 0 {
		// One's complement for negative values
		v = uint32(value-1) & (1<<category - 1)
	}
	e.bw.write(v, uint32(category))
}

// category returns the magnitude category (bit size) of v
func category(v int32) uint8 {
	if v < 0 {
		v = -v
	}
	return uint8(bits.Len32(uint32(v)))
}

// encodeBlock encodes one block, DC as a difference from lastDC
func (e *scanEncoder) encodeBlock(c frameComponent, b *block, lastDC *int32) error {
	diff := int32(b[0]) - *lastDC
	*lastDC = int32(b[0])

	cat := category(diff)
	if cat > 11 {
		return errorf(KindTransform, "DC difference %d cannot be coded in a baseline scan", diff)
	}
	e.emit(false, c.td, cat)
	e.extra(diff, cat)

	zeroRunLength := 0
	for i := 1; i < 64; i++ {
		coef := int32(b[i])
		if coef == 0 {
			zeroRunLength++
			continue
		}
		for zeroRunLength >= 16 {
			// ZRL
			e.emit(true, c.ta, 0xF0)
			zeroRunLength -= 16
		}
		cat := category(coef)
		if cat > 10 {
			return errorf(KindTransform, "AC coefficient %d cannot be coded in a baseline scan", coef)
		}
		e.emit(true, c.ta, uint8(zeroRunLength<<4)|cat)
		e.extra(coef, cat)
		zeroRunLength = 0
	}
	if zeroRunLength > 0 {
		// EOB
		e.emit(true, c.ta, 0x00)
	}
	return nil
}

// encodeScan runs every block of img through e
func (e *scanEncoder) encodeScan(img *coefImage, restartInterval int) error {
	f := img.frame
	var lastDC [MaxComponents]int32
	rst := 0

	visit := func(ci int, b *block) error {
		return e.encodeBlock(f.components[ci], b, &lastDC[ci])
	}
	restart := func() error {
		lastDC = [MaxComponents]int32{}
		if !e.counting {
			e.bw.pad()
			e.bw.writeMarker(byte(MarkerRST0 + rst&7))
			rst++
		}
		return nil
	}
	return img.forEachMCU(restartInterval, visit, restart)
}

// usedTables returns the sorted distinct table indices selected by pick
func usedTables(f *frame, pick func(c frameComponent) int) []int {
	seen := map[int]bool{}
	var out []int
	for _, c := range f.components {
		if idx := pick(c); !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}
	sort.Ints(out)
	return out
}

// chooseTable keeps the existing table when it can code every symbol the
// scan needs, otherwise it builds an optimal one
func chooseTable(existing *HuffmanTable, freq *[256]int64, optimize bool) *HuffmanTable {
	if !optimize && existing != nil && existing.encodeTable().covers(freq) {
		return existing
	}
	return optimalHuffmanTable(freq)
}

// writeCoefficients serializes img as a single-scan baseline JPEG
func writeCoefficients(img *coefImage, opts writerOptions) ([]byte, error) {
	f := img.frame

	// First pass gathers statistics
	stats := &scanEncoder{counting: true}
	if err := stats.encodeScan(img, opts.restartInterval); err != nil {
		return nil, err
	}

	var dcTables, acTables [4]*HuffmanTable
	dcUsed := usedTables(f, func(c frameComponent) int { return c.td })
	acUsed := usedTables(f, func(c frameComponent) int { return c.ta })
	enc := &scanEncoder{}
	for _, i := range dcUsed {
		dcTables[i] = chooseTable(f.dcTables[i], &stats.dcFreq[i], opts.optimize)
		enc.dcCodes[i] = dcTables[i].encodeTable()
	}
	for _, i := range acUsed {
		acTables[i] = chooseTable(f.acTables[i], &stats.acFreq[i], opts.optimize)
		enc.acCodes[i] = acTables[i].encodeTable()
	}

	var out bytes.Buffer
	out.Write(SOI[:])
	writeMetadata(&out, f, opts.copyMode)

	// DQT
	qUsed := usedTables(f, func(c frameComponent) int { return c.tq })
	extended := false
	for _, i := range qUsed {
		payload, wide := dqtPayload(f.qtables[i], i)
		extended = extended || wide
		writeSegment(&out, MarkerDQT, payload)
	}
	for _, i := range append(dcUsed, acUsed...) {
		if i > 1 {
			extended = true
		}
	}

	// SOF
	sof := []byte{
		8,
		byte(f.height >> 8), byte(f.height),
		byte(f.width >> 8), byte(f.width),
		byte(len(f.components)),
	}
	for i, c := range f.components {
		sampling := f.rawSampling[i]
		sof = append(sof, c.id, byte(sampling[0]<<4|sampling[1]), byte(c.tq))
	}
	if extended {
		writeSegment(&out, MarkerSOF1, sof)
	} else {
		writeSegment(&out, MarkerSOF0, sof)
	}

	// DHT
	for _, i := range dcUsed {
		writeSegment(&out, MarkerDHT, dcTables[i].dhtPayload(0, i))
	}
	for _, i := range acUsed {
		writeSegment(&out, MarkerDHT, acTables[i].dhtPayload(1, i))
	}

	if opts.restartInterval > 0 {
		writeSegment(&out, MarkerDRI, []byte{byte(opts.restartInterval >> 8), byte(opts.restartInterval)})
	}

	// SOS
	sos := []byte{byte(len(f.scanComponents))}
	for _, ci := range f.scanComponents {
		c := f.components[ci]
		sos = append(sos, c.id, byte(c.td<<4|c.ta))
	}
	sos = append(sos, 0, 63, 0)
	writeSegment(&out, MarkerSOS, sos)

	enc.bw = newBitWriter(len(img.planes[0].blocks) * 16)
	if err := enc.encodeScan(img, opts.restartInterval); err != nil {
		return nil, err
	}
	out.Write(enc.bw.bytes())
	out.Write(EOI[:])
	return out.Bytes(), nil
}

func writeSegment(out *bytes.Buffer, marker byte, payload []byte) {
	n := len(payload) + 2
	out.Write([]byte{0xFF, marker, byte(n >> 8), byte(n)})
	out.Write(payload)
}

// dqtPayload serializes a quantization table, using 16-bit entries only when
// a value does not fit in a byte
func dqtPayload(table *[64]uint16, id int) ([]byte, bool) {
	wide := false
	for _, q := range table {
		if q > 255 {
			wide = true
			break
		}
	}
	if !wide {
		out := make([]byte, 0, 65)
		out = append(out, byte(id))
		for _, q := range table {
			out = append(out, byte(q))
		}
		return out, false
	}
	out := make([]byte, 0, 129)
	out = append(out, byte(0x10|id))
	for _, q := range table {
		out = append(out, byte(q>>8), byte(q))
	}
	return out, true
}

// writeMetadata writes the JFIF or Adobe header that matches the color space
// followed by the copied APPn and COM segments
func writeMetadata(out *bytes.Buffer, f *frame, mode CopyMode) {
	cs := detectColorSpace(f)
	writesJFIF := cs == ColorSpaceGrayscale || cs == ColorSpaceYCbCr
	writesAdobe := cs == ColorSpaceRGB

	if writesJFIF {
		writeSegment(out, MarkerAPP0, jfifPayload(f.findMetadata(MarkerAPP0, jfifIdentifier)))
	}
	if writesAdobe {
		// version 100, no flags, transform 0 (RGB)
		writeSegment(out, MarkerAPP14, append(append([]byte(nil), adobeIdentifier...), 0, 100, 0, 0, 0, 0, 0))
	}

	for _, s := range f.metadata {
		if !mode.keeps(s.marker) {
			continue
		}
		if writesJFIF && s.marker == MarkerAPP0 && bytes.HasPrefix(s.data, jfifIdentifier) {
			continue
		}
		if writesAdobe && s.marker == MarkerAPP14 && bytes.HasPrefix(s.data, adobeIdentifier) {
			continue
		}
		writeSegment(out, s.marker, s.data)
	}
}

// jfifPayload builds a JFIF APP0 without thumbnail, keeping the version and
// density of src when present
func jfifPayload(src []byte) []byte {
	p := append([]byte(nil), jfifIdentifier...)
	if len(src) >= 14 {
		return append(p, src[5], src[6], src[7], src[8], src[9], src[10], src[11], 0, 0)
	}
	return append(p, 1, 1, 0, 0, 1, 0, 1, 0, 0)
}
