package jpegtran

import "fmt"

// readCoefficients parses a baseline JPEG and decodes its single scan into
// coefficient planes
func readCoefficients(data []byte) (*coefImage, error) {
	f, pos, err := parseFrame(data)
	if err != nil {
		return nil, err
	}
	if err := f.validateTables(); err != nil {
		return nil, err
	}

	img := newCoefImage(f)
	if err := img.decodeScan(data, pos); err != nil {
		return nil, fmt.Errorf("decoding scan: %w", err)
	}
	return img, nil
}

// decodeScan reads the entropy-coded segment that starts at pos. A stream
// that ends early leaves the remaining blocks zeroed.
func (img *coefImage) decodeScan(data []byte, pos int) error {
	f := img.frame
	r := newBitReader(data, pos)
	var lastDC [MaxComponents]int32

	visit := func(ci int, b *block) error {
		if r.truncated {
			return nil
		}
		c := f.components[ci]
		return decodeBlock(r, f.dcTables[c.td], f.acTables[c.ta], b, &lastDC[ci])
	}
	restart := func() error {
		lastDC = [MaxComponents]int32{}
		return r.restart()
	}
	return img.forEachMCU(f.restart, visit, restart)
}

// decodeBlock decodes one sequential block, undoing DC prediction
func decodeBlock(r *bitReader, dcTable, acTable *HuffmanTable, b *block, lastDC *int32) error {
	s, err := dcTable.decode(r)
	if err != nil {
		return err
	}
	if s > 11 {
		return errorf(KindMalformed, "DC coefficient category %d out of range", s)
	}
	*lastDC += extend(r.read(uint32(s)), s)
	b[0] = int16(*lastDC)

	for k := 1; k < 64; k++ {
		rs, err := acTable.decode(r)
		if err != nil {
			return err
		}
		run, size := int(rs>>4), rs&0x0F
		if size == 0 {
			if run != 15 {
				// End of block
				return nil
			}
			k += 15
			continue
		}
		k += run
		if k > 63 {
			if r.truncated {
				return nil
			}
			return NewError(KindMalformed, "run length exceeds block boundary")
		}
		b[k] = int16(extend(r.read(uint32(size)), size))
	}
	return nil
}
