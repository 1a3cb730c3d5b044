package jpegtran

// HuffmanTable is a canonical JPEG Huffman table as carried in a DHT segment
type HuffmanTable struct {
	// NumCodes is the count of codes for each bit length (1-16)
	NumCodes [17]uint8

	// Symbols are the symbols in order of code length
	Symbols []uint8

	// MaxCode contains the maximum code for each bit length, -1 if none
	MaxCode [18]int32

	// ValPtr maps a code of each bit length to its index in Symbols
	ValPtr [17]int32
}

// newHuffmanTable builds the derived decode tables. It fails when the counts
// describe more codes than fit in 16 bits.
func newHuffmanTable(numCodes [17]uint8, symbols []uint8) (*HuffmanTable, error) {
	h := &HuffmanTable{NumCodes: numCodes, Symbols: symbols}

	code := int32(0)
	symbolIdx := int32(0)
	for bits := 1; bits <= 16; bits++ {
		h.ValPtr[bits] = symbolIdx - code
		if h.NumCodes[bits] > 0 {
			h.MaxCode[bits] = code + int32(h.NumCodes[bits]) - 1
			symbolIdx += int32(h.NumCodes[bits])
		} else {
			h.MaxCode[bits] = -1
		}
		code += int32(h.NumCodes[bits])
		if code > 1<<bits {
			return nil, NewError(KindMalformed, "bad Huffman table")
		}
		code <<= 1
	}
	h.MaxCode[17] = 0x7FFFFFFF
	return h, nil
}

// decode reads the next Huffman-coded symbol bit by bit. Reading one bit at a
// time keeps the reader from looking past a restart marker.
func (h *HuffmanTable) decode(r *bitReader) (uint8, error) {
	code := int32(0)
	for bits := 1; bits <= 16; bits++ {
		code = code<<1 | int32(r.readBit())
		if code <= h.MaxCode[bits] {
			return h.Symbols[h.ValPtr[bits]+code], nil
		}
	}
	return 0, NewError(KindMalformed, "invalid Huffman code")
}

// encodeTable maps a symbol to its code and length
type encodeTable struct {
	codes   [256]uint16
	lengths [256]uint8
}

func (h *HuffmanTable) encodeTable() *encodeTable {
	t := &encodeTable{}
	code := uint16(0)
	symbolIdx := 0
	for bits := 1; bits <= 16; bits++ {
		for i := 0; i < int(h.NumCodes[bits]); i++ {
			symbol := h.Symbols[symbolIdx]
			t.codes[symbol] = code
			t.lengths[symbol] = uint8(bits)
			code++
			symbolIdx++
		}
		code <<= 1
	}
	return t
}

// covers reports whether every symbol with a nonzero count has a code
func (t *encodeTable) covers(freq *[256]int64) bool {
	for sym, f := range freq {
		if f > 0 && t.lengths[sym] == 0 {
			return false
		}
	}
	return true
}

// optimalHuffmanTable builds a length-limited table for the given symbol
// frequencies following ITU T.81 Annex K.2. One extra pseudo-symbol reserves
// the all-ones code so no real code consists only of 1 bits.
func optimalHuffmanTable(symbolFreq *[256]int64) *HuffmanTable {
	var freq [257]int64
	copy(freq[:], symbolFreq[:])
	freq[256] = 1

	var codeSize [257]int
	var others [257]int
	for i := range others {
		others[i] = -1
	}

	for {
		// c1 is the least frequent symbol, c2 the next; ties go to the
		// larger index
		c1, c2 := -1, -1
		var v int64 = 1 << 62
		for i := 0; i <= 256; i++ {
			if freq[i] > 0 && freq[i] <= v {
				v = freq[i]
				c1 = i
			}
		}
		v = 1 << 62
		for i := 0; i <= 256; i++ {
			if freq[i] > 0 && freq[i] <= v && i != c1 {
				v = freq[i]
				c2 = i
			}
		}
		if c2 < 0 {
			break
		}

		freq[c1] += freq[c2]
		freq[c2] = 0

		codeSize[c1]++
		for others[c1] >= 0 {
			c1 = others[c1]
			codeSize[c1]++
		}
		others[c1] = c2

		codeSize[c2]++
		for others[c2] >= 0 {
			c2 = others[c2]
			codeSize[c2]++
		}
	}

	var bits [33]int
	for i := 0; i <= 256; i++ {
		if codeSize[i] > 0 {
			bits[codeSize[i]]++
		}
	}

	// Limit code lengths to 16 bits
	for i := 32; i > 16; i-- {
		for bits[i] > 0 {
			j := i - 2
			for bits[j] == 0 {
				j--
			}
			bits[i] -= 2
			bits[i-1]++
			bits[j+1] += 2
			bits[j]--
		}
	}

	// Drop the reserved pseudo-symbol from the longest length
	i := 16
	for i > 0 && bits[i] == 0 {
		i--
	}
	if i > 0 {
		bits[i]--
	}

	h := &HuffmanTable{}
	for l := 1; l <= 16; l++ {
		h.NumCodes[l] = uint8(bits[l])
	}
	for l := 1; l <= 32; l++ {
		for sym := 0; sym < 256; sym++ {
			if codeSize[sym] == l {
				h.Symbols = append(h.Symbols, uint8(sym))
			}
		}
	}

	derived, err := newHuffmanTable(h.NumCodes, h.Symbols)
	if err != nil {
		// Annex K.2 always yields a complete prefix code
		panic(err)
	}
	return derived
}

// dhtPayload serializes the table for a DHT segment
func (h *HuffmanTable) dhtPayload(class, id int) []byte {
	out := make([]byte, 0, 17+len(h.Symbols))
	out = append(out, byte(class<<4|id))
	out = append(out, h.NumCodes[1:]...)
	out = append(out, h.Symbols...)
	return out
}
