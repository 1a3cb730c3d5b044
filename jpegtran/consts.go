// Package jpegtran performs lossless block-level transforms on baseline JPEG
// streams: cropping to an MCU-aligned region and dropping one image's DCT
// blocks into another. Coefficients are never dequantized or transformed, so
// the output decodes to exactly the pixels of the input blocks it was built
// from.
package jpegtran

// JPEG marker codes
const (
	MarkerSOF0  = 0xC0 // Baseline DCT
	MarkerSOF1  = 0xC1 // Extended Sequential DCT
	MarkerSOF2  = 0xC2 // Progressive DCT
	MarkerSOF3  = 0xC3 // Lossless
	MarkerDHT   = 0xC4 // Define Huffman Table
	MarkerSOF15 = 0xCF
	MarkerDAC   = 0xCC // Define Arithmetic Conditioning
	MarkerRST0  = 0xD0 // Restart marker 0
	MarkerRST7  = 0xD7 // Restart marker 7
	MarkerSOI   = 0xD8 // Start Of Image
	MarkerEOI   = 0xD9 // End Of Image
	MarkerSOS   = 0xDA // Start Of Scan
	MarkerDQT   = 0xDB // Define Quantization Table
	MarkerDRI   = 0xDD // Define Restart Interval
	MarkerAPP0  = 0xE0 // Application Segment 0
	MarkerAPP1  = 0xE1 // Application Segment 1
	MarkerAPP14 = 0xEE // Application Segment 14
	MarkerAPP15 = 0xEF
	MarkerCOM   = 0xFE // Comment
)

// DCTSize is the edge length of a DCT block in samples
const DCTSize = 8

// MaxComponents is the maximum number of color components in a frame
const MaxComponents = 4

// maxDimension is the largest width or height a SOF segment can carry
const maxDimension = 65535

// maxPixels caps the area of a transform output so coefficient planes stay
// within a few hundred megabytes
const maxPixels = 1 << 27

// SOI is the JPEG Start Of Image marker
var SOI = [2]byte{0xFF, MarkerSOI}

// EOI is the JPEG End Of Image marker
var EOI = [2]byte{0xFF, MarkerEOI}

var (
	jfifIdentifier  = []byte("JFIF\x00")
	adobeIdentifier = []byte("Adobe")
	exifIdentifier  = []byte("Exif\x00\x00")
)
