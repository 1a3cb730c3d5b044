package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leijurv/jpeg_drop_go/compose"
	"github.com/leijurv/jpeg_drop_go/jpegtran"
)

type testResult struct {
	alignOK      bool
	roundingOK   bool
	idempotentOK bool
	pixelsOK     bool
	errMsg       string
	originalSize int
	alignedSize  int
}

func main() {
	dirPath := flag.String("dir", ".", "Directory containing .jpg files")
	limit := flag.Int("limit", 0, "Limit number of files to test (0 = no limit)")
	workers := flag.Int("workers", 16, "Number of parallel workers")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	entries, err := os.ReadDir(*dirPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading directory: %v\n", err)
		os.Exit(1)
	}

	var jpegFiles []string
	for _, e := range entries {
		name := strings.ToLower(e.Name())
		if !e.IsDir() && (strings.HasSuffix(name, ".jpg") || strings.HasSuffix(name, ".jpeg")) {
			jpegFiles = append(jpegFiles, e.Name())
		}
	}

	if *limit > 0 && len(jpegFiles) > *limit {
		jpegFiles = jpegFiles[:*limit]
	}

	fmt.Printf("Testing %d files with %d workers...\n", len(jpegFiles), *workers)

	var alignPass, alignFail int64
	var roundingFail, idempotentFail, pixelsFail int64
	var skipped int64
	var processed int64
	var totalOriginalBytes, totalAlignedBytes int64
	var mu sync.Mutex
	var failedFiles []string

	c := compose.New(jpegtran.NewEngine())

	jobs := make(chan string, len(jpegFiles))
	var wg sync.WaitGroup

	done := make(chan struct{})
	var statusWg sync.WaitGroup
	statusWg.Add(1)
	go func() {
		defer statusWg.Done()
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fmt.Printf("Progress: %d/%d processed (%d passed, %d failed, %d skipped)\n",
					atomic.LoadInt64(&processed), len(jpegFiles),
					atomic.LoadInt64(&alignPass), atomic.LoadInt64(&alignFail), atomic.LoadInt64(&skipped))
			case <-done:
				return
			}
		}
	}()

	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for filename := range jobs {
				result := testFile(c, *dirPath, filename, *verbose)
				atomic.AddInt64(&processed, 1)

				if result.errMsg == "skip" {
					atomic.AddInt64(&skipped, 1)
					continue
				}

				passed := result.alignOK && result.roundingOK && result.idempotentOK && result.pixelsOK
				switch {
				case passed:
					atomic.AddInt64(&alignPass, 1)
					atomic.AddInt64(&totalOriginalBytes, int64(result.originalSize))
					atomic.AddInt64(&totalAlignedBytes, int64(result.alignedSize))
				case result.alignOK && !result.roundingOK:
					atomic.AddInt64(&roundingFail, 1)
				case result.alignOK && !result.idempotentOK:
					atomic.AddInt64(&idempotentFail, 1)
				case result.alignOK:
					atomic.AddInt64(&pixelsFail, 1)
				}
				if !passed {
					atomic.AddInt64(&alignFail, 1)
					if result.errMsg != "" {
						mu.Lock()
						failedFiles = append(failedFiles, result.errMsg)
						mu.Unlock()
					}
				}
			}
		}()
	}

	for _, f := range jpegFiles {
		jobs <- f
	}
	close(jobs)
	wg.Wait()
	close(done)
	statusWg.Wait()

	fmt.Println()
	fmt.Printf("Results: %d passed, %d failed, %d skipped\n", alignPass, alignFail, skipped)
	if alignFail > 0 {
		fmt.Printf("  rounding: %d, idempotence: %d, pixels: %d\n", roundingFail, idempotentFail, pixelsFail)
	}
	if totalOriginalBytes > 0 {
		fmt.Printf("Size ratio: %.4f (aligned %d bytes / original %d bytes)\n",
			float64(totalAlignedBytes)/float64(totalOriginalBytes), totalAlignedBytes, totalOriginalBytes)
	}

	if len(failedFiles) > 0 && len(failedFiles) <= 20 {
		fmt.Println("\nFailed files:")
		for _, f := range failedFiles {
			fmt.Println("  " + f)
		}
	}
	if alignFail > 0 {
		os.Exit(1)
	}
}

func testFile(c *compose.Compositor, dirPath, filename string, verbose bool) testResult {
	result := testResult{}

	data, err := os.ReadFile(filepath.Join(dirPath, filename))
	if err != nil {
		result.errMsg = fmt.Sprintf("%s: read error: %v", filename, err)
		return result
	}
	result.originalSize = len(data)

	h, err := jpegtran.ReadHeader(data)
	if err != nil {
		// Progressive and other non-baseline files are out of scope
		if errors.Is(err, jpegtran.ErrMalformed) {
			if verbose {
				fmt.Printf("SKIP: %s: %v\n", filename, err)
			}
			result.errMsg = "skip"
			return result
		}
		result.errMsg = fmt.Sprintf("%s: header error: %v", filename, err)
		return result
	}

	// Step 1: align
	aligned, err := c.Align(data)
	if err != nil {
		result.errMsg = fmt.Sprintf("%s: align error: %v", filename, err)
		return result
	}
	result.alignOK = true
	result.alignedSize = len(aligned)

	// Step 2: dimensions are the next multiple of the MCU size
	ah, err := jpegtran.ReadHeader(aligned)
	if err != nil {
		result.errMsg = fmt.Sprintf("%s: aligned header error: %v", filename, err)
		return result
	}
	wantW, wantH := compose.AlignedSize(h)
	if ah.Width != wantW || ah.Height != wantH {
		result.errMsg = fmt.Sprintf("%s: aligned to %dx%d, expected %dx%d", filename, ah.Width, ah.Height, wantW, wantH)
		return result
	}
	result.roundingOK = true

	// Step 3: aligning again changes nothing
	again, err := c.Align(aligned)
	if err != nil {
		result.errMsg = fmt.Sprintf("%s: realign error: %v", filename, err)
		return result
	}
	if !bytes.Equal(again, aligned) {
		result.errMsg = fmt.Sprintf("%s: realign changed %d bytes to %d bytes", filename, len(aligned), len(again))
		return result
	}
	result.idempotentOK = true

	// Step 4: the original area decodes to the same luma
	if err := compareLuma(data, aligned, h.Width, h.Height); err != nil {
		result.errMsg = fmt.Sprintf("%s: %v", filename, err)
		return result
	}
	result.pixelsOK = true

	if verbose {
		fmt.Printf("PASS: %s (%dx%d -> %dx%d)\n", filename, h.Width, h.Height, ah.Width, ah.Height)
	}
	return result
}

// compareLuma decodes both images and compares the luma plane over the
// width x height area at the origin
func compareLuma(original, aligned []byte, width, height int) error {
	a, err := jpeg.Decode(bytes.NewReader(original))
	if err != nil {
		return fmt.Errorf("decode original: %w", err)
	}
	b, err := jpeg.Decode(bytes.NewReader(aligned))
	if err != nil {
		return fmt.Errorf("decode aligned: %w", err)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if luma(a, x, y) != luma(b, x, y) {
				return fmt.Errorf("luma differs at (%d,%d)", x, y)
			}
		}
	}
	return nil
}

func luma(img image.Image, x, y int) uint8 {
	switch m := img.(type) {
	case *image.YCbCr:
		return m.Y[m.YOffset(x, y)]
	case *image.Gray:
		return m.GrayAt(x, y).Y
	case *image.CMYK:
		return m.CMYKAt(x, y).K
	}
	r, _, _, _ := img.At(x, y).RGBA()
	return uint8(r >> 8)
}
