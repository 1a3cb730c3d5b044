package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	jseg "github.com/garyhouston/jpegsegs"
	"github.com/leijurv/jpeg_drop_go/compose"
	"github.com/leijurv/jpeg_drop_go/jpegtran"
)

// errUsage marks command line mistakes; they exit with status 2
var errUsage = errors.New("usage")

var errMissingArgs = fmt.Errorf("%w: missing required arguments", errUsage)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "header":
		err = runHeader(os.Args[2:])
	case "align":
		err = runAlign(os.Args[2:])
	case "crop":
		err = runCrop(os.Args[2:])
	case "drop":
		err = runDrop(os.Args[2:])
	case "compose":
		err = runCompose(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fail(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: jpegdrop <command> [args]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  header  -in input.jpg [-segments]")
	fmt.Fprintln(os.Stderr, "  align   -in input.jpg -out output.jpg [-copy all|comments|none] [-optimize]")
	fmt.Fprintln(os.Stderr, "  crop    -in input.jpg -out output.jpg -w 640 -h 480 [-x 0 -y 0] [-round-up]")
	fmt.Fprintln(os.Stderr, "  drop    -in input.jpg -patch patch.jpg -out output.jpg -x 0 -y 480")
	fmt.Fprintln(os.Stderr, "  compose -src source.jpg -patch patch.jpg -out output.jpg [-x 0] [-placement below|right|at] [-y 0]")
	fmt.Fprintln(os.Stderr, "          [-mcu-policy match|lcm] [-dry-run] [-v]")
}

// engineFlags registers the flags shared by every transforming command
type engineFlags struct {
	copyMode *string
	optimize *bool
	restart  *int
	verbose  *bool
}

func addEngineFlags(fs *flag.FlagSet) *engineFlags {
	return &engineFlags{
		copyMode: fs.String("copy", "all", "metadata to copy: all, comments or none"),
		optimize: fs.Bool("optimize", false, "always build optimal Huffman tables"),
		restart:  fs.Int("restart", 0, "emit a restart marker every N MCUs"),
		verbose:  fs.Bool("v", false, "log each step"),
	}
}

func (f *engineFlags) logger() *log.Logger {
	if *f.verbose {
		return log.New(os.Stderr, "jpegdrop: ", 0)
	}
	return log.New(io.Discard, "", 0)
}

func (f *engineFlags) engine() (*jpegtran.Engine, error) {
	mode, err := jpegtran.ParseCopyMode(*f.copyMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	return jpegtran.NewEngine(
		jpegtran.WithCopyMode(mode),
		jpegtran.WithOptimize(*f.optimize),
		jpegtran.WithRestartInterval(*f.restart),
		jpegtran.WithLogger(f.logger()),
	), nil
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(filepath.Clean(path))
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(filepath.Clean(path), data, 0o644)
}

func runHeader(args []string) error {
	fs := flag.NewFlagSet("header", flag.ContinueOnError)
	inPath := fs.String("in", "", "input JPEG")
	segments := fs.Bool("segments", false, "also list the marker segments before the scan")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *inPath == "" {
		return errMissingArgs
	}
	data, err := readFile(*inPath)
	if err != nil {
		return err
	}
	h, err := jpegtran.ReadHeader(data)
	if err != nil {
		return err
	}
	if *segments {
		if err := printSegments(data); err != nil {
			return err
		}
	}
	fmt.Fprintln(os.Stdout, h)
	if h.Orientation != 1 {
		fmt.Fprintf(os.Stdout, "orientation: %d\n", h.Orientation)
	}
	if h.HasThumbnail {
		fmt.Fprintln(os.Stdout, "exif thumbnail: yes")
	}
	return nil
}

// printSegments lists the markers up to SOS and their payload sizes
func printSegments(data []byte) error {
	scanner, err := jseg.NewScanner(bytes.NewReader(data))
	if err != nil {
		return err
	}
	segs, err := jseg.ReadSegments(scanner)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "SOI")
	for _, s := range segs {
		fmt.Fprintf(os.Stdout, "%s, %d bytes\n", s.Marker.Name(), len(s.Data))
	}
	return nil
}

func runAlign(args []string) error {
	fs := flag.NewFlagSet("align", flag.ContinueOnError)
	inPath := fs.String("in", "", "input JPEG")
	outPath := fs.String("out", "", "output JPEG")
	ef := addEngineFlags(fs)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *inPath == "" || *outPath == "" {
		return errMissingArgs
	}
	engine, err := ef.engine()
	if err != nil {
		return err
	}
	data, err := readFile(*inPath)
	if err != nil {
		return err
	}
	out, err := compose.New(engine, compose.WithLogger(ef.logger())).Align(data)
	if err != nil {
		return err
	}
	return writeFile(*outPath, out)
}

func runCrop(args []string) error {
	fs := flag.NewFlagSet("crop", flag.ContinueOnError)
	inPath := fs.String("in", "", "input JPEG")
	outPath := fs.String("out", "", "output JPEG")
	width := fs.Int("w", 0, "crop width")
	height := fs.Int("h", 0, "crop height")
	x := fs.Int("x", 0, "horizontal offset, a multiple of the MCU width")
	y := fs.Int("y", 0, "vertical offset, a multiple of the MCU height")
	roundUp := fs.Bool("round-up", false, "extend the size to the next MCU boundary")
	ef := addEngineFlags(fs)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *inPath == "" || *outPath == "" || *width <= 0 || *height <= 0 {
		return errMissingArgs
	}
	engine, err := ef.engine()
	if err != nil {
		return err
	}
	data, err := readFile(*inPath)
	if err != nil {
		return err
	}
	out, err := engine.Crop(data, jpegtran.CropRequest{
		Width:   *width,
		Height:  *height,
		XOffset: *x,
		YOffset: *y,
		RoundUp: *roundUp,
	})
	if err != nil {
		return err
	}
	return writeFile(*outPath, out)
}

func runDrop(args []string) error {
	fs := flag.NewFlagSet("drop", flag.ContinueOnError)
	inPath := fs.String("in", "", "input JPEG")
	patchPath := fs.String("patch", "", "JPEG to drop in")
	outPath := fs.String("out", "", "output JPEG")
	x := fs.Int("x", 0, "horizontal offset")
	y := fs.Int("y", 0, "vertical offset")
	ef := addEngineFlags(fs)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *inPath == "" || *patchPath == "" || *outPath == "" {
		return errMissingArgs
	}
	engine, err := ef.engine()
	if err != nil {
		return err
	}
	source, err := readFile(*inPath)
	if err != nil {
		return err
	}
	patch, err := readFile(*patchPath)
	if err != nil {
		return err
	}
	out, err := engine.DropIn(source, patch, *x, *y)
	if err != nil {
		return err
	}
	return writeFile(*outPath, out)
}

func runCompose(args []string) error {
	fs := flag.NewFlagSet("compose", flag.ContinueOnError)
	srcPath := fs.String("src", "", "source JPEG")
	patchPath := fs.String("patch", "", "JPEG to place")
	outPath := fs.String("out", "", "output JPEG")
	x := fs.Int("x", 0, "patch offset along the free axis, or the x position for -placement at")
	y := fs.Int("y", 0, "y position for -placement at")
	placement := fs.String("placement", "below", "below, right or at")
	mcuPolicy := fs.String("mcu-policy", "match", "on MCU size mismatch: match (fail) or lcm")
	dryRun := fs.Bool("dry-run", false, "print the layout without writing output")
	ef := addEngineFlags(fs)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *srcPath == "" || *patchPath == "" || (*outPath == "" && !*dryRun) {
		return errMissingArgs
	}

	p, err := compose.ParsePlacement(*placement, *x, *y)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	policy, err := compose.ParseMCUPolicy(*mcuPolicy)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	engine, err := ef.engine()
	if err != nil {
		return err
	}
	c := compose.New(engine, compose.WithMCUPolicy(policy), compose.WithLogger(ef.logger()))

	source, err := readFile(*srcPath)
	if err != nil {
		return err
	}
	patch, err := readFile(*patchPath)
	if err != nil {
		return err
	}

	if *dryRun {
		layout, err := c.Plan(source, patch, *x, p)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, layout)
		return nil
	}

	out, err := c.Compose(source, patch, *x, p)
	if err != nil {
		return err
	}
	return writeFile(*outPath, out)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	if errors.Is(err, errUsage) {
		usage()
	}
	var stepErr *compose.StepError
	if errors.As(err, &stepErr) {
		fmt.Fprintln(os.Stderr, "failed step:", stepErr.Step)
	}
	os.Exit(exitCode(err))
}

// exitCode is 2 for usage errors, 3 and up by engine error kind, 1 otherwise
func exitCode(err error) int {
	if errors.Is(err, errUsage) {
		return 2
	}
	if kind := jpegtran.KindOf(err); kind != 0 {
		return int(kind) + 2
	}
	return 1
}
