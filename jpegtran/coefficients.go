package jpegtran

// block holds the 64 quantized coefficients of one DCT block in zigzag
// order, DC first and absolute (not predicted)
type block [64]int16

// plane stores the coefficient blocks of one color component
type plane struct {
	// blocksW and blocksH are the dimensions of the coded block grid
	blocksW, blocksH int

	blocks []block
}

func newPlane(blocksW, blocksH int) *plane {
	return &plane{
		blocksW: blocksW,
		blocksH: blocksH,
		blocks:  make([]block, blocksW*blocksH),
	}
}

// at returns the block at the given block coordinates, or nil when outside
// the grid
func (p *plane) at(bx, by int) *block {
	if bx < 0 || by < 0 || bx >= p.blocksW || by >= p.blocksH {
		return nil
	}
	return &p.blocks[by*p.blocksW+bx]
}

// coefImage is a decoded baseline JPEG: its frame plus one plane per component
type coefImage struct {
	frame  *frame
	planes []*plane
}

// newCoefImage allocates zeroed planes for every component of f
func newCoefImage(f *frame) *coefImage {
	img := &coefImage{frame: f, planes: make([]*plane, len(f.components))}
	for i, c := range f.components {
		img.planes[i] = newPlane(c.blocksW, c.blocksH)
	}
	return img
}

// forEachMCU visits every block in scan order. restart is called between
// restart intervals; the caller resets its DC predictors there.
func (img *coefImage) forEachMCU(restartInterval int, visit func(ci int, b *block) error, restart func() error) error {
	f := img.frame
	total := f.mcusX * f.mcusY
	mcu := 0
	for my := 0; my < f.mcusY; my++ {
		for mx := 0; mx < f.mcusX; mx++ {
			if restartInterval > 0 && mcu > 0 && mcu%restartInterval == 0 && mcu < total {
				if err := restart(); err != nil {
					return err
				}
			}
			for _, ci := range f.scanComponents {
				c := f.components[ci]
				p := img.planes[ci]
				for v := 0; v < c.v; v++ {
					for h := 0; h < c.h; h++ {
						if err := visit(ci, p.at(mx*c.h+h, my*c.v+v)); err != nil {
							return err
						}
					}
				}
			}
			mcu++
		}
	}
	return nil
}
