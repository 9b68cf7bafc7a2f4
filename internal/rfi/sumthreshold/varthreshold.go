package sumthreshold

import (
	"fmt"

	"github.com/banshee-data/rfi.flagger/internal/rfi/tfgrid"
)

// VarHorizontal flags every horizontal window of length samples in which
// each sample, flagged or not, has a magnitude above threshold. Flags are
// written straight into mask since the test never reads it. Any length of at
// least one is accepted.
func VarHorizontal(g *tfgrid.Grid, mask *tfgrid.Mask, length int, threshold float32) error {
	if err := checkVar(g, mask, length); err != nil {
		return err
	}
	width := g.Width()
	for y := 0; y < g.Height(); y++ {
		vals := g.Row(y)
		// run counts consecutive samples above threshold ending at x.
		run := 0
		for x := 0; x < width; x++ {
			if abs32(vals[x]) > threshold {
				run++
			} else {
				run = 0
			}
			if run >= length {
				mask.SetHorizontalValues(x-length+1, y, true, length)
			}
		}
	}
	return nil
}

// VarVertical is VarHorizontal along y.
func VarVertical(g *tfgrid.Grid, mask *tfgrid.Mask, length int, threshold float32) error {
	if err := checkVar(g, mask, length); err != nil {
		return err
	}
	height := g.Height()
	for x := 0; x < g.Width(); x++ {
		run := 0
		for y := 0; y < height; y++ {
			if abs32(g.Value(x, y)) > threshold {
				run++
			} else {
				run = 0
			}
			if run >= length {
				mask.SetVerticalValues(x, y-length+1, true, length)
			}
		}
	}
	return nil
}

func checkVar(g *tfgrid.Grid, mask *tfgrid.Mask, length int) error {
	if length < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}
	return checkMask(g, mask)
}
