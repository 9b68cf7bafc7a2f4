package sumthreshold

import (
	"fmt"

	"github.com/banshee-data/rfi.flagger/internal/rfi/tfgrid"
)

// NaiveHorizontal recomputes every window from scratch in O(width*length)
// per row. It exists to check the sliding implementations.
func NaiveHorizontal(g *tfgrid.Grid, mask *tfgrid.Mask, length int, threshold float32) error {
	if !ValidLength(length) {
		return fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}
	if err := checkMask(g, mask); err != nil {
		return err
	}
	out := mask.Clone()
	for y := 0; y < g.Height(); y++ {
		for x := 0; x+length <= g.Width(); x++ {
			var sum float32
			count := 0
			for i := 0; i < length; i++ {
				if !mask.Value(x+i, y) {
					sum += g.Value(x+i, y)
					count++
				}
			}
			if count > 0 && abs32(sum/float32(count)) > threshold {
				out.SetHorizontalValues(x, y, true, length)
			}
		}
	}
	mask.CopyFrom(out)
	return nil
}

// NaiveVertical is NaiveHorizontal along y.
func NaiveVertical(g *tfgrid.Grid, mask *tfgrid.Mask, length int, threshold float32) error {
	if !ValidLength(length) {
		return fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}
	if err := checkMask(g, mask); err != nil {
		return err
	}
	out := mask.Clone()
	for x := 0; x < g.Width(); x++ {
		for y := 0; y+length <= g.Height(); y++ {
			var sum float32
			count := 0
			for i := 0; i < length; i++ {
				if !mask.Value(x, y+i) {
					sum += g.Value(x, y+i)
					count++
				}
			}
			if count > 0 && abs32(sum/float32(count)) > threshold {
				out.SetVerticalValues(x, y, true, length)
			}
		}
	}
	mask.CopyFrom(out)
	return nil
}
