package sumthreshold

import (
	"fmt"

	"github.com/banshee-data/rfi.flagger/internal/rfi/tfgrid"
)

// HorizontalMissing is a horizontal pass in which samples set in missing do
// not exist: they contribute nothing and do not count towards the window
// length. A window therefore covers length present samples, and a hit flags
// everything from its first to its last present sample.
func HorizontalMissing(g *tfgrid.Grid, mask, missing, scratch *tfgrid.Mask, length int, threshold float32) error {
	scratch, err := prepareMissing(g, mask, missing, scratch, length)
	if err != nil {
		return err
	}
	scratch.CopyFrom(mask)
	present := make([]int, 0, g.Width())
	for y := 0; y < g.Height(); y++ {
		present = present[:0]
		for x, m := range missing.Row(y) {
			if !m {
				present = append(present, x)
			}
		}
		vals, flags := g.Row(y), mask.Row(y)
		slidePresent(present, length, threshold,
			func(x int) (float32, bool) { return vals[x], flags[x] },
			func(first, last int) { scratch.SetHorizontalValues(first, y, true, last-first+1) })
	}
	mask.Swap(scratch)
	return nil
}

// VerticalMissing is HorizontalMissing along y.
func VerticalMissing(g *tfgrid.Grid, mask, missing, scratch *tfgrid.Mask, length int, threshold float32) error {
	scratch, err := prepareMissing(g, mask, missing, scratch, length)
	if err != nil {
		return err
	}
	scratch.CopyFrom(mask)
	present := make([]int, 0, g.Height())
	for x := 0; x < g.Width(); x++ {
		present = present[:0]
		for y := 0; y < g.Height(); y++ {
			if !missing.Value(x, y) {
				present = append(present, y)
			}
		}
		slidePresent(present, length, threshold,
			func(y int) (float32, bool) { return g.Value(x, y), mask.Value(x, y) },
			func(first, last int) { scratch.SetVerticalValues(x, first, true, last-first+1) })
	}
	mask.Swap(scratch)
	return nil
}

// slidePresent runs the sliding sum over the positions listed in present.
func slidePresent(present []int, length int, threshold float32,
	sample func(pos int) (float32, bool), mark func(first, last int)) {
	if length > len(present) {
		return
	}
	var sum float32
	count := 0
	right := 0
	for ; right < length-1; right++ {
		if v, flagged := sample(present[right]); !flagged {
			sum += v
			count++
		}
	}
	for left := 0; right < len(present); left, right = left+1, right+1 {
		if v, flagged := sample(present[right]); !flagged {
			sum += v
			count++
		}
		if count > 0 && abs32(sum/float32(count)) > threshold {
			mark(present[left], present[right])
		}
		if v, flagged := sample(present[left]); !flagged {
			sum -= v
			count--
		}
	}
}

func prepareMissing(g *tfgrid.Grid, mask, missing, scratch *tfgrid.Mask, length int) (*tfgrid.Mask, error) {
	if !missing.SameSize(g) {
		return nil, fmt.Errorf("%w: grid %dx%d, missing %dx%d",
			ErrSizeMismatch, g.Width(), g.Height(), missing.Width(), missing.Height())
	}
	return prepare(g, mask, scratch, length)
}
