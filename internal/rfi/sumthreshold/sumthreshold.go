package sumthreshold

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/rfi.flagger/internal/rfi/tfgrid"
)

var (
	// ErrInvalidLength is returned for a window length outside 1, 2, 4, ..., 256.
	ErrInvalidLength = errors.New("sumthreshold: unsupported window length")
	// ErrSizeMismatch is returned when grid, mask and scratch disagree on size.
	ErrSizeMismatch = errors.New("sumthreshold: grid and mask sizes differ")
	// ErrScratchAliased is returned when the scratch mask is the mask being
	// read, which would let a pass see its own new flags.
	ErrScratchAliased = errors.New("sumthreshold: scratch aliases mask")
)

// MaxLength is the longest supported window.
const MaxLength = 256

// Lengths lists every supported window length in ascending order.
var Lengths = []int{1, 2, 4, 8, 16, 32, 64, 128, 256}

// ValidLength reports whether length is a supported window length.
func ValidLength(length int) bool {
	return length >= 1 && length <= MaxLength && length&(length-1) == 0
}

// Horizontal runs one pass along x with the Best tier.
func Horizontal(g *tfgrid.Grid, mask, scratch *tfgrid.Mask, length int, threshold float32) error {
	return Best().Horizontal(g, mask, scratch, length, threshold)
}

// Vertical runs one pass along y with the Best tier.
func Vertical(g *tfgrid.Grid, mask, scratch *tfgrid.Mask, length int, threshold float32) error {
	return Best().Vertical(g, mask, scratch, length, threshold)
}

// Horizontal runs one pass along x. New flags are accumulated into mask.
// scratch is overwritten; it may be nil, in which case one is allocated.
func (t Tier) Horizontal(g *tfgrid.Grid, mask, scratch *tfgrid.Mask, length int, threshold float32) error {
	scratch, err := prepare(g, mask, scratch, length)
	if err != nil {
		return err
	}
	if length == 1 {
		thresholdSingle(g, mask, threshold)
		return nil
	}
	if length > g.Width() {
		return nil
	}
	scratch.CopyFrom(mask)
	switch t {
	case Lanes8:
		horizontal8(g, mask, scratch, length, threshold)
	case Lanes4:
		horizontal4(g, mask, scratch, length, threshold)
	default:
		horizontalScalar(g, mask, scratch, length, threshold)
	}
	mask.Swap(scratch)
	return nil
}

// Vertical runs one pass along y. See Horizontal.
func (t Tier) Vertical(g *tfgrid.Grid, mask, scratch *tfgrid.Mask, length int, threshold float32) error {
	scratch, err := prepare(g, mask, scratch, length)
	if err != nil {
		return err
	}
	if length == 1 {
		thresholdSingle(g, mask, threshold)
		return nil
	}
	if length > g.Height() {
		return nil
	}
	scratch.CopyFrom(mask)
	switch t {
	case Lanes8:
		vertical8(g, mask, scratch, length, threshold)
	case Lanes4:
		vertical4(g, mask, scratch, length, threshold)
	default:
		verticalScalar(g, mask, scratch, length, threshold)
	}
	mask.Swap(scratch)
	return nil
}

func prepare(g *tfgrid.Grid, mask, scratch *tfgrid.Mask, length int) (*tfgrid.Mask, error) {
	if !ValidLength(length) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}
	if err := checkMask(g, mask); err != nil {
		return nil, err
	}
	if scratch == nil {
		return tfgrid.NewMask(g.Width(), g.Height()), nil
	}
	if scratch == mask {
		return nil, ErrScratchAliased
	}
	if !scratch.SameSize(g) {
		return nil, fmt.Errorf("%w: grid %dx%d, scratch %dx%d",
			ErrSizeMismatch, g.Width(), g.Height(), scratch.Width(), scratch.Height())
	}
	return scratch, nil
}

func checkMask(g *tfgrid.Grid, mask *tfgrid.Mask) error {
	if !mask.SameSize(g) {
		return fmt.Errorf("%w: grid %dx%d, mask %dx%d",
			ErrSizeMismatch, g.Width(), g.Height(), mask.Width(), mask.Height())
	}
	return nil
}

// thresholdSingle flags every unflagged sample whose magnitude exceeds
// threshold. It is the length 1 pass for both axes.
func thresholdSingle(g *tfgrid.Grid, mask *tfgrid.Mask, threshold float32) {
	for y := 0; y < g.Height(); y++ {
		vals := g.Row(y)
		flags := mask.Row(y)
		for x, v := range vals {
			if !flags[x] && abs32(v) > threshold {
				flags[x] = true
			}
		}
	}
}

func abs32(v float32) float32 {
	return math.Float32frombits(math.Float32bits(v) &^ (1 << 31))
}
