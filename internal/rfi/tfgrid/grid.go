package tfgrid

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Grid is a width x height matrix of float32 samples stored row-major with a
// padded stride. The zero value is an empty 0x0 grid.
//
// A Grid handed to the flagger is treated as read-only, so one *Grid may be
// shared between several polarisations or goroutines as long as nobody
// writes to it while a pass is running.
type Grid struct {
	width  int
	height int
	stride int
	// allocHeight is height rounded up to LaneWidth; the extra rows are zero.
	allocHeight int
	data        []float32
}

// NewGrid allocates a zero-filled grid. Non-positive dimensions yield an
// empty grid.
func NewGrid(width, height int) *Grid {
	return NewGridWithCapacity(width, height, width)
}

// NewGridWithCapacity allocates a zero-filled grid whose stride can hold at
// least widthCapacity samples, so it may later be widened in place with
// ResizeWithoutReallocation.
func NewGridWithCapacity(width, height, widthCapacity int) *Grid {
	if width <= 0 || height <= 0 {
		return &Grid{}
	}
	if widthCapacity < width {
		widthCapacity = width
	}
	g := &Grid{
		width:       width,
		height:      height,
		stride:      alignUp(widthCapacity),
		allocHeight: alignUp(height),
	}
	g.data = newFloatBuffer(g.stride * g.allocHeight)
	return g
}

// NewZeroGrid is NewGrid spelled out for call sites that rely on the zeros.
func NewZeroGrid(width, height int) *Grid {
	return NewGrid(width, height)
}

// NewSetGrid allocates a grid with every logical sample set to value.
func NewSetGrid(width, height int, value float32) *Grid {
	g := NewGrid(width, height)
	g.SetAll(value)
	return g
}

// Width returns the number of samples per row (time steps).
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows (channels).
func (g *Grid) Height() int { return g.height }

// Stride returns the distance in elements between the starts of two rows.
func (g *Grid) Stride() int { return g.stride }

// Empty reports whether the grid holds no samples.
func (g *Grid) Empty() bool { return g.width == 0 || g.height == 0 }

// Value returns the sample at (x, y). The caller guarantees the range.
func (g *Grid) Value(x, y int) float32 { return g.data[y*g.stride+x] }

// SetValue stores v at (x, y).
func (g *Grid) SetValue(x, y int, v float32) { g.data[y*g.stride+x] = v }

// AddValue adds v to the sample at (x, y).
func (g *Grid) AddValue(x, y int, v float32) { g.data[y*g.stride+x] += v }

// Row returns the logical samples of row y. The slice aliases the grid.
func (g *Grid) Row(y int) []float32 {
	start := y * g.stride
	return g.data[start : start+g.width : start+g.width]
}

// PaddedRow returns the full stride of row y, padding included. Row indices
// up to the allocated (lane-rounded) height are valid and read as zero past
// Height.
func (g *Grid) PaddedRow(y int) []float32 {
	start := y * g.stride
	return g.data[start : start+g.stride : start+g.stride]
}

// AllocatedHeight returns the number of rows backed by memory, which is the
// height rounded up to LaneWidth.
func (g *Grid) AllocatedHeight() int { return g.allocHeight }

// SetAll sets every logical sample to v. Padding stays zero.
func (g *Grid) SetAll(v float32) {
	for y := 0; y < g.height; y++ {
		row := g.Row(y)
		for x := range row {
			row[x] = v
		}
	}
}

// Clone returns a deep copy with the same stride.
func (g *Grid) Clone() *Grid {
	c := &Grid{
		width:       g.width,
		height:      g.height,
		stride:      g.stride,
		allocHeight: g.allocHeight,
	}
	c.data = newFloatBuffer(len(g.data))
	copy(c.data, g.data)
	return c
}

// CopyFrom copies source into g with its top-left corner at (destX, destY),
// clipping whatever falls outside g.
func (g *Grid) CopyFrom(source *Grid, destX, destY int) {
	x2 := min(source.width+destX, g.width)
	y2 := min(source.height+destY, g.height)
	for y := destY; y < y2; y++ {
		copy(g.Row(y)[destX:x2], source.Row(y - destY))
	}
}

// ResizeWithoutReallocation changes the logical width in place. It is only
// valid when newWidth does not exceed the stride; otherwise it returns false
// and leaves the grid untouched. Samples that become padding are zeroed.
func (g *Grid) ResizeWithoutReallocation(newWidth int) bool {
	if newWidth < 0 || newWidth > g.stride {
		return false
	}
	if newWidth < g.width {
		for y := 0; y < g.height; y++ {
			row := g.PaddedRow(y)
			for x := newWidth; x < g.width; x++ {
				row[x] = 0
			}
		}
	}
	g.width = newWidth
	return true
}

// Trim returns a copy of the half-open rectangle [startX, endX) x
// [startY, endY). The copy gets its own lane-aligned stride.
func (g *Grid) Trim(startX, startY, endX, endY int) *Grid {
	out := NewGrid(endX-startX, endY-startY)
	for y := startY; y < endY && !out.Empty(); y++ {
		copy(out.Row(y-startY), g.Row(y)[startX:endX])
	}
	return out
}

// ShrinkHorizontally averages bins of factor samples along x. The last bin
// may be narrower when the width is not a multiple of factor.
func (g *Grid) ShrinkHorizontally(factor int) *Grid {
	if factor <= 1 {
		return g.Clone()
	}
	newWidth := (g.width + factor - 1) / factor
	out := NewGrid(newWidth, g.height)
	for y := 0; y < g.height; y++ {
		src := g.Row(y)
		dst := out.Row(y)
		for x := 0; x < newWidth; x++ {
			start := x * factor
			end := min(start+factor, g.width)
			var sum float32
			for _, v := range src[start:end] {
				sum += v
			}
			dst[x] = sum / float32(end-start)
		}
	}
	return out
}

// ShrinkVertically averages bins of factor rows along y.
func (g *Grid) ShrinkVertically(factor int) *Grid {
	if factor <= 1 {
		return g.Clone()
	}
	newHeight := (g.height + factor - 1) / factor
	out := NewGrid(g.width, newHeight)
	for y := 0; y < newHeight; y++ {
		start := y * factor
		end := min(start+factor, g.height)
		dst := out.Row(y)
		for x := 0; x < g.width; x++ {
			var sum float32
			for sy := start; sy < end; sy++ {
				sum += g.Value(x, sy)
			}
			dst[x] = sum / float32(end-start)
		}
	}
	return out
}

// EnlargeHorizontally repeats every sample factor times along x, producing a
// grid of newWidth columns.
func (g *Grid) EnlargeHorizontally(factor, newWidth int) *Grid {
	out := NewGrid(newWidth, g.height)
	if factor < 1 {
		return out
	}
	for y := 0; y < out.height; y++ {
		src := g.Row(y)
		dst := out.Row(y)
		for x := range dst {
			dst[x] = src[min(x/factor, g.width-1)]
		}
	}
	return out
}

// EnlargeVertically repeats every row factor times, producing newHeight rows.
func (g *Grid) EnlargeVertically(factor, newHeight int) *Grid {
	out := NewGrid(g.width, newHeight)
	if factor < 1 {
		return out
	}
	for y := 0; y < out.height; y++ {
		copy(out.Row(y), g.Row(min(y/factor, g.height-1)))
	}
	return out
}

// Transposed returns a copy with the x and y axes swapped.
func (g *Grid) Transposed() *Grid {
	out := NewGrid(g.height, g.width)
	for y := 0; y < g.height; y++ {
		for x, v := range g.Row(y) {
			out.SetValue(y, x, v)
		}
	}
	return out
}

// Equal reports whether both grids have the same dimensions and identical
// logical samples. Padding and stride are ignored.
func (g *Grid) Equal(other *Grid) bool {
	if g.width != other.width || g.height != other.height {
		return false
	}
	for y := 0; y < g.height; y++ {
		a, b := g.Row(y), other.Row(y)
		for x := range a {
			if a[x] != b[x] {
				return false
			}
		}
	}
	return true
}

// AllFinite reports whether no sample is NaN or infinite.
func (g *Grid) AllFinite() bool {
	for y := 0; y < g.height; y++ {
		for _, v := range g.Row(y) {
			if !isFinite(v) {
				return false
			}
		}
	}
	return true
}

// MakeFiniteCopy returns a copy in which every NaN or infinite sample has
// been replaced by zero.
func (g *Grid) MakeFiniteCopy() *Grid {
	out := g.Clone()
	for y := 0; y < out.height; y++ {
		row := out.Row(y)
		for x, v := range row {
			if !isFinite(v) {
				row[x] = 0
			}
		}
	}
	return out
}

// SetToAbs replaces every sample by its absolute value.
func (g *Grid) SetToAbs() {
	for y := 0; y < g.height; y++ {
		row := g.Row(y)
		for x, v := range row {
			row[x] = float32(math.Abs(float64(v)))
		}
	}
}

// MultiplyValues scales every sample by factor.
func (g *Grid) MultiplyValues(factor float32) {
	for y := 0; y < g.height; y++ {
		row := g.Row(y)
		for x := range row {
			row[x] *= factor
		}
	}
}

// FromSum returns a + b sample-wise. Both grids must have equal sizes.
func FromSum(a, b *Grid) *Grid {
	out := NewGrid(a.width, a.height)
	for y := 0; y < a.height; y++ {
		ra, rb, ro := a.Row(y), b.Row(y), out.Row(y)
		for x := range ro {
			ro[x] = ra[x] + rb[x]
		}
	}
	return out
}

// FromDiff returns a - b sample-wise. Both grids must have equal sizes.
func FromDiff(a, b *Grid) *Grid {
	out := NewGrid(a.width, a.height)
	for y := 0; y < a.height; y++ {
		ra, rb, ro := a.Row(y), b.Row(y), out.Row(y)
		for x := range ro {
			ro[x] = ra[x] - rb[x]
		}
	}
	return out
}

// Values returns the logical samples as a contiguous float64 slice, row by
// row. It is the bridge to the gonum statistics helpers.
func (g *Grid) Values() []float64 {
	out := make([]float64, 0, g.width*g.height)
	for y := 0; y < g.height; y++ {
		for _, v := range g.Row(y) {
			out = append(out, float64(v))
		}
	}
	return out
}

// Sum returns the sum of all samples.
func (g *Grid) Sum() float64 {
	return floats.Sum(g.Values())
}

// Mean returns the average sample value, or 0 for an empty grid.
func (g *Grid) Mean() float64 {
	if g.Empty() {
		return 0
	}
	return stat.Mean(g.Values(), nil)
}

// StdDev returns the population standard deviation of all samples.
func (g *Grid) StdDev() float64 {
	if g.Empty() {
		return 0
	}
	_, variance := stat.PopMeanVariance(g.Values(), nil)
	return math.Sqrt(variance)
}

// RMS returns the root mean square of all samples.
func (g *Grid) RMS() float64 {
	if g.Empty() {
		return 0
	}
	v := g.Values()
	return math.Sqrt(floats.Dot(v, v) / float64(len(v)))
}

// Mode returns the Rayleigh mode estimate sqrt(sum(v^2) / 2n) over all
// samples, without any winsorizing.
func (g *Grid) Mode() float64 {
	if g.Empty() {
		return 0
	}
	v := g.Values()
	return math.Sqrt(floats.Dot(v, v) / (2 * float64(len(v))))
}

// Min returns the smallest sample, or NaN for an empty grid.
func (g *Grid) Min() float64 {
	if g.Empty() {
		return math.NaN()
	}
	return floats.Min(g.Values())
}

// Max returns the largest sample, or NaN for an empty grid.
func (g *Grid) Max() float64 {
	if g.Empty() {
		return math.NaN()
	}
	return floats.Max(g.Values())
}

func isFinite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
