package tfgrid

import (
	"math"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGrid_Layout(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name            string
		width, height   int
		wantStride      int
		wantAllocHeight int
	}{
		{"exact lane", 8, 8, 8, 8},
		{"odd width", 5, 3, 8, 8},
		{"wide", 17, 9, 24, 16},
		{"single", 1, 1, 8, 8},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGrid(tc.width, tc.height)
			if g.Stride() != tc.wantStride {
				t.Errorf("Stride() = %d, want %d", g.Stride(), tc.wantStride)
			}
			if g.AllocatedHeight() != tc.wantAllocHeight {
				t.Errorf("AllocatedHeight() = %d, want %d", g.AllocatedHeight(), tc.wantAllocHeight)
			}
			if g.Stride()%LaneWidth != 0 {
				t.Errorf("stride %d is not a multiple of %d", g.Stride(), LaneWidth)
			}
			addr := uintptr(unsafe.Pointer(&g.PaddedRow(0)[0]))
			if addr%bufferAlignment != 0 {
				t.Errorf("row 0 at %#x is not %d-byte aligned", addr, bufferAlignment)
			}
		})
	}
}

func TestNewGrid_NonPositiveDimensions(t *testing.T) {
	t.Parallel()
	for _, dims := range [][2]int{{0, 5}, {5, 0}, {-1, 3}, {3, -7}, {0, 0}} {
		g := NewGrid(dims[0], dims[1])
		if !g.Empty() || g.Width() != 0 || g.Height() != 0 {
			t.Errorf("NewGrid(%d, %d) = %dx%d, want empty", dims[0], dims[1], g.Width(), g.Height())
		}
		m := NewMask(dims[0], dims[1])
		if !m.Empty() {
			t.Errorf("NewMask(%d, %d) not empty", dims[0], dims[1])
		}
	}
}

func TestGrid_PaddingStaysZero(t *testing.T) {
	t.Parallel()
	g := NewSetGrid(5, 3, 7)
	for y := 0; y < g.AllocatedHeight(); y++ {
		row := g.PaddedRow(y)
		for x, v := range row {
			inside := x < g.Width() && y < g.Height()
			if inside && v != 7 {
				t.Fatalf("(%d,%d) = %v, want 7", x, y, v)
			}
			if !inside && v != 0 {
				t.Fatalf("padding (%d,%d) = %v, want 0", x, y, v)
			}
		}
	}
}

func TestGrid_ValueAccess(t *testing.T) {
	t.Parallel()
	g := NewGrid(4, 3)
	g.SetValue(2, 1, 3.5)
	g.AddValue(2, 1, 1)
	assert.Equal(t, float32(4.5), g.Value(2, 1))
	assert.Equal(t, float32(4.5), g.Row(1)[2])
	assert.Len(t, g.Row(1), 4)
}

func TestGrid_ResizeWithoutReallocation(t *testing.T) {
	t.Parallel()
	g := NewGridWithCapacity(5, 2, 12)
	require.Equal(t, 16, g.Stride())
	g.SetAll(1)

	assert.False(t, g.ResizeWithoutReallocation(17))
	assert.Equal(t, 5, g.Width())

	require.True(t, g.ResizeWithoutReallocation(3))
	require.True(t, g.ResizeWithoutReallocation(5))
	// Samples dropped by the shrink come back as zero.
	assert.Equal(t, []float32{1, 1, 1, 0, 0}, g.Row(0))
}

func TestGrid_TrimAndCopy(t *testing.T) {
	t.Parallel()
	g := NewGrid(6, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			g.SetValue(x, y, float32(10*y+x))
		}
	}
	tr := g.Trim(1, 2, 4, 4)
	require.Equal(t, 3, tr.Width())
	require.Equal(t, 2, tr.Height())
	assert.Equal(t, []float32{21, 22, 23}, tr.Row(0))
	assert.Equal(t, []float32{31, 32, 33}, tr.Row(1))

	dst := NewGrid(4, 2)
	dst.CopyFrom(tr, 2, 1)
	assert.Equal(t, []float32{0, 0, 21, 22}, dst.Row(1))
}

func TestGrid_ShrinkAndEnlarge(t *testing.T) {
	t.Parallel()
	g := NewGrid(5, 1)
	copy(g.Row(0), []float32{1, 3, 5, 7, 9})

	s := g.ShrinkHorizontally(2)
	assert.Equal(t, []float32{2, 6, 9}, s.Row(0))

	e := s.EnlargeHorizontally(2, 5)
	assert.Equal(t, []float32{2, 2, 6, 6, 9}, e.Row(0))

	v := NewGrid(1, 3)
	v.SetValue(0, 0, 2)
	v.SetValue(0, 1, 4)
	v.SetValue(0, 2, 9)
	sv := v.ShrinkVertically(2)
	require.Equal(t, 2, sv.Height())
	assert.Equal(t, float32(3), sv.Value(0, 0))
	assert.Equal(t, float32(9), sv.Value(0, 1))

	ev := sv.EnlargeVertically(2, 3)
	assert.Equal(t, float32(3), ev.Value(0, 1))
	assert.Equal(t, float32(9), ev.Value(0, 2))
}

func TestGrid_Transposed(t *testing.T) {
	t.Parallel()
	g := NewGrid(3, 2)
	g.SetValue(2, 0, 5)
	g.SetValue(0, 1, 6)
	tr := g.Transposed()
	require.Equal(t, 2, tr.Width())
	require.Equal(t, 3, tr.Height())
	assert.Equal(t, float32(5), tr.Value(0, 2))
	assert.Equal(t, float32(6), tr.Value(1, 0))
	assert.True(t, tr.Transposed().Equal(g))
}

func TestGrid_FiniteHandling(t *testing.T) {
	t.Parallel()
	g := NewSetGrid(3, 3, 1)
	assert.True(t, g.AllFinite())
	g.SetValue(1, 1, float32(math.NaN()))
	g.SetValue(2, 0, float32(math.Inf(-1)))
	assert.False(t, g.AllFinite())

	f := g.MakeFiniteCopy()
	assert.True(t, f.AllFinite())
	assert.Equal(t, float32(0), f.Value(1, 1))
	assert.Equal(t, float32(0), f.Value(2, 0))
	assert.Equal(t, float32(1), f.Value(0, 0))
	// The source is untouched.
	assert.False(t, g.AllFinite())
}

func TestGrid_Statistics(t *testing.T) {
	t.Parallel()
	g := NewGrid(2, 2)
	copy(g.Row(0), []float32{1, -1})
	copy(g.Row(1), []float32{3, -3})

	assert.InDelta(t, 0, g.Sum(), 1e-12)
	assert.InDelta(t, 0, g.Mean(), 1e-12)
	assert.InDelta(t, math.Sqrt(5), g.StdDev(), 1e-12)
	assert.InDelta(t, math.Sqrt(5), g.RMS(), 1e-12)
	assert.InDelta(t, math.Sqrt(20.0/8.0), g.Mode(), 1e-12)
	assert.Equal(t, -3.0, g.Min())
	assert.Equal(t, 3.0, g.Max())

	g.SetToAbs()
	assert.InDelta(t, 2, g.Mean(), 1e-12)
	g.MultiplyValues(2)
	assert.Equal(t, float32(6), g.Value(0, 1))

	empty := NewGrid(0, 0)
	assert.Equal(t, 0.0, empty.Mean())
	assert.True(t, math.IsNaN(empty.Max()))
}

func TestGrid_SumDiff(t *testing.T) {
	t.Parallel()
	a := NewSetGrid(3, 2, 5)
	b := NewSetGrid(3, 2, 2)
	assert.True(t, FromSum(a, b).Equal(NewSetGrid(3, 2, 7)))
	assert.True(t, FromDiff(a, b).Equal(NewSetGrid(3, 2, 3)))
	assert.False(t, a.Equal(NewSetGrid(2, 3, 5)))
}

func TestShared_ReferenceCount(t *testing.T) {
	t.Parallel()
	g := NewSetGrid(4, 4, 1)
	s := NewShared(g)
	s.Acquire()
	assert.Equal(t, 2, s.Refs())
	assert.False(t, s.Release())
	assert.Same(t, g, s.Grid())
	assert.True(t, s.Release())
	assert.Nil(t, s.Grid())
}
