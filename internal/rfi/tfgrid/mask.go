package tfgrid

import "unsafe"

// Mask is a width x height matrix of flags with the same padded layout as
// Grid. true means flagged.
type Mask struct {
	width       int
	height      int
	stride      int
	allocHeight int
	data        []bool
}

// NewMask allocates an all-false mask. Non-positive dimensions yield an
// empty mask.
func NewMask(width, height int) *Mask {
	if width <= 0 || height <= 0 {
		return &Mask{}
	}
	m := &Mask{
		width:       width,
		height:      height,
		stride:      alignUp(width),
		allocHeight: alignUp(height),
	}
	m.data = newBoolBuffer(m.stride * m.allocHeight)
	return m
}

// NewSetMask allocates a mask with every logical flag set to value.
func NewSetMask(width, height int, value bool) *Mask {
	m := NewMask(width, height)
	if value {
		m.SetAll(true)
	}
	return m
}

// NewMaskFor allocates a mask matching the dimensions of g.
func NewMaskFor(g *Grid, value bool) *Mask {
	return NewSetMask(g.width, g.height, value)
}

func (m *Mask) Width() int  { return m.width }
func (m *Mask) Height() int { return m.height }
func (m *Mask) Stride() int { return m.stride }

// Empty reports whether the mask holds no flags.
func (m *Mask) Empty() bool { return m.width == 0 || m.height == 0 }

// AllocatedHeight returns the height rounded up to LaneWidth.
func (m *Mask) AllocatedHeight() int { return m.allocHeight }

func (m *Mask) Value(x, y int) bool { return m.data[y*m.stride+x] }

func (m *Mask) SetValue(x, y int, v bool) { m.data[y*m.stride+x] = v }

// Row returns the logical flags of row y. The slice aliases the mask.
func (m *Mask) Row(y int) []bool {
	start := y * m.stride
	return m.data[start : start+m.width : start+m.width]
}

// PaddedRow returns the full stride of row y, padding included.
func (m *Mask) PaddedRow(y int) []bool {
	start := y * m.stride
	return m.data[start : start+m.stride : start+m.stride]
}

// PaddedRowBytes views the full stride of row y as bytes, 0 for false and
// 1 for true. Only 0 or 1 may be stored through it; OR-ing such bytes keeps
// that property.
func (m *Mask) PaddedRowBytes(y int) []byte {
	row := m.PaddedRow(y)
	if len(row) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&row[0])), len(row))
}

// SetHorizontalValues sets count flags in row y starting at x.
func (m *Mask) SetHorizontalValues(x, y int, v bool, count int) {
	row := m.Row(y)[x : x+count]
	for i := range row {
		row[i] = v
	}
}

// SetVerticalValues sets count flags in column x starting at row y.
func (m *Mask) SetVerticalValues(x, y int, v bool, count int) {
	for i := 0; i < count; i++ {
		m.data[(y+i)*m.stride+x] = v
	}
}

// SetAll sets every logical flag to v. Padding stays false.
func (m *Mask) SetAll(v bool) {
	for y := 0; y < m.height; y++ {
		row := m.Row(y)
		for x := range row {
			row[x] = v
		}
	}
}

// Clone returns a deep copy with the same stride.
func (m *Mask) Clone() *Mask {
	c := &Mask{
		width:       m.width,
		height:      m.height,
		stride:      m.stride,
		allocHeight: m.allocHeight,
	}
	c.data = newBoolBuffer(len(m.data))
	copy(c.data, m.data)
	return c
}

// CopyFrom overwrites the logical flags of m with those of source. Both
// masks must have the same width and height; strides may differ.
func (m *Mask) CopyFrom(source *Mask) {
	if m.stride == source.stride && len(m.data) == len(source.data) {
		copy(m.data, source.data)
		return
	}
	for y := 0; y < m.height; y++ {
		copy(m.Row(y), source.Row(y))
	}
}

// Swap exchanges the contents of two masks without copying any flags.
func (m *Mask) Swap(other *Mask) {
	*m, *other = *other, *m
}

// SameSize reports whether the mask matches the dimensions of g.
func (m *Mask) SameSize(g *Grid) bool {
	return m.width == g.width && m.height == g.height
}

// Equal reports whether both masks have the same dimensions and flags.
func (m *Mask) Equal(other *Mask) bool {
	if m.width != other.width || m.height != other.height {
		return false
	}
	for y := 0; y < m.height; y++ {
		a, b := m.Row(y), other.Row(y)
		for x := range a {
			if a[x] != b[x] {
				return false
			}
		}
	}
	return true
}

// AllFalse reports whether no flag is set.
func (m *Mask) AllFalse() bool {
	return m.Count(true) == 0
}

// Count returns the number of logical flags equal to value.
func (m *Mask) Count(value bool) int {
	n := 0
	for y := 0; y < m.height; y++ {
		for _, v := range m.Row(y) {
			if v == value {
				n++
			}
		}
	}
	return n
}

// Invert flips every logical flag.
func (m *Mask) Invert() {
	for y := 0; y < m.height; y++ {
		row := m.Row(y)
		for x := range row {
			row[x] = !row[x]
		}
	}
}

// Join ORs other into m.
func (m *Mask) Join(other *Mask) {
	for y := 0; y < m.height; y++ {
		a, b := m.Row(y), other.Row(y)
		for x := range a {
			a[x] = a[x] || b[x]
		}
	}
}

// Intersect ANDs other into m.
func (m *Mask) Intersect(other *Mask) {
	for y := 0; y < m.height; y++ {
		a, b := m.Row(y), other.Row(y)
		for x := range a {
			a[x] = a[x] && b[x]
		}
	}
}

// Trim returns a copy of the half-open rectangle [startX, endX) x
// [startY, endY).
func (m *Mask) Trim(startX, startY, endX, endY int) *Mask {
	out := NewMask(endX-startX, endY-startY)
	for y := startY; y < endY && !out.Empty(); y++ {
		copy(out.Row(y-startY), m.Row(y)[startX:endX])
	}
	return out
}

// ShrinkHorizontally combines bins of factor flags along x; a bin is flagged
// when any of its members is.
func (m *Mask) ShrinkHorizontally(factor int) *Mask {
	if factor <= 1 {
		return m.Clone()
	}
	newWidth := (m.width + factor - 1) / factor
	out := NewMask(newWidth, m.height)
	for y := 0; y < m.height; y++ {
		src, dst := m.Row(y), out.Row(y)
		for x := range dst {
			end := min((x+1)*factor, m.width)
			for _, v := range src[x*factor : end] {
				if v {
					dst[x] = true
					break
				}
			}
		}
	}
	return out
}

// ShrinkVertically combines bins of factor rows; a bin is flagged when any
// of its members is.
func (m *Mask) ShrinkVertically(factor int) *Mask {
	if factor <= 1 {
		return m.Clone()
	}
	newHeight := (m.height + factor - 1) / factor
	out := NewMask(m.width, newHeight)
	for y := 0; y < m.height; y++ {
		src, dst := m.Row(y), out.Row(y/factor)
		for x, v := range src {
			dst[x] = dst[x] || v
		}
	}
	return out
}

// EnlargeHorizontally repeats every flag factor times along x, producing a
// mask of newWidth columns.
func (m *Mask) EnlargeHorizontally(factor, newWidth int) *Mask {
	out := NewMask(newWidth, m.height)
	if factor < 1 {
		return out
	}
	for y := 0; y < out.height; y++ {
		src, dst := m.Row(y), out.Row(y)
		for x := range dst {
			dst[x] = src[min(x/factor, m.width-1)]
		}
	}
	return out
}

// EnlargeVertically repeats every row factor times, producing newHeight rows.
func (m *Mask) EnlargeVertically(factor, newHeight int) *Mask {
	out := NewMask(m.width, newHeight)
	if factor < 1 {
		return out
	}
	for y := 0; y < out.height; y++ {
		copy(out.Row(y), m.Row(min(y/factor, m.height-1)))
	}
	return out
}

// Transposed returns a copy with the axes swapped.
func (m *Mask) Transposed() *Mask {
	out := NewMask(m.height, m.width)
	for y := 0; y < m.height; y++ {
		for x, v := range m.Row(y) {
			out.SetValue(y, x, v)
		}
	}
	return out
}
