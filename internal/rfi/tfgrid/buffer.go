package tfgrid

import "unsafe"

// LaneWidth is the widest vector lane count any pass reads at once. Strides
// and allocated heights are rounded up to a multiple of it.
const LaneWidth = 8

// bufferAlignment is the byte alignment of the first element of a buffer.
// 32 bytes covers a full 8 x float32 lane.
const bufferAlignment = 32

// alignUp rounds n up to the next multiple of LaneWidth.
func alignUp(n int) int {
	return (n + LaneWidth - 1) / LaneWidth * LaneWidth
}

// newFloatBuffer returns a zeroed slice of n float32 values whose first
// element sits on a bufferAlignment boundary.
func newFloatBuffer(n int) []float32 {
	if n == 0 {
		return nil
	}
	const pad = bufferAlignment / 4
	raw := make([]float32, n+pad)
	off := alignOffset(uintptr(unsafe.Pointer(&raw[0]))) / 4
	return raw[off : off+n : off+n]
}

// newBoolBuffer returns a zeroed (all false) slice of n bools aligned like
// newFloatBuffer.
func newBoolBuffer(n int) []bool {
	if n == 0 {
		return nil
	}
	raw := make([]bool, n+bufferAlignment)
	off := alignOffset(uintptr(unsafe.Pointer(&raw[0])))
	return raw[off : off+n : off+n]
}

func alignOffset(addr uintptr) int {
	rem := addr % bufferAlignment
	if rem == 0 {
		return 0
	}
	return int(bufferAlignment - rem)
}
