package sumthreshold

import "github.com/banshee-data/rfi.flagger/internal/rfi/tfgrid"

// vertical8 takes eight columns at a time while more than four remain and
// hands the last four or fewer to the 4-lane block.
func vertical8(g *tfgrid.Grid, mask, scratch *tfgrid.Mask, length int, threshold float32) {
	width := g.Width()
	x0 := 0
	for ; x0+4 < width; x0 += 8 {
		verticalBlock8(g, mask, scratch, x0, width-x0, length, threshold)
	}
	if x0 < width {
		verticalBlock4(g, mask, scratch, x0, width-x0, length, threshold)
	}
}

func verticalBlock8(g *tfgrid.Grid, mask, scratch *tfgrid.Mask, x0, valid, length int, threshold float32) {
	lane := laneValidity8(valid)
	var sum, count [8]float32

	yBottom := 0
	for ; yBottom < length-1; yBottom++ {
		vals := (*[8]float32)(g.PaddedRow(yBottom)[x0:])
		flags := (*[8]byte)(mask.PaddedRowBytes(yBottom)[x0:])
		for l := range sum {
			keep := keepBits(flags[l])
			sum[l] += selectValue(vals[l], keep)
			count[l] += selectValue(1, keep)
		}
	}

	height := g.Height()
	for yTop := 0; yBottom < height; yTop, yBottom = yTop+1, yBottom+1 {
		vals := (*[8]float32)(g.PaddedRow(yBottom)[x0:])
		flags := (*[8]byte)(mask.PaddedRowBytes(yBottom)[x0:])
		for l := range sum {
			keep := keepBits(flags[l])
			sum[l] += selectValue(vals[l], keep)
			count[l] += selectValue(1, keep)
		}

		var hit [8]byte
		var anyHit byte
		for l := range sum {
			avg := sum[l] / count[l]
			hit[l] = boolByte(count[l] > 0) & boolByte(abs32(avg) > threshold) & lane[l]
			anyHit |= hit[l]
		}
		if anyHit != 0 {
			for y := yTop; y < yTop+length; y++ {
				out := (*[8]byte)(scratch.PaddedRowBytes(y)[x0:])
				for l := range out {
					out[l] |= hit[l]
				}
			}
		}

		vals = (*[8]float32)(g.PaddedRow(yTop)[x0:])
		flags = (*[8]byte)(mask.PaddedRowBytes(yTop)[x0:])
		for l := range sum {
			keep := keepBits(flags[l])
			sum[l] -= selectValue(vals[l], keep)
			count[l] -= selectValue(1, keep)
		}
	}
}

// horizontal8 takes eight rows at a time while more than four remain. The
// allocated height is a multiple of eight, so every gathered row exists.
func horizontal8(g *tfgrid.Grid, mask, scratch *tfgrid.Mask, length int, threshold float32) {
	height := g.Height()
	y0 := 0
	for ; y0+4 < height; y0 += 8 {
		horizontalBlock8(g, mask, scratch, y0, height-y0, length, threshold)
	}
	if y0 < height {
		horizontalBlock4(g, mask, scratch, y0, height-y0, length, threshold)
	}
}

func horizontalBlock8(g *tfgrid.Grid, mask, scratch *tfgrid.Mask, y0, valid, length int, threshold float32) {
	lane := laneValidity8(valid)
	var vals [8][]float32
	var flags, out [8][]byte
	for l := range vals {
		vals[l] = g.PaddedRow(y0 + l)
		flags[l] = mask.PaddedRowBytes(y0 + l)
		out[l] = scratch.PaddedRowBytes(y0 + l)
	}
	var sum, count [8]float32

	xRight := 0
	for ; xRight < length-1; xRight++ {
		for l := range sum {
			keep := keepBits(flags[l][xRight])
			sum[l] += selectValue(vals[l][xRight], keep)
			count[l] += selectValue(1, keep)
		}
	}

	width := g.Width()
	for xLeft := 0; xRight < width; xLeft, xRight = xLeft+1, xRight+1 {
		for l := range sum {
			keep := keepBits(flags[l][xRight])
			sum[l] += selectValue(vals[l][xRight], keep)
			count[l] += selectValue(1, keep)
		}

		var hit [8]byte
		var anyHit byte
		for l := range sum {
			avg := sum[l] / count[l]
			hit[l] = boolByte(count[l] > 0) & boolByte(abs32(avg) > threshold) & lane[l]
			anyHit |= hit[l]
		}
		if anyHit != 0 {
			for l := range out {
				window := out[l][xLeft : xLeft+length]
				h := hit[l]
				for i := range window {
					window[i] |= h
				}
			}
		}

		for l := range sum {
			keep := keepBits(flags[l][xLeft])
			sum[l] -= selectValue(vals[l][xLeft], keep)
			count[l] -= selectValue(1, keep)
		}
	}
}
