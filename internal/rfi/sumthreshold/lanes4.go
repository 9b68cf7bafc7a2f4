package sumthreshold

import "github.com/banshee-data/rfi.flagger/internal/rfi/tfgrid"

func vertical4(g *tfgrid.Grid, mask, scratch *tfgrid.Mask, length int, threshold float32) {
	for x0 := 0; x0 < g.Width(); x0 += 4 {
		verticalBlock4(g, mask, scratch, x0, g.Width()-x0, length, threshold)
	}
}

// verticalBlock4 advances columns [x0, x0+4) together. Lanes at or beyond
// valid never flag. The padded stride guarantees x0+4 is in bounds.
func verticalBlock4(g *tfgrid.Grid, mask, scratch *tfgrid.Mask, x0, valid, length int, threshold float32) {
	lane := laneValidity4(valid)
	var sum, count [4]float32

	yBottom := 0
	for ; yBottom < length-1; yBottom++ {
		vals := (*[4]float32)(g.PaddedRow(yBottom)[x0:])
		flags := (*[4]byte)(mask.PaddedRowBytes(yBottom)[x0:])
		for l := range sum {
			keep := keepBits(flags[l])
			sum[l] += selectValue(vals[l], keep)
			count[l] += selectValue(1, keep)
		}
	}

	height := g.Height()
	for yTop := 0; yBottom < height; yTop, yBottom = yTop+1, yBottom+1 {
		vals := (*[4]float32)(g.PaddedRow(yBottom)[x0:])
		flags := (*[4]byte)(mask.PaddedRowBytes(yBottom)[x0:])
		for l := range sum {
			keep := keepBits(flags[l])
			sum[l] += selectValue(vals[l], keep)
			count[l] += selectValue(1, keep)
		}

		var hit [4]byte
		var anyHit byte
		for l := range sum {
			avg := sum[l] / count[l]
			hit[l] = boolByte(count[l] > 0) & boolByte(abs32(avg) > threshold) & lane[l]
			anyHit |= hit[l]
		}
		if anyHit != 0 {
			for y := yTop; y < yTop+length; y++ {
				out := (*[4]byte)(scratch.PaddedRowBytes(y)[x0:])
				for l := range out {
					out[l] |= hit[l]
				}
			}
		}

		vals = (*[4]float32)(g.PaddedRow(yTop)[x0:])
		flags = (*[4]byte)(mask.PaddedRowBytes(yTop)[x0:])
		for l := range sum {
			keep := keepBits(flags[l])
			sum[l] -= selectValue(vals[l], keep)
			count[l] -= selectValue(1, keep)
		}
	}
}

func horizontal4(g *tfgrid.Grid, mask, scratch *tfgrid.Mask, length int, threshold float32) {
	for y0 := 0; y0 < g.Height(); y0 += 4 {
		horizontalBlock4(g, mask, scratch, y0, g.Height()-y0, length, threshold)
	}
}

// horizontalBlock4 advances rows [y0, y0+4) together. Rows past the height
// are zeroed padding rows and are masked out by lane validity.
func horizontalBlock4(g *tfgrid.Grid, mask, scratch *tfgrid.Mask, y0, valid, length int, threshold float32) {
	lane := laneValidity4(valid)
	var vals [4][]float32
	var flags, out [4][]byte
	for l := range vals {
		vals[l] = g.PaddedRow(y0 + l)
		flags[l] = mask.PaddedRowBytes(y0 + l)
		out[l] = scratch.PaddedRowBytes(y0 + l)
	}
	var sum, count [4]float32

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

		var hit [4]byte
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
