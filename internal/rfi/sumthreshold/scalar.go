package sumthreshold

import "github.com/banshee-data/rfi.flagger/internal/rfi/tfgrid"

func horizontalScalar(g *tfgrid.Grid, mask, scratch *tfgrid.Mask, length int, threshold float32) {
	width := g.Width()
	for y := 0; y < g.Height(); y++ {
		vals := g.Row(y)
		flags := mask.Row(y)
		out := scratch.Row(y)

		var sum float32
		count := 0
		xRight := 0
		for ; xRight < length-1; xRight++ {
			if !flags[xRight] {
				sum += vals[xRight]
				count++
			}
		}
		for xLeft := 0; xRight < width; xLeft, xRight = xLeft+1, xRight+1 {
			if !flags[xRight] {
				sum += vals[xRight]
				count++
			}
			if count > 0 && abs32(sum/float32(count)) > threshold {
				window := out[xLeft : xLeft+length]
				for i := range window {
					window[i] = true
				}
			}
			if !flags[xLeft] {
				sum -= vals[xLeft]
				count--
			}
		}
	}
}

func verticalScalar(g *tfgrid.Grid, mask, scratch *tfgrid.Mask, length int, threshold float32) {
	height := g.Height()
	for x := 0; x < g.Width(); x++ {
		var sum float32
		count := 0
		yBottom := 0
		for ; yBottom < length-1; yBottom++ {
			if !mask.Value(x, yBottom) {
				sum += g.Value(x, yBottom)
				count++
			}
		}
		for yTop := 0; yBottom < height; yTop, yBottom = yTop+1, yBottom+1 {
			if !mask.Value(x, yBottom) {
				sum += g.Value(x, yBottom)
				count++
			}
			if count > 0 && abs32(sum/float32(count)) > threshold {
				scratch.SetVerticalValues(x, yTop, true, length)
			}
			if !mask.Value(x, yTop) {
				sum -= g.Value(x, yTop)
				count--
			}
		}
	}
}
