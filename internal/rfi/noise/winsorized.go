// Package noise estimates the background noise level of a time-frequency
// grid while ignoring flagged samples and the extreme tails of the
// distribution.
package noise

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/rfi.flagger/internal/rfi/tfgrid"
)

const (
	// winsorFraction is the share of samples clipped at each tail.
	winsorFraction = 0.1
	// gaussianCorrection restores the variance lost by clipping 10% at both
	// ends of a normal distribution.
	gaussianCorrection = 1.54
	// rayleighCorrection does the same for the mode of a Rayleigh
	// distribution with its top 10% clipped.
	rayleighCorrection = 1.0541
)

// Statistic is the result of one noise estimate.
type Statistic struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Mode   float64 `json:"mode"`
	// Count is the number of samples that contributed.
	Count int `json:"count"`
}

// WinsorizedMeanAndStdDev returns the winsorized mean and corrected standard
// deviation of all unflagged finite samples. It returns zeros when every
// sample is flagged.
func WinsorizedMeanAndStdDev(g *tfgrid.Grid, mask *tfgrid.Mask) (mean, stddev float64) {
	return WinsorizedSliceMeanAndStdDev(collect(g, mask, nil))
}

// WinsorizedMeanAndStdDevMissing is WinsorizedMeanAndStdDev where a sample is
// excluded when either mask is set.
func WinsorizedMeanAndStdDevMissing(g *tfgrid.Grid, maskA, maskB *tfgrid.Mask) (mean, stddev float64) {
	return WinsorizedSliceMeanAndStdDev(collect(g, maskA, maskB))
}

// WinsorizedSliceMeanAndStdDev computes the winsorized statistics of values.
// Non-finite entries must already be removed. values is reordered.
func WinsorizedSliceMeanAndStdDev(values []float64) (mean, stddev float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}
	slices.Sort(values)
	lowIndex := int(math.Floor(winsorFraction * float64(n)))
	highIndex := int(math.Ceil((1-winsorFraction)*float64(n))) - 1
	if highIndex < 0 {
		highIndex = 0
	}
	low, high := values[lowIndex], values[highIndex]
	for i, v := range values {
		values[i] = min(max(v, low), high)
	}
	mean, variance := stat.PopMeanVariance(values, nil)
	return mean, math.Sqrt(gaussianCorrection * variance)
}

// WinsorizedMode returns the Rayleigh mode estimate of all unflagged finite
// samples with the top 10% clipped, or 0 when every sample is flagged.
func WinsorizedMode(g *tfgrid.Grid, mask *tfgrid.Mask) float64 {
	return winsorizedSliceMode(collect(g, mask, nil))
}

// WinsorizedModeMissing is WinsorizedMode where a sample is excluded when
// either mask is set.
func WinsorizedModeMissing(g *tfgrid.Grid, maskA, maskB *tfgrid.Mask) float64 {
	return winsorizedSliceMode(collect(g, maskA, maskB))
}

func winsorizedSliceMode(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	slices.Sort(values)
	high := values[int(math.Floor((1-winsorFraction)*float64(n)))]
	var sum float64
	for _, v := range values {
		if v > high {
			v = high
		}
		sum += v * v
	}
	return math.Sqrt(sum/(2*float64(n))) * rayleighCorrection
}

// Estimate computes both statistics at once for reporting.
func Estimate(g *tfgrid.Grid, mask *tfgrid.Mask) Statistic {
	values := collect(g, mask, nil)
	s := Statistic{Count: len(values)}
	s.Mode = winsorizedSliceMode(slices.Clone(values))
	s.Mean, s.StdDev = WinsorizedSliceMeanAndStdDev(values)
	return s
}

// collect gathers unflagged finite samples. maskB may be nil.
func collect(g *tfgrid.Grid, maskA, maskB *tfgrid.Mask) []float64 {
	values := make([]float64, 0, g.Width()*g.Height())
	for y := 0; y < g.Height(); y++ {
		row := g.Row(y)
		flagsA := maskA.Row(y)
		var flagsB []bool
		if maskB != nil {
			flagsB = maskB.Row(y)
		}
		for x, v := range row {
			if flagsA[x] || (flagsB != nil && flagsB[x]) {
				continue
			}
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				continue
			}
			values = append(values, f)
		}
	}
	return values
}
