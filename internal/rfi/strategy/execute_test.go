package strategy

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rfi.flagger/internal/rfi/sumthreshold"
	"github.com/banshee-data/rfi.flagger/internal/rfi/testset"
	"github.com/banshee-data/rfi.flagger/internal/rfi/tfgrid"
	"github.com/banshee-data/rfi.flagger/internal/timeutil"
)

func defaultConfig() *ThresholdConfig {
	c := NewThresholdConfig()
	c.InitializeLengthsDefault(0)
	c.InitializeThresholdsFromFirstThreshold(6, Gaussian)
	return c
}

// checkerboard returns a size x size grid of alternating +1 and -1. Its
// winsorized standard deviation is exactly sqrt(1.54) and no window of any
// length averages above 1.
func checkerboard(size int) *tfgrid.Grid {
	g := tfgrid.NewGrid(size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x+y)%2 == 0 {
				g.SetValue(x, y, 1)
			} else {
				g.SetValue(x, y, -1)
			}
		}
	}
	return g
}

func TestExecute_FlagsSpikeScaledByNoise(t *testing.T) {
	g := checkerboard(16)
	g.SetValue(8, 8, 20)
	mask := tfgrid.NewMask(16, 16)

	res, err := defaultConfig().Execute(g, mask, true, 2, 3)
	require.NoError(t, err)

	sigma := math.Sqrt(1.54)
	assert.InDelta(t, sigma, res.Noise.StdDev, 1e-9)
	assert.InDelta(t, 2*sigma, res.TimeFactor, 1e-9)
	assert.InDelta(t, 3*sigma, res.FrequencyFactor, 1e-9)
	assert.True(t, mask.Value(8, 8))
	assert.Equal(t, 1, res.Flagged)
	assert.Equal(t, 1, mask.Count(true))
}

func TestExecute_PassOrderAndThresholds(t *testing.T) {
	c := defaultConfig()
	g := checkerboard(16)
	mask := tfgrid.NewMask(16, 16)

	res, err := c.Execute(g, mask, true, 1, 1)
	require.NoError(t, err)
	require.Len(t, res.Passes, 18)
	for i, p := range res.Passes {
		op := i / 2
		if i%2 == 0 {
			assert.Equal(t, AxisHorizontal, p.Axis, "pass %d", i)
			assert.Equal(t, float32(float64(c.HorizontalThreshold(op))*res.TimeFactor), p.Threshold)
		} else {
			assert.Equal(t, AxisVertical, p.Axis, "pass %d", i)
			assert.Equal(t, float32(float64(c.VerticalThreshold(op))*res.FrequencyFactor), p.Threshold)
		}
		assert.Equal(t, 1<<op, p.Length)
	}
}

func TestExecute_MatchesManualSequence(t *testing.T) {
	set := testset.Generate(testset.Config{
		Width:      96,
		Height:     64,
		Background: testset.Gaussian,
		Pattern:    testset.IntermittentSpectralLines,
		Sigma:      1,
		Strength:   3,
		Seed:       7,
	})
	c := defaultConfig()
	c.SetTier(sumthreshold.Scalar)

	mask := tfgrid.NewMaskFor(set.Grid, false)
	res, err := c.Execute(set.Grid, mask, false, 1, 1)
	require.NoError(t, err)

	// Horizontal then vertical at each length, on one evolving mask.
	manual := tfgrid.NewMaskFor(set.Grid, false)
	for i := 0; i < c.HorizontalOperations(); i++ {
		h := float32(float64(c.HorizontalThreshold(i)) * res.TimeFactor)
		require.NoError(t, sumthreshold.Scalar.Horizontal(set.Grid, manual, nil, c.HorizontalLength(i), h))
		v := float32(float64(c.VerticalThreshold(i)) * res.FrequencyFactor)
		require.NoError(t, sumthreshold.Scalar.Vertical(set.Grid, manual, nil, c.VerticalLength(i), v))
	}
	assert.True(t, manual.Equal(mask), "Execute differs from the manual sequence")
	assert.Greater(t, res.Flagged, 0)
}

func TestExecute_TiersAgree(t *testing.T) {
	set := testset.Generate(testset.Config{
		Width:      70,
		Height:     45,
		Background: testset.Gaussian,
		Pattern:    testset.HalfBandBursts,
		Sigma:      1,
		Strength:   5,
		Seed:       3,
	})
	var want *tfgrid.Mask
	for _, tier := range sumthreshold.Tiers {
		c := defaultConfig()
		c.SetTier(tier)
		mask := tfgrid.NewMaskFor(set.Grid, false)
		_, err := c.Execute(set.Grid, mask, false, 1, 1)
		require.NoError(t, err)
		if want == nil {
			want = mask
			continue
		}
		assert.True(t, want.Equal(mask), "tier %s differs from scalar", tier)
	}
}

func TestExecute_DegenerateStatistic(t *testing.T) {
	for _, dist := range []Distribution{Gaussian, Rayleigh, None} {
		t.Run(dist.String(), func(t *testing.T) {
			// Almost all zeros: clipping leaves a zero statistic, so the
			// sensitivities are used as factors directly.
			g := tfgrid.NewZeroGrid(16, 16)
			g.SetValue(3, 3, 7)
			g.SetValue(5, 5, 5)

			c := defaultConfig()
			c.SetDistribution(dist)
			mask := tfgrid.NewMask(16, 16)
			res, err := c.Execute(g, mask, true, 1, 1)
			require.NoError(t, err)
			assert.Equal(t, 1.0, res.TimeFactor)
			assert.Equal(t, 1.0, res.FrequencyFactor)
			assert.True(t, mask.Value(3, 3))
			assert.False(t, mask.Value(5, 5))
			assert.Equal(t, 1, res.Flagged)

			mask = tfgrid.NewMask(16, 16)
			res, err = c.Execute(g, mask, true, 0.5, 0.5)
			require.NoError(t, err)
			assert.Equal(t, 0.5, res.TimeFactor)
			assert.True(t, mask.Value(5, 5))
			assert.Equal(t, 2, res.Flagged)
		})
	}
}

func TestExecute_AllFlagged(t *testing.T) {
	g := checkerboard(8)
	mask := tfgrid.NewSetMask(8, 8, true)
	res, err := defaultConfig().Execute(g, mask, true, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.TimeFactor)
	assert.Equal(t, 64, res.Flagged)
}

func TestExecute_Additive(t *testing.T) {
	g := checkerboard(16)

	mask := tfgrid.NewMask(16, 16)
	mask.SetValue(0, 0, true)
	_, err := defaultConfig().Execute(g, mask, true, 1, 1)
	require.NoError(t, err)
	assert.True(t, mask.Value(0, 0), "additive keeps existing flags")

	mask = tfgrid.NewMask(16, 16)
	mask.SetValue(0, 0, true)
	_, err = defaultConfig().Execute(g, mask, false, 1, 1)
	require.NoError(t, err)
	assert.False(t, mask.Value(0, 0), "non-additive clears the mask")
}

func TestExecute_NonFiniteInput(t *testing.T) {
	g := checkerboard(16)
	g.SetValue(2, 2, float32(math.NaN()))
	g.SetValue(9, 4, float32(math.Inf(1)))
	g.SetValue(12, 12, 30)
	mask := tfgrid.NewMask(16, 16)

	res, err := defaultConfig().Execute(g, mask, true, 1, 1)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(float64(g.Value(2, 2))), "input grid is not modified")
	assert.False(t, mask.Value(2, 2))
	assert.False(t, mask.Value(9, 4))
	assert.True(t, mask.Value(12, 12))
	assert.Equal(t, 1, res.Flagged)
}

func TestExecute_RegionFilter(t *testing.T) {
	g := checkerboard(16)
	g.SetValue(8, 8, 20)
	for y := 2; y < 4; y++ {
		for x := 2; x < 5; x++ {
			g.SetValue(x, y, 20)
		}
	}

	c := defaultConfig()
	c.SetMinConnectedSamples(3)
	mask := tfgrid.NewMask(16, 16)
	res, err := c.Execute(g, mask, true, 1, 1)
	require.NoError(t, err)
	assert.False(t, mask.Value(8, 8), "isolated sample removed")
	assert.True(t, mask.Value(3, 3), "group of six kept")
	assert.Equal(t, 1, res.Filtered)
	assert.Equal(t, 6, res.Flagged)
}

func TestExecute_VarThreshold(t *testing.T) {
	g := checkerboard(16)
	for y := 4; y < 8; y++ {
		for x := 4; x < 8; x++ {
			g.SetValue(x, y, 20)
		}
	}
	// Lengths 1 to 8 only: from length 16 on the scaled threshold drops
	// below the checkerboard's magnitude and every row would qualify.
	c := NewThresholdConfig()
	c.SetMethod(VarThreshold)
	c.InitializeLengthsDefault(4)
	c.InitializeThresholdsFromFirstThreshold(6, Gaussian)

	mask := tfgrid.NewMask(16, 16)
	res, err := c.Execute(g, mask, true, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 16, res.Flagged)
	assert.True(t, mask.Value(4, 4))
	assert.True(t, mask.Value(7, 7))
}

func TestExecuteWithMissing(t *testing.T) {
	g := checkerboard(16)
	g.SetValue(8, 8, 20)
	g.SetValue(3, 12, 20)
	missing := tfgrid.NewMask(16, 16)
	missing.SetValue(8, 8, true)

	mask := tfgrid.NewMask(16, 16)
	res, err := defaultConfig().ExecuteWithMissing(g, mask, missing, true, 1, 1)
	require.NoError(t, err)
	assert.False(t, mask.Value(8, 8), "missing samples are never flagged")
	assert.True(t, mask.Value(3, 12))
	assert.Equal(t, 1, res.Flagged)

	_, err = defaultConfig().ExecuteWithMissing(g, mask, nil, true, 1, 1)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	c := defaultConfig()
	c.SetMethod(VarThreshold)
	_, err = c.ExecuteWithMissing(g, mask, missing, true, 1, 1)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = defaultConfig().ExecuteWithMissing(g, mask, tfgrid.NewMask(4, 4), true, 1, 1)
	assert.True(t, errors.Is(err, sumthreshold.ErrSizeMismatch))
}

func TestExecute_Errors(t *testing.T) {
	g := checkerboard(8)

	_, err := defaultConfig().Execute(g, tfgrid.NewMask(8, 9), true, 1, 1)
	assert.True(t, errors.Is(err, sumthreshold.ErrSizeMismatch), "got %v", err)

	c := defaultConfig()
	c.SetMinConnectedSamples(0)
	mask := tfgrid.NewMask(8, 8)
	mask.SetValue(1, 1, true)
	_, err = c.Execute(g, mask, false, 1, 1)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.True(t, mask.Value(1, 1), "invalid configuration leaves the mask alone")
}

func TestExecute_Duration(t *testing.T) {
	c := defaultConfig()
	c.SetClock(timeutil.NewSteppingMockClock(time.Unix(0, 0), 5*time.Millisecond))
	res, err := c.Execute(checkerboard(8), tfgrid.NewMask(8, 8), true, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, res.Duration)
}

func TestExecuteBatch(t *testing.T) {
	jobs := make([]Job, 8)
	for i := range jobs {
		g := checkerboard(16)
		g.SetValue(i, i, 20)
		jobs[i] = Job{Grid: g, Mask: tfgrid.NewMask(16, 16), Additive: true, TimeSensitivity: 1, FrequencySensitivity: 1}
	}
	jobs[5].Missing = tfgrid.NewMask(16, 16)

	results, err := defaultConfig().ExecuteBatch(context.Background(), jobs, 3)
	require.NoError(t, err)
	require.Len(t, results, len(jobs))
	for i, res := range results {
		assert.Equal(t, 1, res.Flagged, "job %d", i)
		assert.True(t, jobs[i].Mask.Value(i, i), "job %d", i)
	}
}

func TestExecuteBatch_SharedGrid(t *testing.T) {
	g := checkerboard(16)
	g.SetValue(3, 7, 20)
	shared := tfgrid.NewShared(g)
	jobs := make([]Job, 4)
	for i := range jobs {
		if i > 0 {
			shared.Acquire()
		}
		jobs[i] = Job{Shared: shared, Mask: tfgrid.NewMask(16, 16), TimeSensitivity: 1, FrequencySensitivity: 1}
	}
	require.Equal(t, 4, shared.Refs())

	results, err := defaultConfig().ExecuteBatch(context.Background(), jobs, 2)
	require.NoError(t, err)
	for i, res := range results {
		assert.Equal(t, 1, res.Flagged, "job %d", i)
		assert.True(t, jobs[i].Mask.Value(3, 7), "job %d", i)
	}
	assert.Equal(t, 0, shared.Refs())
	assert.Nil(t, shared.Grid())
	assert.Equal(t, float32(20), g.Value(3, 7), "shared grid was modified")
}

func TestExecuteBatch_SharedGridReleasedOnError(t *testing.T) {
	shared := tfgrid.NewShared(checkerboard(8))
	shared.Acquire()
	jobs := []Job{
		{Shared: shared, Mask: tfgrid.NewMask(8, 8)},
		{Shared: shared, Mask: tfgrid.NewMask(4, 8)},
	}
	_, err := defaultConfig().ExecuteBatch(context.Background(), jobs, 1)
	assert.ErrorIs(t, err, sumthreshold.ErrSizeMismatch)
	assert.Equal(t, 0, shared.Refs())

	_, err = defaultConfig().ExecuteBatch(context.Background(), []Job{{Mask: tfgrid.NewMask(8, 8)}}, 1)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestExecuteBatch_Errors(t *testing.T) {
	jobs := []Job{
		{Grid: checkerboard(8), Mask: tfgrid.NewMask(8, 8)},
		{Grid: checkerboard(8), Mask: tfgrid.NewMask(8, 8)},
		{Grid: checkerboard(8), Mask: tfgrid.NewMask(4, 8)},
	}
	_, err := defaultConfig().ExecuteBatch(context.Background(), jobs, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sumthreshold.ErrSizeMismatch))
	assert.True(t, strings.Contains(err.Error(), "job 2"), "got %v", err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = defaultConfig().ExecuteBatch(ctx, jobs[:2], 1)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}
