package strategy

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/banshee-data/rfi.flagger/internal/monitoring"
	"github.com/banshee-data/rfi.flagger/internal/rfi/morphology"
	"github.com/banshee-data/rfi.flagger/internal/rfi/noise"
	"github.com/banshee-data/rfi.flagger/internal/rfi/sumthreshold"
	"github.com/banshee-data/rfi.flagger/internal/rfi/tfgrid"
)

// Axis names the direction of a pass.
type Axis string

const (
	AxisHorizontal Axis = "horizontal"
	AxisVertical   Axis = "vertical"
)

// Pass records one executed operation.
type Pass struct {
	Axis      Axis    `json:"axis"`
	Length    int     `json:"length"`
	Threshold float32 `json:"threshold"`
	// Flagged is the total number of flagged samples after the pass.
	Flagged int `json:"flagged"`
}

// Result summarises one Execute call.
type Result struct {
	Noise           noise.Statistic `json:"noise"`
	TimeFactor      float64         `json:"time_factor"`
	FrequencyFactor float64         `json:"frequency_factor"`
	Passes          []Pass          `json:"passes"`
	// Filtered is the number of samples unflagged by the region filter.
	Filtered int           `json:"filtered"`
	Flagged  int           `json:"flagged"`
	Duration time.Duration `json:"duration_ns"`
}

// Execute flags g into mask. With additive unset the mask is cleared first,
// otherwise existing flags are kept and excluded from the noise estimate.
// The noise level is estimated once and multiplies every threshold:
// horizontal (time) thresholds by timeSensitivity and vertical (frequency)
// thresholds by freqSensitivity. Operations run in ascending index order,
// horizontal before vertical at each index, on the same evolving mask.
func (c *ThresholdConfig) Execute(g *tfgrid.Grid, mask *tfgrid.Mask, additive bool, timeSensitivity, freqSensitivity float64) (Result, error) {
	return c.execute(g, mask, nil, additive, timeSensitivity, freqSensitivity)
}

// ExecuteWithMissing is Execute where samples set in missing are treated as
// absent: they are left out of the noise estimate and the sliding windows
// step over them. Only the SumThreshold method supports missing samples.
func (c *ThresholdConfig) ExecuteWithMissing(g *tfgrid.Grid, mask, missing *tfgrid.Mask, additive bool, timeSensitivity, freqSensitivity float64) (Result, error) {
	if missing == nil {
		return Result{}, fmt.Errorf("%w: missing mask is nil", ErrInvalidConfig)
	}
	if c.method != SumThreshold {
		return Result{}, fmt.Errorf("%w: method %s does not support missing samples", ErrInvalidConfig, c.method)
	}
	return c.execute(g, mask, missing, additive, timeSensitivity, freqSensitivity)
}

func (c *ThresholdConfig) execute(g *tfgrid.Grid, mask, missing *tfgrid.Mask, additive bool, timeSensitivity, freqSensitivity float64) (Result, error) {
	start := c.clock.Now()
	if err := c.Validate(); err != nil {
		return Result{}, err
	}
	if !mask.SameSize(g) {
		return Result{}, fmt.Errorf("%w: grid %dx%d, mask %dx%d",
			sumthreshold.ErrSizeMismatch, g.Width(), g.Height(), mask.Width(), mask.Height())
	}
	if missing != nil && !missing.SameSize(g) {
		return Result{}, fmt.Errorf("%w: grid %dx%d, missing %dx%d",
			sumthreshold.ErrSizeMismatch, g.Width(), g.Height(), missing.Width(), missing.Height())
	}
	log := monitoring.Logger("strategy")

	if !g.AllFinite() {
		log.Debug().Msg("grid has non-finite samples, thresholding a finite copy")
		g = g.MakeFiniteCopy()
	}
	if !additive {
		mask.SetAll(false)
	}

	var res Result
	res.Noise = c.estimate(g, mask, missing)
	res.TimeFactor, res.FrequencyFactor = c.factors(res.Noise, timeSensitivity, freqSensitivity, log)

	scratch := tfgrid.NewMask(g.Width(), g.Height())
	n := max(len(c.horizontal), len(c.vertical))
	res.Passes = make([]Pass, 0, len(c.horizontal)+len(c.vertical))
	for i := 0; i < n; i++ {
		if i < len(c.horizontal) {
			op := c.horizontal[i]
			thr := float32(float64(op.Threshold) * res.TimeFactor)
			if err := c.pass(AxisHorizontal, g, mask, missing, scratch, op.Length, thr); err != nil {
				return res, err
			}
			res.Passes = append(res.Passes, Pass{Axis: AxisHorizontal, Length: op.Length, Threshold: thr, Flagged: mask.Count(true)})
		}
		if i < len(c.vertical) {
			op := c.vertical[i]
			thr := float32(float64(op.Threshold) * res.FrequencyFactor)
			if err := c.pass(AxisVertical, g, mask, missing, scratch, op.Length, thr); err != nil {
				return res, err
			}
			res.Passes = append(res.Passes, Pass{Axis: AxisVertical, Length: op.Length, Threshold: thr, Flagged: mask.Count(true)})
		}
	}

	res.Flagged = mask.Count(true)
	if c.minConnected > 1 {
		morphology.FilterConnectedSamples(mask, c.minConnected, c.eightConnected)
		after := mask.Count(true)
		res.Filtered = res.Flagged - after
		res.Flagged = after
	}
	res.Duration = c.clock.Since(start)

	if e := log.Debug(); e.Enabled() {
		e.Str("distribution", c.distribution.String()).
			Str("method", c.method.String()).
			Str("tier", c.tier.String()).
			Float64("stddev", res.Noise.StdDev).
			Float64("mode", res.Noise.Mode).
			Float64("time_factor", res.TimeFactor).
			Float64("frequency_factor", res.FrequencyFactor).
			Int("passes", len(res.Passes)).
			Int("filtered", res.Filtered).
			Int("flagged", res.Flagged).
			Dur("duration", res.Duration).
			Msg("flagging complete")
	}
	return res, nil
}

// estimate computes only the statistic the distribution needs.
func (c *ThresholdConfig) estimate(g *tfgrid.Grid, mask, missing *tfgrid.Mask) noise.Statistic {
	var s noise.Statistic
	switch c.distribution {
	case Gaussian:
		if missing == nil {
			s.Mean, s.StdDev = noise.WinsorizedMeanAndStdDev(g, mask)
		} else {
			s.Mean, s.StdDev = noise.WinsorizedMeanAndStdDevMissing(g, mask, missing)
		}
	case Rayleigh:
		if missing == nil {
			s.Mode = noise.WinsorizedMode(g, mask)
		} else {
			s.Mode = noise.WinsorizedModeMissing(g, mask, missing)
		}
	}
	return s
}

// factors scales the sensitivities by the noise level. A zero statistic
// (all samples flagged or constant data) leaves the sensitivities as they
// are.
func (c *ThresholdConfig) factors(s noise.Statistic, timeSensitivity, freqSensitivity float64, log *zerolog.Logger) (timeFactor, freqFactor float64) {
	var level float64
	switch c.distribution {
	case Gaussian:
		level = s.StdDev
	case Rayleigh:
		level = s.Mode
	}
	if level == 0 {
		if c.distribution != None {
			log.Debug().Str("distribution", c.distribution.String()).Msg("degenerate noise statistic, using sensitivities as factors")
		}
		return timeSensitivity, freqSensitivity
	}
	return level * timeSensitivity, level * freqSensitivity
}

func (c *ThresholdConfig) pass(axis Axis, g *tfgrid.Grid, mask, missing, scratch *tfgrid.Mask, length int, threshold float32) error {
	var err error
	switch {
	case c.method == VarThreshold && axis == AxisHorizontal:
		err = sumthreshold.VarHorizontal(g, mask, length, threshold)
	case c.method == VarThreshold:
		err = sumthreshold.VarVertical(g, mask, length, threshold)
	case missing != nil && axis == AxisHorizontal:
		err = sumthreshold.HorizontalMissing(g, mask, missing, scratch, length, threshold)
	case missing != nil:
		err = sumthreshold.VerticalMissing(g, mask, missing, scratch, length, threshold)
	case axis == AxisHorizontal:
		err = c.tier.Horizontal(g, mask, scratch, length, threshold)
	default:
		err = c.tier.Vertical(g, mask, scratch, length, threshold)
	}
	if err != nil {
		return fmt.Errorf("%s pass of length %d: %w", axis, length, err)
	}
	return nil
}
