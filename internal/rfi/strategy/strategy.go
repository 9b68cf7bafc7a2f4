// Package strategy turns a set of SumThreshold operations into a complete
// flagging pass over one grid: it estimates the noise level, scales the
// per-length thresholds, runs the passes in order and removes small
// isolated regions.
package strategy

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/banshee-data/rfi.flagger/internal/rfi/sumthreshold"
	"github.com/banshee-data/rfi.flagger/internal/timeutil"
)

// ErrInvalidConfig is returned for configuration misuse.
var ErrInvalidConfig = errors.New("strategy: invalid configuration")

// Distribution selects the noise model used to scale thresholds.
type Distribution int

const (
	Gaussian Distribution = iota
	Rayleigh
	// None disables noise scaling; thresholds are multiplied by the
	// sensitivities alone.
	None
)

func (d Distribution) String() string {
	switch d {
	case Gaussian:
		return "gaussian"
	case Rayleigh:
		return "rayleigh"
	case None:
		return "none"
	}
	return fmt.Sprintf("distribution(%d)", int(d))
}

// ParseDistribution maps a configuration name to a Distribution.
func ParseDistribution(s string) (Distribution, error) {
	switch strings.ToLower(s) {
	case "gaussian", "":
		return Gaussian, nil
	case "rayleigh":
		return Rayleigh, nil
	case "none":
		return None, nil
	}
	return 0, fmt.Errorf("%w: unknown distribution %q", ErrInvalidConfig, s)
}

// Method selects the thresholding algorithm run for each operation.
type Method int

const (
	SumThreshold Method = iota
	VarThreshold
)

func (m Method) String() string {
	switch m {
	case SumThreshold:
		return "sum"
	case VarThreshold:
		return "var"
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// ParseMethod maps a configuration name to a Method.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(s) {
	case "sum", "sumthreshold", "":
		return SumThreshold, nil
	case "var", "varthreshold":
		return VarThreshold, nil
	}
	return 0, fmt.Errorf("%w: unknown method %q", ErrInvalidConfig, s)
}

// expFactor is the base of the threshold scaling law for a method.
func (m Method) expFactor() float64 {
	if m == VarThreshold {
		return 1.2
	}
	return 1.5
}

// Operation is one pass of the given window length. Threshold is in units
// of the noise level and is multiplied by the time or frequency factor at
// execution.
type Operation struct {
	Length    int     `json:"length"`
	Threshold float32 `json:"threshold"`
}

// ThresholdConfig holds the ordered operations for both axes and the
// parameters around them. The zero value is not usable; construct with
// NewThresholdConfig.
type ThresholdConfig struct {
	horizontal     []Operation
	vertical       []Operation
	distribution   Distribution
	method         Method
	minConnected   int
	eightConnected bool
	tier           sumthreshold.Tier
	clock          timeutil.Clock
}

// NewThresholdConfig returns a config with no operations, a Gaussian noise
// model, the sliding-sum method, no region filtering and the fastest tier
// the CPU supports.
func NewThresholdConfig() *ThresholdConfig {
	return &ThresholdConfig{
		distribution: Gaussian,
		method:       SumThreshold,
		minConnected: 1,
		tier:         sumthreshold.Best(),
		clock:        timeutil.RealClock{},
	}
}

// InitializeLengthsDefault sets count operations per axis with lengths
// 1, 2, 4, ... Zero or more than nine selects all nine lengths. Thresholds
// are reset to zero.
func (c *ThresholdConfig) InitializeLengthsDefault(count int) {
	if count <= 0 || count > len(sumthreshold.Lengths) {
		count = len(sumthreshold.Lengths)
	}
	c.horizontal = make([]Operation, count)
	c.vertical = make([]Operation, count)
	for i := 0; i < count; i++ {
		c.horizontal[i] = Operation{Length: sumthreshold.Lengths[i]}
		c.vertical[i] = Operation{Length: sumthreshold.Lengths[i]}
	}
}

// InitializeLengthsSingleSample appends a length-1 operation to each axis.
func (c *ThresholdConfig) InitializeLengthsSingleSample() {
	c.horizontal = append(c.horizontal, Operation{Length: 1})
	c.vertical = append(c.vertical, Operation{Length: 1})
}

// InitializeThresholdsFromFirstThreshold sets every threshold from the
// length-1 threshold using first * f^log2(length) / length, where f is 1.5
// for SumThreshold and 1.2 for VarThreshold. It also selects the noise
// distribution.
func (c *ThresholdConfig) InitializeThresholdsFromFirstThreshold(first float64, dist Distribution) {
	exp := c.method.expFactor()
	for i := range c.horizontal {
		c.horizontal[i].Threshold = scaledThreshold(first, exp, c.horizontal[i].Length)
	}
	for i := range c.vertical {
		c.vertical[i].Threshold = scaledThreshold(first, exp, c.vertical[i].Length)
	}
	c.distribution = dist
}

func scaledThreshold(first, exp float64, length int) float32 {
	l := float64(length)
	return float32(first * math.Pow(exp, math.Log2(l)) / l)
}

func (c *ThresholdConfig) HorizontalThreshold(i int) float32 { return c.horizontal[i].Threshold }
func (c *ThresholdConfig) VerticalThreshold(i int) float32   { return c.vertical[i].Threshold }
func (c *ThresholdConfig) HorizontalLength(i int) int        { return c.horizontal[i].Length }
func (c *ThresholdConfig) VerticalLength(i int) int          { return c.vertical[i].Length }

func (c *ThresholdConfig) SetHorizontalThreshold(i int, threshold float32) {
	c.horizontal[i].Threshold = threshold
}

func (c *ThresholdConfig) SetVerticalThreshold(i int, threshold float32) {
	c.vertical[i].Threshold = threshold
}

// HorizontalOperations returns the number of horizontal operations.
func (c *ThresholdConfig) HorizontalOperations() int { return len(c.horizontal) }

// VerticalOperations returns the number of vertical operations.
func (c *ThresholdConfig) VerticalOperations() int { return len(c.vertical) }

func (c *ThresholdConfig) RemoveHorizontalOperations() { c.horizontal = nil }
func (c *ThresholdConfig) RemoveVerticalOperations()   { c.vertical = nil }

// Operations returns copies of the horizontal and vertical operation lists.
func (c *ThresholdConfig) Operations() (horizontal, vertical []Operation) {
	return append([]Operation(nil), c.horizontal...), append([]Operation(nil), c.vertical...)
}

func (c *ThresholdConfig) Distribution() Distribution     { return c.distribution }
func (c *ThresholdConfig) SetDistribution(d Distribution) { c.distribution = d }

// Method returns the thresholding method.
func (c *ThresholdConfig) Method() Method { return c.method }

// SetMethod changes the method. Thresholds are not rescaled; call
// InitializeThresholdsFromFirstThreshold afterwards to apply the method's
// scaling law.
func (c *ThresholdConfig) SetMethod(m Method) { c.method = m }

func (c *ThresholdConfig) MinConnectedSamples() int     { return c.minConnected }
func (c *ThresholdConfig) SetMinConnectedSamples(n int) { c.minConnected = n }
func (c *ThresholdConfig) EightConnected() bool         { return c.eightConnected }
func (c *ThresholdConfig) SetEightConnected(v bool)     { c.eightConnected = v }
func (c *ThresholdConfig) Tier() sumthreshold.Tier      { return c.tier }
func (c *ThresholdConfig) SetTier(t sumthreshold.Tier)  { c.tier = t }

// SetClock replaces the clock used to time executions.
func (c *ThresholdConfig) SetClock(clock timeutil.Clock) {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	c.clock = clock
}

// Validate reports configuration errors: unsupported lengths, negative or
// non-finite thresholds, unknown enum values and a minimum region size
// below one.
func (c *ThresholdConfig) Validate() error {
	check := func(axis string, ops []Operation) error {
		for i, op := range ops {
			if !sumthreshold.ValidLength(op.Length) {
				return fmt.Errorf("%w: %s operation %d has unsupported length %d", ErrInvalidConfig, axis, i, op.Length)
			}
			t := float64(op.Threshold)
			if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
				return fmt.Errorf("%w: %s operation %d has threshold %v", ErrInvalidConfig, axis, i, op.Threshold)
			}
		}
		return nil
	}
	if err := check("horizontal", c.horizontal); err != nil {
		return err
	}
	if err := check("vertical", c.vertical); err != nil {
		return err
	}
	if c.minConnected < 1 {
		return fmt.Errorf("%w: minimum connected samples must be at least 1, got %d", ErrInvalidConfig, c.minConnected)
	}
	if c.distribution < Gaussian || c.distribution > None {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, c.distribution)
	}
	if c.method != SumThreshold && c.method != VarThreshold {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, c.method)
	}
	return nil
}
