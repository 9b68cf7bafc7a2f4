// Package testset builds synthetic time-frequency grids with known
// interference for tests, benchmarks and the command line tools.
//
// Every generator returns the injected interference as a truth Mask so
// callers can score a flagging run.
package testset

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/rfi.flagger/internal/rfi/tfgrid"
)

// Background selects the noise distribution of a generated grid.
type Background int

const (
	// Empty leaves every sample at zero.
	Empty Background = iota
	// Gaussian draws N(0, sigma) samples, as for real or imaginary
	// components of a visibility.
	Gaussian
	// Rayleigh draws amplitudes of complex Gaussian noise.
	Rayleigh
)

func (b Background) String() string {
	switch b {
	case Empty:
		return "empty"
	case Gaussian:
		return "gaussian"
	case Rayleigh:
		return "rayleigh"
	}
	return fmt.Sprintf("Background(%d)", int(b))
}

// ParseBackground maps a name produced by String back to its value.
func ParseBackground(s string) (Background, error) {
	for _, b := range []Background{Empty, Gaussian, Rayleigh} {
		if b.String() == s {
			return b, nil
		}
	}
	return Empty, fmt.Errorf("unknown background %q", s)
}

// Pattern selects which interference is injected.
type Pattern int

const (
	NoRFI Pattern = iota
	// SpectralLines adds ten constant narrowband channels of rising strength.
	SpectralLines
	// IntermittentSpectralLines adds twenty channels that are only on for a
	// random share of time steps.
	IntermittentSpectralLines
	// FullBandBursts adds short broadband bursts across all channels.
	FullBandBursts
	// HalfBandBursts adds the same bursts across the middle half of the band.
	HalfBandBursts
)

func (p Pattern) String() string {
	switch p {
	case NoRFI:
		return "none"
	case SpectralLines:
		return "spectral-lines"
	case IntermittentSpectralLines:
		return "intermittent-spectral-lines"
	case FullBandBursts:
		return "full-band-bursts"
	case HalfBandBursts:
		return "half-band-bursts"
	}
	return fmt.Sprintf("Pattern(%d)", int(p))
}

// ParsePattern maps a name produced by String back to its value.
func ParsePattern(s string) (Pattern, error) {
	for _, p := range []Pattern{NoRFI, SpectralLines, IntermittentSpectralLines, FullBandBursts, HalfBandBursts} {
		if p.String() == s {
			return p, nil
		}
	}
	return NoRFI, fmt.Errorf("unknown rfi pattern %q", s)
}

// Config describes one synthetic set.
type Config struct {
	Width      int
	Height     int
	Background Background
	Pattern    Pattern
	// Sigma scales the background noise. Zero means 1.
	Sigma float64
	// Strength scales the injected interference, in units of Sigma. Zero
	// means 1.
	Strength float64
	Seed     uint64
}

// Set is a generated grid together with the mask of samples that carry
// injected interference.
type Set struct {
	Grid  *tfgrid.Grid
	Truth *tfgrid.Mask
}

// Generate builds the set described by cfg. The same seed always yields the
// same samples.
func Generate(cfg Config) Set {
	sigma := cfg.Sigma
	if sigma == 0 {
		sigma = 1
	}
	strength := cfg.Strength
	if strength == 0 {
		strength = 1
	}
	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	g := MakeNoise(cfg.Width, cfg.Height, cfg.Background, sigma, src)
	truth := tfgrid.NewMaskFor(g, false)
	s := Set{Grid: g, Truth: truth}

	level := strength * sigma
	switch cfg.Pattern {
	case SpectralLines:
		for i := 0; i < 10; i++ {
			channel := ((i*2 + 1) * g.Height()) / 20
			AddSpectralLine(s, channel, level*(1+float64(i)*2/10))
		}
	case IntermittentSpectralLines:
		uniform := distuv.Uniform{Min: 0, Max: 1, Src: src}
		for i := 0; i < 20; i++ {
			channel := ((i*2 + 1) * g.Height()) / 40
			probability := float64(i+5) / 28
			for t := 0; t < g.Width(); t++ {
				if uniform.Rand() < probability {
					AddSpike(s, t, channel, 10*level)
				}
			}
		}
	case FullBandBursts:
		addBursts(s, 1, level)
	case HalfBandBursts:
		addBursts(s, 0.5, level)
	}
	return s
}

// MakeNoise returns a width x height grid drawn from the given background.
func MakeNoise(width, height int, bg Background, sigma float64, src rand.Source) *tfgrid.Grid {
	g := tfgrid.NewGrid(width, height)
	var draw func() float64
	switch bg {
	case Gaussian:
		draw = distuv.Normal{Mu: 0, Sigma: sigma, Src: src}.Rand
	case Rayleigh:
		// A Weibull with shape 2 and scale sigma*sqrt(2) is the Rayleigh
		// distribution with mode sigma.
		draw = distuv.Weibull{K: 2, Lambda: sigma * math.Sqrt2, Src: src}.Rand
	default:
		return g
	}
	buf := make([]float64, width)
	for y := 0; y < g.Height(); y++ {
		for x := range buf {
			buf[x] = draw()
		}
		row := g.Row(y)
		for x, v := range buf {
			row[x] = float32(v)
		}
	}
	return g
}

// AddSpectralLine adds strength to every time step of one channel.
func AddSpectralLine(s Set, channel int, strength float64) {
	AddBlock(s, 0, channel, s.Grid.Width(), channel+1, strength)
}

// AddBroadbandLine adds strength to duration time steps starting at
// startTime, across channels [startChannel, endChannel).
func AddBroadbandLine(s Set, startTime, duration, startChannel, endChannel int, strength float64) {
	AddBlock(s, startTime, startChannel, startTime+duration, endChannel, strength)
}

// AddBlock adds strength to the half-open rectangle [x0, x1) x [y0, y1),
// clipped to the grid, and marks it in the truth mask.
func AddBlock(s Set, x0, y0, x1, y1 int, strength float64) {
	x0, y0 = max(x0, 0), max(y0, 0)
	x1, y1 = min(x1, s.Grid.Width()), min(y1, s.Grid.Height())
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			AddSpike(s, x, y, strength)
		}
	}
}

// AddSpike adds strength to a single sample.
func AddSpike(s Set, x, y int, strength float64) {
	s.Grid.AddValue(x, y, float32(strength))
	if strength != 0 {
		s.Truth.SetValue(x, y, true)
	}
}

func addBursts(s Set, bandFraction, level float64) {
	height := float64(s.Grid.Height())
	step := s.Grid.Width() / 11
	fStart := int((0.5 - bandFraction/2) * height)
	fEnd := int((0.5 + bandFraction/2) * height)
	strengths := []float64{3.0, 2.5, 2.0, 1.8, 1.6}
	floats.Scale(level, strengths)
	for i, str := range strengths {
		AddBroadbandLine(s, step*(i+1), 3, fStart, fEnd, str)
		AddBroadbandLine(s, step*(i+6), 1, fStart, fEnd, str)
	}
}

// Score compares a flag mask with the truth mask of a set.
type Score struct {
	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	FalseNegatives int `json:"false_negatives"`
}

// Compare counts agreements between flags and truth. Both masks must have
// the same size.
func Compare(flags, truth *tfgrid.Mask) Score {
	var sc Score
	for y := 0; y < flags.Height(); y++ {
		f, t := flags.Row(y), truth.Row(y)
		for x := range f {
			switch {
			case f[x] && t[x]:
				sc.TruePositives++
			case f[x]:
				sc.FalsePositives++
			case t[x]:
				sc.FalseNegatives++
			}
		}
	}
	return sc
}

// Recall is the fraction of injected samples that were flagged.
func (s Score) Recall() float64 {
	total := s.TruePositives + s.FalseNegatives
	if total == 0 {
		return 1
	}
	return float64(s.TruePositives) / float64(total)
}

// Precision is the fraction of flagged samples that carry interference.
func (s Score) Precision() float64 {
	total := s.TruePositives + s.FalsePositives
	if total == 0 {
		return 1
	}
	return float64(s.TruePositives) / float64(total)
}
