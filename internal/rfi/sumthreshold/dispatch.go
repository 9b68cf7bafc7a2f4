package sumthreshold

import (
	"fmt"
	"sync"

	"github.com/klauspost/cpuid/v2"
)

// Tier selects an implementation of the sliding-window passes.
type Tier int

const (
	Scalar Tier = iota
	Lanes4
	Lanes8
)

// Tiers lists every tier, narrowest first. All of them run on any CPU.
var Tiers = []Tier{Scalar, Lanes4, Lanes8}

func (t Tier) String() string {
	switch t {
	case Scalar:
		return "scalar"
	case Lanes4:
		return "lanes4"
	case Lanes8:
		return "lanes8"
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// ParseTier accepts a name produced by String, or "auto" (and the empty
// string) for Best.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "", "auto":
		return Best(), nil
	case "scalar":
		return Scalar, nil
	case "lanes4":
		return Lanes4, nil
	case "lanes8":
		return Lanes8, nil
	}
	return Scalar, fmt.Errorf("unknown tier %q", s)
}

var (
	bestOnce sync.Once
	bestTier Tier
)

// Best returns the tier matching the widest vector unit reported by the CPU:
// Lanes8 with AVX2, Lanes4 with SSE2 or NEON, Scalar otherwise.
func Best() Tier {
	bestOnce.Do(func() {
		bestTier = detectTier(cpuid.CPU.Supports)
	})
	return bestTier
}

func detectTier(supports func(...cpuid.FeatureID) bool) Tier {
	switch {
	case supports(cpuid.AVX2):
		return Lanes8
	case supports(cpuid.SSE2), supports(cpuid.ASIMD):
		return Lanes4
	}
	return Scalar
}
