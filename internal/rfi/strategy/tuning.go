package strategy

import (
	"fmt"

	"github.com/banshee-data/rfi.flagger/internal/config"
	"github.com/banshee-data/rfi.flagger/internal/rfi/sumthreshold"
)

// FromTuning builds a ThresholdConfig from a strategy file. The first
// threshold is multiplied by base_sensitivity before the scaling law is
// applied. The time and frequency sensitivities and the additive flag are
// per-call arguments and are read from cfg by the caller.
func FromTuning(cfg *config.StrategyConfig) (*ThresholdConfig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	dist, err := ParseDistribution(cfg.GetDistribution())
	if err != nil {
		return nil, err
	}
	method, err := ParseMethod(cfg.GetMethod())
	if err != nil {
		return nil, err
	}
	tier, err := sumthreshold.ParseTier(cfg.GetTier())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	c := NewThresholdConfig()
	c.SetMethod(method)
	c.SetTier(tier)
	c.SetMinConnectedSamples(cfg.GetMinConnectedSamples())
	c.SetEightConnected(cfg.GetEightConnected())
	c.InitializeLengthsDefault(cfg.GetOperationCount())
	c.InitializeThresholdsFromFirstThreshold(cfg.GetFirstThreshold()*cfg.GetBaseSensitivity(), dist)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
