package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical strategy defaults file.
// This is the single source of truth for all default flagging parameters.
const DefaultConfigPath = "config/strategy.defaults.json"

// StrategyConfig is the JSON form of a flagging strategy. Fields omitted
// from the file stay nil and the Get* methods supply defaults, so partial
// files are safe.
type StrategyConfig struct {
	// Threshold scaling
	FirstThreshold       *float64 `json:"first_threshold,omitempty"`
	BaseSensitivity      *float64 `json:"base_sensitivity,omitempty"`
	TimeSensitivity      *float64 `json:"time_sensitivity,omitempty"`
	FrequencySensitivity *float64 `json:"frequency_sensitivity,omitempty"`
	OperationCount       *int     `json:"operation_count,omitempty"`

	// Noise model and method
	Distribution *string `json:"distribution,omitempty"` // gaussian, rayleigh or none
	Method       *string `json:"method,omitempty"`       // sum or var

	// Post-processing
	MinConnectedSamples *int  `json:"min_connected_samples,omitempty"`
	EightConnected      *bool `json:"eight_connected,omitempty"`
	Additive            *bool `json:"additive,omitempty"`

	// Execution
	Tier         *string `json:"tier,omitempty"` // auto, scalar, lanes4 or lanes8
	BatchWorkers *int    `json:"batch_workers,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyStrategyConfig returns a StrategyConfig with all fields set to nil.
func EmptyStrategyConfig() *StrategyConfig {
	return &StrategyConfig{}
}

// DefaultStrategyConfig returns a config with every field set to the value
// its getter falls back to.
func DefaultStrategyConfig() *StrategyConfig {
	c := EmptyStrategyConfig()
	return &StrategyConfig{
		FirstThreshold:       ptrFloat64(c.GetFirstThreshold()),
		BaseSensitivity:      ptrFloat64(c.GetBaseSensitivity()),
		TimeSensitivity:      ptrFloat64(c.GetTimeSensitivity()),
		FrequencySensitivity: ptrFloat64(c.GetFrequencySensitivity()),
		OperationCount:       ptrInt(c.GetOperationCount()),
		Distribution:         ptrString(c.GetDistribution()),
		Method:               ptrString(c.GetMethod()),
		MinConnectedSamples:  ptrInt(c.GetMinConnectedSamples()),
		EightConnected:       ptrBool(c.GetEightConnected()),
		Additive:             ptrBool(c.GetAdditive()),
		Tier:                 ptrString(c.GetTier()),
		BatchWorkers:         ptrInt(c.GetBatchWorkers()),
	}
}

// LoadStrategyConfig loads a StrategyConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadStrategyConfig(path string) (*StrategyConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseStrategyConfig(data)
}

// ParseStrategyConfig decodes and validates a JSON strategy document.
func ParseStrategyConfig(data []byte) (*StrategyConfig, error) {
	cfg := EmptyStrategyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *StrategyConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/rfi/strategy/
		"../../../../" + DefaultConfigPath, // from internal/rfi/storage/sqlite/
	}
	for _, path := range candidates {
		if cfg, err := LoadStrategyConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid. Names of
// distributions, methods and tiers are checked by the strategy package when
// it builds a ThresholdConfig.
func (c *StrategyConfig) Validate() error {
	if c.FirstThreshold != nil && *c.FirstThreshold <= 0 {
		return fmt.Errorf("first_threshold must be positive, got %f", *c.FirstThreshold)
	}
	if c.BaseSensitivity != nil && *c.BaseSensitivity <= 0 {
		return fmt.Errorf("base_sensitivity must be positive, got %f", *c.BaseSensitivity)
	}
	if c.TimeSensitivity != nil && *c.TimeSensitivity <= 0 {
		return fmt.Errorf("time_sensitivity must be positive, got %f", *c.TimeSensitivity)
	}
	if c.FrequencySensitivity != nil && *c.FrequencySensitivity <= 0 {
		return fmt.Errorf("frequency_sensitivity must be positive, got %f", *c.FrequencySensitivity)
	}
	if c.OperationCount != nil && (*c.OperationCount < 0 || *c.OperationCount > 9) {
		return fmt.Errorf("operation_count must be between 0 and 9, got %d", *c.OperationCount)
	}
	if c.MinConnectedSamples != nil && *c.MinConnectedSamples < 1 {
		return fmt.Errorf("min_connected_samples must be at least 1, got %d", *c.MinConnectedSamples)
	}
	if c.BatchWorkers != nil && *c.BatchWorkers < 0 {
		return fmt.Errorf("batch_workers must be non-negative, got %d", *c.BatchWorkers)
	}
	return nil
}

// GetFirstThreshold returns the first_threshold value or the default.
func (c *StrategyConfig) GetFirstThreshold() float64 {
	if c.FirstThreshold == nil {
		return 6.0
	}
	return *c.FirstThreshold
}

// GetBaseSensitivity returns the base_sensitivity value or the default.
func (c *StrategyConfig) GetBaseSensitivity() float64 {
	if c.BaseSensitivity == nil {
		return 1.0
	}
	return *c.BaseSensitivity
}

// GetTimeSensitivity returns the time_sensitivity value or the default.
func (c *StrategyConfig) GetTimeSensitivity() float64 {
	if c.TimeSensitivity == nil {
		return 1.0
	}
	return *c.TimeSensitivity
}

// GetFrequencySensitivity returns the frequency_sensitivity value or the default.
func (c *StrategyConfig) GetFrequencySensitivity() float64 {
	if c.FrequencySensitivity == nil {
		return 1.0
	}
	return *c.FrequencySensitivity
}

// GetOperationCount returns the operation_count value or the default.
// Zero means all nine lengths.
func (c *StrategyConfig) GetOperationCount() int {
	if c.OperationCount == nil {
		return 9
	}
	return *c.OperationCount
}

// GetDistribution returns the distribution value or the default.
func (c *StrategyConfig) GetDistribution() string {
	if c.Distribution == nil || *c.Distribution == "" {
		return "gaussian"
	}
	return *c.Distribution
}

// GetMethod returns the method value or the default.
func (c *StrategyConfig) GetMethod() string {
	if c.Method == nil || *c.Method == "" {
		return "sum"
	}
	return *c.Method
}

// GetMinConnectedSamples returns the min_connected_samples value or the default.
func (c *StrategyConfig) GetMinConnectedSamples() int {
	if c.MinConnectedSamples == nil {
		return 1
	}
	return *c.MinConnectedSamples
}

// GetEightConnected returns the eight_connected value or the default.
func (c *StrategyConfig) GetEightConnected() bool {
	if c.EightConnected == nil {
		return false
	}
	return *c.EightConnected
}

// GetAdditive returns the additive value or the default.
func (c *StrategyConfig) GetAdditive() bool {
	if c.Additive == nil {
		return true
	}
	return *c.Additive
}

// GetTier returns the tier value or the default.
func (c *StrategyConfig) GetTier() string {
	if c.Tier == nil || *c.Tier == "" {
		return "auto"
	}
	return *c.Tier
}

// GetBatchWorkers returns the batch_workers value or the default.
// Zero means one worker per CPU.
func (c *StrategyConfig) GetBatchWorkers() int {
	if c.BatchWorkers == nil {
		return 0
	}
	return *c.BatchWorkers
}
