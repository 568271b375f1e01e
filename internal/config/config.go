// Package config holds the tuning constants consumed by the cost model and
// route sequencer. Values are fixed at process start: defaults, optionally
// overlaid by a YAML file (CONFIG_PATH), never changed per request.
package config

import (
	"bytes"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"
)

// Config carries every named constant the core depends on.
type Config struct {
	// Travel model
	BaseSpeedKph       float64 `yaml:"baseSpeedKph"`
	AlpineElevationM   float64 `yaml:"alpineElevationM"`
	AlpineGradientM    float64 `yaml:"alpineGradientM"`
	AlpineSpeedPenalty float64 `yaml:"alpineSpeedPenalty"` // divisor on speed for alpine legs

	// Cost model
	AlpineFuelSurcharge float64 `yaml:"alpineFuelSurcharge"` // multiplier, 1.15 = +15%
	FuelPricePerLiter   float64 `yaml:"fuelPricePerLiter"`
	CarbonPricePerKg    float64 `yaml:"carbonPricePerKg"`
	DepreciationPerKm   float64 `yaml:"depreciationPerKm"`
	StandardShiftHours  float64 `yaml:"standardShiftHours"`
	OvertimeMultiplier  float64 `yaml:"overtimeMultiplier"`

	// Sequencer
	ExactSearchMaxStops int `yaml:"exactSearchMaxStops"` // permutation search at or below this stop count
	TwoOptMaxIterations int `yaml:"twoOptMaxIterations"` // bound on 2-opt improvement sweeps

	// Balanced objective weights over normalized duration/cost/CO2.
	BalancedDurationWeight float64 `yaml:"balancedDurationWeight"`
	BalancedCostWeight     float64 `yaml:"balancedCostWeight"`
	BalancedCO2Weight      float64 `yaml:"balancedCo2Weight"`
}

// Default returns the documented default configuration. Tests run against
// these values.
func Default() Config {
	return Config{
		BaseSpeedKph:           70,
		AlpineElevationM:       1000,
		AlpineGradientM:        500,
		AlpineSpeedPenalty:     1.25,
		AlpineFuelSurcharge:    1.15,
		FuelPricePerLiter:      1.75,
		CarbonPricePerKg:       0.09,
		DepreciationPerKm:      0.22,
		StandardShiftHours:     8,
		OvertimeMultiplier:     1.5,
		ExactSearchMaxStops:    8,
		TwoOptMaxIterations:    50,
		BalancedDurationWeight: 1.0 / 3.0,
		BalancedCostWeight:     1.0 / 3.0,
		BalancedCO2Weight:      1.0 / 3.0,
	}
}

// Load returns defaults overlaid by the YAML file at path when path is
// non-empty. Unknown keys are rejected so typos fail loudly at startup.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv loads from CONFIG_PATH when set, otherwise returns defaults.
func FromEnv() (Config, error) {
	return Load(os.Getenv("CONFIG_PATH"))
}

// Validate rejects configurations the cost model cannot price under.
func (c Config) Validate() error {
	if c.BaseSpeedKph <= 0 {
		return fmt.Errorf("baseSpeedKph must be > 0, got %v", c.BaseSpeedKph)
	}
	if c.AlpineSpeedPenalty < 1 {
		return fmt.Errorf("alpineSpeedPenalty must be >= 1, got %v", c.AlpineSpeedPenalty)
	}
	if c.AlpineFuelSurcharge < 1 {
		return fmt.Errorf("alpineFuelSurcharge must be >= 1, got %v", c.AlpineFuelSurcharge)
	}
	if c.FuelPricePerLiter < 0 || c.CarbonPricePerKg < 0 || c.DepreciationPerKm < 0 {
		return fmt.Errorf("prices and rates must be >= 0")
	}
	if c.StandardShiftHours <= 0 {
		return fmt.Errorf("standardShiftHours must be > 0, got %v", c.StandardShiftHours)
	}
	if c.OvertimeMultiplier < 1 {
		return fmt.Errorf("overtimeMultiplier must be >= 1, got %v", c.OvertimeMultiplier)
	}
	if c.ExactSearchMaxStops < 1 {
		return fmt.Errorf("exactSearchMaxStops must be >= 1, got %d", c.ExactSearchMaxStops)
	}
	if c.TwoOptMaxIterations < 1 {
		return fmt.Errorf("twoOptMaxIterations must be >= 1, got %d", c.TwoOptMaxIterations)
	}
	if c.BalancedDurationWeight < 0 || c.BalancedCostWeight < 0 || c.BalancedCO2Weight < 0 {
		return fmt.Errorf("balanced weights must be >= 0")
	}
	if c.BalancedDurationWeight+c.BalancedCostWeight+c.BalancedCO2Weight == 0 {
		return fmt.Errorf("at least one balanced weight must be > 0")
	}
	return nil
}
