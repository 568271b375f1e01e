package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("baseSpeedKph: 80\nexactSearchMaxStops: 5\nalpineFuelSurcharge: 1.2\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseSpeedKph != 80 {
		t.Fatalf("baseSpeedKph: got %v", cfg.BaseSpeedKph)
	}
	if cfg.ExactSearchMaxStops != 5 {
		t.Fatalf("exactSearchMaxStops: got %d", cfg.ExactSearchMaxStops)
	}
	if cfg.AlpineFuelSurcharge != 1.2 {
		t.Fatalf("alpineFuelSurcharge: got %v", cfg.AlpineFuelSurcharge)
	}
	// Untouched keys keep their defaults.
	if cfg.OvertimeMultiplier != 1.5 {
		t.Fatalf("overtimeMultiplier: got %v", cfg.OvertimeMultiplier)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("baseSpedKph: 80\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("typo key must fail loudly")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("missing file must error")
	}
	if _, err := Load(""); err != nil {
		t.Fatalf("empty path means defaults: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.BaseSpeedKph = 0 },
		func(c *Config) { c.AlpineSpeedPenalty = 0.9 },
		func(c *Config) { c.AlpineFuelSurcharge = 0.5 },
		func(c *Config) { c.FuelPricePerLiter = -1 },
		func(c *Config) { c.StandardShiftHours = 0 },
		func(c *Config) { c.OvertimeMultiplier = 0.5 },
		func(c *Config) { c.ExactSearchMaxStops = 0 },
		func(c *Config) { c.TwoOptMaxIterations = 0 },
		func(c *Config) { c.BalancedCostWeight = -0.1 },
		func(c *Config) {
			c.BalancedDurationWeight = 0
			c.BalancedCostWeight = 0
			c.BalancedCO2Weight = 0
		},
	}
	for i, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
