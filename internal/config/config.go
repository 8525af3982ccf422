package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Policy holds the tunable financial rules of the engine.
type Policy struct {
	Conversion ConversionConfig `toml:"conversion"`
	Tolerance  ToleranceConfig  `toml:"tolerance"`
	Orders     OrdersConfig     `toml:"orders"`
	Recalc     RecalcConfig     `toml:"recalc"`
}

// ConversionConfig drives the legacy budget upgrade heuristics.
type ConversionConfig struct {
	PreConstructionPct float64 `toml:"pre_construction_pct"`
	IndirectPct        float64 `toml:"indirect_pct"`
}

// ToleranceConfig bounds rounding drift in budget arithmetic.
type ToleranceConfig struct {
	AbsoluteCents float64 `toml:"absolute"`
	RelativePct   float64 `toml:"relative_pct"`
}

// OrdersConfig holds purchase order response settings.
type OrdersConfig struct {
	ResponseTokenTTLHours int `toml:"response_token_ttl_hours"`
}

// RecalcConfig holds recalculation worker settings.
type RecalcConfig struct {
	Workers    int `toml:"workers"`
	QueueSize  int `toml:"queue_size"`
	TimeoutSec int `toml:"timeout_sec"`
}

// DefaultPolicy returns the policy used when no file is present.
func DefaultPolicy() Policy {
	return Policy{
		Conversion: ConversionConfig{
			PreConstructionPct: 0.05,
			IndirectPct:        0.05,
		},
		Tolerance: ToleranceConfig{
			AbsoluteCents: 0.01,
			RelativePct:   0.01,
		},
		Orders: OrdersConfig{
			ResponseTokenTTLHours: 168,
		},
		Recalc: RecalcConfig{
			Workers:    4,
			QueueSize:  256,
			TimeoutSec: 30,
		},
	}
}

// Load reads the policy file, returning defaults if it doesn't exist.
func Load(path string) (Policy, error) {
	cfg := DefaultPolicy()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading policy file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing policy file: %w", err)
	}

	return cfg, nil
}

// Save writes the policy to disk.
func Save(path string, cfg Policy) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating policy file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}
