// Package config holds the runtime knobs for a run. Everything is an
// explicit value passed down from the command line; there is no
// process-wide configuration state.
package config

import (
	"errors"
	"fmt"
)

// Config captures one run's settings.
type Config struct {
	DataDir    string
	Checkpoint string
	Epochs     int
	BatchSize  int
	LR         float64
	Optimizer  string
	Device     string
	LogEvery   int
	Download   bool
	Synthetic  bool
	Shuffle    bool
	Seed       int64
}

// Default returns the configuration the commands start from.
func Default() Config {
	return Config{
		DataDir:    "./data",
		Checkpoint: "basic-mnist.ember",
		Epochs:     5,
		BatchSize:  64,
		LR:         1e-3,
		Optimizer:  "sgd",
		Device:     "auto",
		LogEvery:   100,
		Download:   true,
		Seed:       1,
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.DataDir == "" && !c.Synthetic {
		return errors.New("data directory must be set unless running synthetic")
	}
	if c.Checkpoint == "" {
		return errors.New("checkpoint path must be set")
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be > 0 (got %d)", c.BatchSize)
	}
	if c.LR <= 0 {
		return fmt.Errorf("learning rate must be > 0 (got %g)", c.LR)
	}
	switch c.Optimizer {
	case "sgd", "adam":
	default:
		return fmt.Errorf("unknown optimizer %q (want sgd or adam)", c.Optimizer)
	}
	switch c.Device {
	case "auto", "cpu", "webgpu":
	default:
		return fmt.Errorf("unknown device %q (want auto, cpu or webgpu)", c.Device)
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 100
	}
	return nil
}
