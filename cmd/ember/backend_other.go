//go:build !windows

package main

import (
	"fmt"

	"github.com/ember-ml/ember/internal/autodiff"
	"github.com/ember-ml/ember/internal/backend/cpu"
	"github.com/ember-ml/ember/internal/config"
	"github.com/ember-ml/ember/internal/tensor"
)

func run(cmd string, cfg *config.Config, index int, _ tensor.Device) error {
	fmt.Printf("Processor: %s\n", cpu.DeviceInfo())
	return runCommand(cmd, cfg, index, autodiff.New(cpu.New()))
}
