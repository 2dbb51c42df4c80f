//go:build windows

package main

import (
	"fmt"

	"github.com/ember-ml/ember/internal/autodiff"
	"github.com/ember-ml/ember/internal/backend/cpu"
	"github.com/ember-ml/ember/internal/backend/webgpu"
	"github.com/ember-ml/ember/internal/config"
	"github.com/ember-ml/ember/internal/tensor"
)

func run(cmd string, cfg *config.Config, index int, dev tensor.Device) error {
	if dev == tensor.WebGPU {
		gpu, err := webgpu.New()
		if err != nil {
			return fmt.Errorf("webgpu: %w", err)
		}
		defer gpu.Release()
		fmt.Printf("Adapter: %s\n", gpu.Name())
		return runCommand(cmd, cfg, index, autodiff.New(gpu))
	}
	fmt.Printf("Processor: %s\n", cpu.DeviceInfo())
	return runCommand(cmd, cfg, index, autodiff.New(cpu.New()))
}
