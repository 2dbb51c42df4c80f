// Package device resolves a device name from configuration into a
// concrete compute target, probing GPU availability at runtime.
package device

import (
	"fmt"

	"github.com/ember-ml/ember/internal/backend/webgpu"
	"github.com/ember-ml/ember/internal/tensor"
)

// Resolve maps a device name ("auto", "cpu" or "webgpu") to a tensor
// device. "auto" prefers WebGPU when a compatible adapter is present
// and falls back to the CPU otherwise. Requesting "webgpu" on a system
// without one is an error.
func Resolve(name string) (tensor.Device, error) {
	switch name {
	case "auto":
		if webgpu.IsAvailable() {
			return tensor.WebGPU, nil
		}
		return tensor.CPU, nil
	case "cpu":
		return tensor.CPU, nil
	case "webgpu":
		if !webgpu.IsAvailable() {
			return tensor.CPU, fmt.Errorf("webgpu requested but no adapter is available")
		}
		return tensor.WebGPU, nil
	default:
		return tensor.CPU, fmt.Errorf("unknown device %q (want auto, cpu or webgpu)", name)
	}
}
