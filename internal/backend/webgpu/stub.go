//go:build !windows

// Package webgpu runs the hot forward ops on the GPU through WebGPU
// compute shaders. The native wgpu library ships for windows only, so
// other platforms get this stub and resolve to the CPU backend.
package webgpu

import "errors"

// Backend is unavailable on this platform.
type Backend struct{}

// New always fails on platforms without the native WebGPU library.
func New() (*Backend, error) {
	return nil, errors.New("webgpu: not supported on this platform")
}

// IsAvailable reports false on platforms without the native library.
func IsAvailable() bool {
	return false
}
