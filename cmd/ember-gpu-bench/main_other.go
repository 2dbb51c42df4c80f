//go:build !windows

// Command ember-gpu-bench compares CPU and WebGPU forward-pass latency
// for the MNIST MLP. The WebGPU backend is only wired up on Windows.
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "ember-gpu-bench: WebGPU is only supported on Windows")
	os.Exit(1)
}
