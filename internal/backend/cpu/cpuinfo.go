package cpu

import (
	"fmt"

	"github.com/klauspost/cpuid/v2"
)

// matmulBlockSize picks a K-dimension block so that one block of each
// operand row fits in the L1 data cache. Falls back to 256 when cache
// sizes are unknown (some VMs report -1).
func matmulBlockSize() int {
	l1 := cpuid.CPU.Cache.L1D
	if l1 <= 0 {
		return 256
	}
	// Three float32 panels (a row block, b column block, c row) share L1.
	block := l1 / (3 * 4)
	if block < 64 {
		return 64
	}
	if block > 1024 {
		return 1024
	}
	return block
}

// DeviceInfo describes the host CPU for logging.
func DeviceInfo() string {
	name := cpuid.CPU.BrandName
	if name == "" {
		name = "unknown CPU"
	}
	return fmt.Sprintf("%s (%d cores)", name, cpuid.CPU.LogicalCores)
}
