//go:build windows

// Package webgpu runs the hot forward ops on the GPU through WebGPU
// compute shaders, using go-webgpu's zero-CGO bindings. Operations the
// shaders do not cover fall back to the CPU backend, so the type
// satisfies the full tensor.Backend interface.
package webgpu

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/ember-ml/ember/internal/backend/cpu"
	"github.com/ember-ml/ember/internal/tensor"
)

// Backend dispatches float32 elementwise ops, matmul, transpose and
// ReLU to the GPU. Everything else delegates to an embedded CPU
// backend.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline
	mu        sync.RWMutex

	adapterInfo *wgpu.AdapterInfo
	cpu         *cpu.Backend
}

// New initializes WebGPU. It returns an error when the native library
// or an adapter is unavailable; callers fall back to the CPU backend.
func New() (backend *Backend, err error) {
	// RequestAdapter panics when wgpu_native cannot be loaded.
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: request adapter: %w", adapterErr)
	}

	adapterInfo := adapter.GetInfo()

	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: request device: %w", deviceErr)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: no device queue")
	}

	return &Backend{
		instance:    instance,
		adapter:     adapter,
		device:      device,
		queue:       queue,
		shaders:     make(map[string]*wgpu.ShaderModule),
		pipelines:   make(map[string]*wgpu.ComputePipeline),
		adapterInfo: &adapterInfo,
		cpu:         cpu.New(),
	}, nil
}

// IsAvailable probes for a usable WebGPU adapter.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}

// Release frees all GPU resources. The backend must not be used after.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, p := range b.pipelines {
		p.Release()
	}
	b.pipelines = nil
	for _, s := range b.shaders {
		s.Release()
	}
	b.shaders = nil

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// Name identifies the adapter.
func (b *Backend) Name() string {
	if b.adapterInfo != nil {
		return fmt.Sprintf("WebGPU (%s)", b.adapterInfo.Name)
	}
	return "WebGPU"
}

// Device reports WebGPU.
func (b *Backend) Device() tensor.Device {
	return tensor.WebGPU
}

// gpuEligible reports whether a binary op can run on the GPU path:
// same-shape float32 with no broadcasting.
func gpuEligible(a, other *tensor.RawTensor) bool {
	return a.DType() == tensor.Float32 &&
		other.DType() == tensor.Float32 &&
		a.Shape().Equal(other.Shape())
}

func binaryShader(op string) string {
	return strings.Replace(binaryShaderTemplate, "OP", op, 1)
}

// Add performs element-wise addition.
func (b *Backend) Add(a, other *tensor.RawTensor) *tensor.RawTensor {
	if !gpuEligible(a, other) {
		return b.cpu.Add(a, other)
	}
	result, err := b.runBinaryOp(a, other, "add", binaryShader("+"))
	if err != nil {
		panic("webgpu: Add: " + err.Error())
	}
	return result
}

// Sub performs element-wise subtraction.
func (b *Backend) Sub(a, other *tensor.RawTensor) *tensor.RawTensor {
	if !gpuEligible(a, other) {
		return b.cpu.Sub(a, other)
	}
	result, err := b.runBinaryOp(a, other, "sub", binaryShader("-"))
	if err != nil {
		panic("webgpu: Sub: " + err.Error())
	}
	return result
}

// Mul performs element-wise multiplication.
func (b *Backend) Mul(a, other *tensor.RawTensor) *tensor.RawTensor {
	if !gpuEligible(a, other) {
		return b.cpu.Mul(a, other)
	}
	result, err := b.runBinaryOp(a, other, "mul", binaryShader("*"))
	if err != nil {
		panic("webgpu: Mul: " + err.Error())
	}
	return result
}

// Div performs element-wise division.
func (b *Backend) Div(a, other *tensor.RawTensor) *tensor.RawTensor {
	if !gpuEligible(a, other) {
		return b.cpu.Div(a, other)
	}
	result, err := b.runBinaryOp(a, other, "div", binaryShader("/"))
	if err != nil {
		panic("webgpu: Div: " + err.Error())
	}
	return result
}

// MatMul performs 2-D matrix multiplication on the GPU.
func (b *Backend) MatMul(a, other *tensor.RawTensor) *tensor.RawTensor {
	result, err := b.runMatMul(a, other)
	if err != nil {
		panic("webgpu: MatMul: " + err.Error())
	}
	return result
}

// Transpose runs 2-D transposes on the GPU and delegates higher-rank
// permutations to the CPU backend.
func (b *Backend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	simple2D := len(t.Shape()) == 2 && t.DType() == tensor.Float32 &&
		(len(axes) == 0 || (len(axes) == 2 && axes[0] == 1 && axes[1] == 0))
	if !simple2D {
		return b.cpu.Transpose(t, axes...)
	}
	result, err := b.runTranspose(t)
	if err != nil {
		panic("webgpu: Transpose: " + err.Error())
	}
	return result
}

// ReLU computes max(0, x) on the GPU.
func (b *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic("webgpu: ReLU: only float32 is supported")
	}
	result, err := b.runUnaryOp(x, "relu", reluShader)
	if err != nil {
		panic("webgpu: ReLU: " + err.Error())
	}
	return result
}

// Remaining operations delegate to the CPU backend.

func (b *Backend) Reshape(t *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	return b.cpu.Reshape(t, shape)
}

func (b *Backend) MulScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	return b.cpu.MulScalar(x, s)
}

func (b *Backend) Exp(x *tensor.RawTensor) *tensor.RawTensor { return b.cpu.Exp(x) }

func (b *Backend) Log(x *tensor.RawTensor) *tensor.RawTensor { return b.cpu.Log(x) }

func (b *Backend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.cpu.Softmax(x, dim)
}

func (b *Backend) Sum(x *tensor.RawTensor) *tensor.RawTensor { return b.cpu.Sum(x) }

func (b *Backend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return b.cpu.SumDim(x, dim, keepDim)
}

func (b *Backend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.cpu.Argmax(x, dim)
}
