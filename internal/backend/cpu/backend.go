// Package cpu implements tensor operations on the host CPU.
package cpu

import (
	"fmt"

	"github.com/ember-ml/ember/internal/parallel"
	"github.com/ember-ml/ember/internal/tensor"
)

// Backend runs every tensor operation on the CPU. Element-wise kernels
// reuse the destination buffer in place when the left operand holds the
// only reference to its data.
type Backend struct {
	device   tensor.Device
	parallel parallel.Config
	blockK   int
}

// New creates a CPU backend sized to the local machine.
func New() *Backend {
	return &Backend{
		device:   tensor.CPU,
		parallel: parallel.DefaultConfig(),
		blockK:   matmulBlockSize(),
	}
}

// Name returns the backend name.
func (c *Backend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (c *Backend) Device() tensor.Device {
	return c.device
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (c *Backend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("add", a, b, addKind)
}

// Sub performs element-wise subtraction with broadcasting.
func (c *Backend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("sub", a, b, subKind)
}

// Mul performs element-wise multiplication with broadcasting.
func (c *Backend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("mul", a, b, mulKind)
}

// Div performs element-wise division with broadcasting.
func (c *Backend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("div", a, b, divKind)
}

func (c *Backend) binary(name string, a, b *tensor.RawTensor, kind opKind) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.Broadcast(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", name, a.DType(), b.DType()))
	}

	if !needsBroadcast {
		// Same shape. Reuse a's buffer when nothing else holds it.
		if a.IsUnique() {
			switch a.DType() {
			case tensor.Float32:
				ewiseInplace(a.AsFloat32(), b.AsFloat32(), kind)
			case tensor.Int32:
				ewiseInplace(a.AsInt32(), b.AsInt32(), kind)
			default:
				panic(fmt.Sprintf("%s: unsupported dtype %s", name, a.DType()))
			}
			return a
		}

		result := c.newRaw(name, outShape, a.DType())
		switch a.DType() {
		case tensor.Float32:
			ewise(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), kind)
		case tensor.Int32:
			ewise(result.AsInt32(), a.AsInt32(), b.AsInt32(), kind)
		default:
			panic(fmt.Sprintf("%s: unsupported dtype %s", name, a.DType()))
		}
		return result
	}

	result := c.newRaw(name, outShape, a.DType())
	switch a.DType() {
	case tensor.Float32:
		ewiseBroadcast(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), a.Shape(), b.Shape(), outShape, kind)
	case tensor.Int32:
		ewiseBroadcast(result.AsInt32(), a.AsInt32(), b.AsInt32(), a.Shape(), b.Shape(), outShape, kind)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, a.DType()))
	}
	return result
}

func (c *Backend) newRaw(name string, shape tensor.Shape, dtype tensor.DataType) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, dtype, c.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", name, err))
	}
	return result
}
