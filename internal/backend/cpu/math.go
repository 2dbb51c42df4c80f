package cpu

import (
	"fmt"
	"math"

	"github.com/ember-ml/ember/internal/tensor"
)

// MulScalar multiplies each element by s.
func (c *Backend) MulScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("mulscalar: unsupported dtype %s", x.DType()))
	}

	if x.IsUnique() {
		data := x.AsFloat32()
		for i := range data {
			data[i] *= s
		}
		return x
	}

	result := c.newRaw("mulscalar", x.Shape(), tensor.Float32)
	src := x.AsFloat32()
	dst := result.AsFloat32()
	for i, v := range src {
		dst[i] = v * s
	}
	return result
}

// Exp computes the element-wise exponential.
func (c *Backend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("exp: unsupported dtype %s", x.DType()))
	}

	result := c.newRaw("exp", x.Shape(), tensor.Float32)
	src := x.AsFloat32()
	dst := result.AsFloat32()
	for i, v := range src {
		dst[i] = float32(math.Exp(float64(v)))
	}
	return result
}

// ReLU computes element-wise max(0, x).
func (c *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("relu: unsupported dtype %s", x.DType()))
	}

	result := c.newRaw("relu", x.Shape(), tensor.Float32)
	src := x.AsFloat32()
	dst := result.AsFloat32()
	for i, v := range src {
		if v > 0 {
			dst[i] = v
		}
	}
	return result
}

// Log computes the element-wise natural logarithm. Non-positive inputs
// yield -Inf or NaN.
func (c *Backend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("log: unsupported dtype %s", x.DType()))
	}

	result := c.newRaw("log", x.Shape(), tensor.Float32)
	src := x.AsFloat32()
	dst := result.AsFloat32()
	for i, v := range src {
		dst[i] = float32(math.Log(float64(v)))
	}
	return result
}
