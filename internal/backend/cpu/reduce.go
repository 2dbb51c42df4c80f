package cpu

import (
	"fmt"
	"math"

	"github.com/ember-ml/ember/internal/tensor"
)

// Sum reduces all elements to a single-element tensor of shape [1].
func (c *Backend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result := c.newRaw("sum", tensor.Shape{1}, x.DType())

	switch x.DType() {
	case tensor.Float32:
		var sum float32
		for _, v := range x.AsFloat32() {
			sum += v
		}
		result.AsFloat32()[0] = sum
	case tensor.Int32:
		var sum int32
		for _, v := range x.AsInt32() {
			sum += v
		}
		result.AsInt32()[0] = sum
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}
	return result
}

// SumDim sums along dim. Negative dims index from the end. With keepDim
// the reduced dimension stays as size 1, otherwise it is removed.
func (c *Backend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("sumdim: dimension %d out of range for %dD tensor", dim, ndim))
	}
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("sumdim: unsupported dtype %s", x.DType()))
	}

	var outShape tensor.Shape
	if keepDim {
		outShape = shape.Clone()
		outShape[dim] = 1
	} else {
		outShape = make(tensor.Shape, 0, ndim-1)
		for i := 0; i < ndim; i++ {
			if i != dim {
				outShape = append(outShape, shape[i])
			}
		}
		if len(outShape) == 0 {
			outShape = tensor.Shape{1}
		}
	}

	result := c.newRaw("sumdim", outShape, tensor.Float32)
	src := x.AsFloat32()
	dst := result.AsFloat32()
	for i := range dst {
		dst[i] = 0
	}

	strides := shape.Strides()
	reduced := shape.Clone()
	reduced[dim] = 1
	outStrides := reduced.Strides()

	for i := 0; i < shape.NumElements(); i++ {
		outIdx := 0
		rem := i
		for d := 0; d < ndim; d++ {
			coord := rem / strides[d]
			rem %= strides[d]
			if d != dim {
				outIdx += coord * outStrides[d]
			}
		}
		dst[outIdx] += src[i]
	}
	return result
}

// Argmax returns the index of the maximum value along dim as an int32
// tensor with that dimension removed. Ties resolve to the lowest index.
func (c *Backend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("argmax: dimension %d out of range for %dD tensor", dim, ndim))
	}
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("argmax: unsupported dtype %s", x.DType()))
	}

	outShape := make(tensor.Shape, 0, ndim-1)
	for i := 0; i < ndim; i++ {
		if i != dim {
			outShape = append(outShape, shape[i])
		}
	}
	if len(outShape) == 0 {
		outShape = tensor.Shape{1}
	}

	result := c.newRaw("argmax", outShape, tensor.Int32)
	src := x.AsFloat32()
	dst := result.AsInt32()

	strides := shape.Strides()
	dimSize := shape[dim]
	dimStride := strides[dim]

	for group := range dst {
		baseIdx := 0
		rem := group
		for i := ndim - 1; i >= 0; i-- {
			if i == dim {
				continue
			}
			coord := rem % shape[i]
			rem /= shape[i]
			baseIdx += coord * strides[i]
		}

		maxVal := src[baseIdx]
		maxIdx := int32(0)
		for i := 1; i < dimSize; i++ {
			if v := src[baseIdx+i*dimStride]; v > maxVal {
				maxVal = v
				maxIdx = int32(i)
			}
		}
		dst[group] = maxIdx
	}
	return result
}

// Softmax normalizes values along dim to a probability distribution.
// The row maximum is subtracted before exponentiation for stability.
func (c *Backend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("softmax: dimension %d out of range for %dD tensor", dim, ndim))
	}
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("softmax: unsupported dtype %s", x.DType()))
	}

	result := c.newRaw("softmax", shape, tensor.Float32)
	src := x.AsFloat32()
	dst := result.AsFloat32()

	strides := shape.Strides()
	dimSize := shape[dim]
	dimStride := strides[dim]

	numRows := shape.NumElements() / dimSize
	for row := 0; row < numRows; row++ {
		baseIdx := 0
		rem := row
		for i := ndim - 1; i >= 0; i-- {
			if i == dim {
				continue
			}
			coord := rem % shape[i]
			rem /= shape[i]
			baseIdx += coord * strides[i]
		}

		maxVal := float32(math.Inf(-1))
		for i := 0; i < dimSize; i++ {
			if v := src[baseIdx+i*dimStride]; v > maxVal {
				maxVal = v
			}
		}

		var sum float32
		for i := 0; i < dimSize; i++ {
			idx := baseIdx + i*dimStride
			e := float32(math.Exp(float64(src[idx] - maxVal)))
			dst[idx] = e
			sum += e
		}
		for i := 0; i < dimSize; i++ {
			dst[baseIdx+i*dimStride] /= sum
		}
	}
	return result
}
