package ops

import (
	"fmt"

	"github.com/ember-ml/ember/internal/tensor"
)

// ReLUOp records output = max(0, input).
//
// The gradient passes through where the input was positive and is
// zeroed elsewhere.
type ReLUOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewReLUOp creates a ReLUOp.
func NewReLUOp(input, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{input: input, output: output}
}

func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	mask := reluMask(op.input, backend.Device())
	defer outputGrad.Retain()()
	return []*tensor.RawTensor{backend.Mul(outputGrad, mask)}
}

func (op *ReLUOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *ReLUOp) Output() *tensor.RawTensor   { return op.output }

// reluMask builds a tensor with 1 where input > 0 and 0 elsewhere.
func reluMask(input *tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	mask, err := tensor.NewRaw(input.Shape(), input.DType(), device)
	if err != nil {
		panic(fmt.Sprintf("relu: failed to create mask: %v", err))
	}
	if input.DType() != tensor.Float32 {
		panic(fmt.Sprintf("relu: unsupported dtype %s", input.DType()))
	}

	src := input.AsFloat32()
	dst := mask.AsFloat32()
	for i, v := range src {
		if v > 0 {
			dst[i] = 1
		}
	}
	return mask
}
