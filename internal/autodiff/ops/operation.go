// Package ops defines the differentiable operations recorded on the
// gradient tape. Each operation keeps references to its forward inputs
// and output and knows how to turn an output gradient into input
// gradients.
package ops

import "github.com/ember-ml/ember/internal/tensor"

// Operation is one node of the recorded computation graph.
type Operation interface {
	// Backward computes gradients for the inputs given the gradient of
	// the output, one entry per input tensor.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the forward-pass input tensors.
	Inputs() []*tensor.RawTensor

	// Output returns the forward-pass output tensor.
	Output() *tensor.RawTensor
}
