// Package nn implements neural network building blocks.
//
// Modules compose into networks the PyTorch way:
//
//	model := nn.NewSequential[B](
//	    nn.NewFlatten[B](),
//	    nn.NewLinear(784, 512, rng, backend),
//	    nn.NewReLU[B](),
//	    nn.NewLinear(512, 10, rng, backend),
//	)
package nn

import (
	"github.com/ember-ml/ember/internal/tensor"
)

// Module is the interface every network component implements.
type Module[B tensor.Backend] interface {
	// Forward computes the module's output for the given input.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns the module's trainable parameters, nested
	// modules included. Parameter-free modules return nil.
	Parameters() []*Parameter[B]

	// StateDict returns the module's parameters keyed by name, for
	// checkpointing.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict copies values from a state dictionary into the
	// module's parameters. Missing keys and shape mismatches are
	// errors.
	LoadStateDict(state map[string]*tensor.RawTensor) error
}
