// Package model defines the network architectures used by the training
// and inference commands.
package model

import (
	"math/rand"

	"github.com/ember-ml/ember/internal/nn"
	"github.com/ember-ml/ember/internal/tensor"
)

// MNIST dimensions.
const (
	InputPixels = 28 * 28
	HiddenSize  = 512
	NumClasses  = 10
)

// NewMLP builds the MNIST classifier:
//
//	Flatten → Linear(784, 512) → ReLU → Linear(512, 512) → ReLU → Linear(512, 10) → ReLU
//
// Weights are Xavier-initialized from rng, biases start at zero.
func NewMLP[B tensor.Backend](rng *rand.Rand, backend B) *nn.Sequential[B] {
	return nn.NewSequential[B](
		nn.NewFlatten[B](),
		nn.NewLinear(InputPixels, HiddenSize, rng, backend),
		nn.NewReLU[B](),
		nn.NewLinear(HiddenSize, HiddenSize, rng, backend),
		nn.NewReLU[B](),
		nn.NewLinear(HiddenSize, NumClasses, rng, backend),
		nn.NewReLU[B](),
	)
}
