// Package optim implements the optimizers used to train models.
//
// Optimizers take the gradient map produced by the autodiff tape and
// update parameters in place:
//
//	grads := backend.Tape().Backward(ones, backend)
//	optimizer.Step(grads)
//	backend.Tape().Clear()
package optim

import (
	"github.com/ember-ml/ember/internal/nn"
	"github.com/ember-ml/ember/internal/tensor"
)

// Optimizer updates parameters from a gradient map. The map is keyed by
// the parameter's RawTensor, as returned by GradientTape.Backward.
type Optimizer interface {
	// Step applies one update. Parameters without a gradient entry
	// are skipped.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// GetLR returns the current learning rate.
	GetLR() float32

	// SetLR updates the learning rate, for scheduling.
	SetLR(lr float32)

	// Name returns the optimizer name for logging and checkpoints.
	Name() string

	// StateDict exports internal state (momentum buffers and the
	// like) for checkpointing. Stateless configurations return an
	// empty map.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict restores internal state from a checkpoint.
	LoadStateDict(state map[string]*tensor.RawTensor) error
}

// getGradient looks up the gradient recorded for a parameter.
func getGradient[B tensor.Backend](param *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) *tensor.RawTensor {
	if param == nil {
		return nil
	}
	return grads[param.Tensor().Raw()]
}
