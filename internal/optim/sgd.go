package optim

import (
	"fmt"

	"github.com/ember-ml/ember/internal/nn"
	"github.com/ember-ml/ember/internal/tensor"
)

// SGD implements stochastic gradient descent with optional momentum.
//
// Without momentum: param -= lr * grad.
// With momentum: velocity = momentum*velocity + grad, param -= lr*velocity.
type SGD[B tensor.Backend] struct {
	params     []*nn.Parameter[B]
	lr         float32
	momentum   float32
	velocities map[int][]float32 // keyed by parameter index
}

// SGDConfig configures an SGD optimizer.
type SGDConfig struct {
	LR       float32 // learning rate, default 0.01
	Momentum float32 // momentum factor in [0, 1), default 0
}

// NewSGD creates an SGD optimizer over the given parameters.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig) *SGD[B] {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD[B]{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[int][]float32),
	}
}

// Step applies one gradient descent update to every parameter that
// received a gradient.
func (s *SGD[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for i, param := range s.params {
		grad := getGradient(param, grads)
		if grad == nil {
			continue
		}

		paramData := param.Tensor().Data()
		gradData := grad.AsFloat32()

		if s.momentum == 0 {
			for j := range paramData {
				paramData[j] -= s.lr * gradData[j]
			}
			continue
		}

		velocity, ok := s.velocities[i]
		if !ok {
			velocity = make([]float32, len(paramData))
			s.velocities[i] = velocity
		}
		for j := range paramData {
			velocity[j] = s.momentum*velocity[j] + gradData[j]
			paramData[j] -= s.lr * velocity[j]
		}
	}
}

// GetLR returns the learning rate.
func (s *SGD[B]) GetLR() float32 { return s.lr }

// SetLR updates the learning rate.
func (s *SGD[B]) SetLR(lr float32) { s.lr = lr }

// Name returns "SGD".
func (s *SGD[B]) Name() string { return "SGD" }

// StateDict exports momentum buffers keyed "velocity.<param index>".
// Without momentum the state is empty.
func (s *SGD[B]) StateDict() map[string]*tensor.RawTensor {
	state := make(map[string]*tensor.RawTensor)
	if s.momentum == 0 {
		return state
	}

	for i, param := range s.params {
		velocity, ok := s.velocities[i]
		if !ok {
			continue
		}
		raw, err := tensor.NewRaw(param.Tensor().Shape(), tensor.Float32, tensor.CPU)
		if err != nil {
			panic(err)
		}
		copy(raw.AsFloat32(), velocity)
		state[fmt.Sprintf("velocity.%d", i)] = raw
	}
	return state
}

// LoadStateDict restores momentum buffers saved by StateDict.
func (s *SGD[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	for i, param := range s.params {
		raw, ok := state[fmt.Sprintf("velocity.%d", i)]
		if !ok {
			continue
		}
		if raw.NumElements() != param.Tensor().NumElements() {
			return fmt.Errorf("velocity.%d has %d elements, parameter has %d",
				i, raw.NumElements(), param.Tensor().NumElements())
		}
		velocity := make([]float32, raw.NumElements())
		copy(velocity, raw.AsFloat32())
		s.velocities[i] = velocity
	}
	return nil
}
