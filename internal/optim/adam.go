package optim

import (
	"fmt"
	"math"

	"github.com/ember-ml/ember/internal/nn"
	"github.com/ember-ml/ember/internal/tensor"
)

// Adam implements adaptive moment estimation (Kingma & Ba, 2014).
//
//	m = beta1*m + (1-beta1)*grad
//	v = beta2*v + (1-beta2)*grad²
//	param -= lr * (m / (1-beta1^t)) / (sqrt(v / (1-beta2^t)) + eps)
type Adam[B tensor.Backend] struct {
	params []*nn.Parameter[B]
	lr     float32
	beta1  float32
	beta2  float32
	eps    float32
	t      int
	m      map[int][]float32
	v      map[int][]float32
}

// AdamConfig configures an Adam optimizer. Zero fields get the usual
// defaults: lr 0.001, betas (0.9, 0.999), eps 1e-8.
type AdamConfig struct {
	LR    float32
	Betas [2]float32
	Eps   float32
}

// NewAdam creates an Adam optimizer over the given parameters.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig) *Adam[B] {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &Adam[B]{
		params: params,
		lr:     config.LR,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
		m:      make(map[int][]float32),
		v:      make(map[int][]float32),
	}
}

// Step applies one Adam update with bias correction.
func (a *Adam[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	a.t++

	correction1 := 1 - float32(math.Pow(float64(a.beta1), float64(a.t)))
	correction2 := 1 - float32(math.Pow(float64(a.beta2), float64(a.t)))

	for i, param := range a.params {
		grad := getGradient(param, grads)
		if grad == nil {
			continue
		}

		paramData := param.Tensor().Data()
		gradData := grad.AsFloat32()

		m, ok := a.m[i]
		if !ok {
			m = make([]float32, len(paramData))
			a.m[i] = m
		}
		v, ok := a.v[i]
		if !ok {
			v = make([]float32, len(paramData))
			a.v[i] = v
		}

		for j := range paramData {
			g := gradData[j]
			m[j] = a.beta1*m[j] + (1-a.beta1)*g
			v[j] = a.beta2*v[j] + (1-a.beta2)*g*g

			mHat := m[j] / correction1
			vHat := v[j] / correction2
			paramData[j] -= a.lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
		}
	}
}

// GetLR returns the learning rate.
func (a *Adam[B]) GetLR() float32 { return a.lr }

// SetLR updates the learning rate.
func (a *Adam[B]) SetLR(lr float32) { a.lr = lr }

// Name returns "Adam".
func (a *Adam[B]) Name() string { return "Adam" }

// StateDict exports moment buffers keyed "m.<i>" and "v.<i>" plus the
// timestep as "t" so a resumed run keeps its bias correction.
func (a *Adam[B]) StateDict() map[string]*tensor.RawTensor {
	state := make(map[string]*tensor.RawTensor)

	tRaw, err := tensor.NewRaw(tensor.Shape{1}, tensor.Int32, tensor.CPU)
	if err != nil {
		panic(err)
	}
	tRaw.AsInt32()[0] = int32(a.t)
	state["t"] = tRaw

	for i, param := range a.params {
		if m, ok := a.m[i]; ok {
			state[fmt.Sprintf("m.%d", i)] = sliceToRaw(m, param.Tensor().Shape())
		}
		if v, ok := a.v[i]; ok {
			state[fmt.Sprintf("v.%d", i)] = sliceToRaw(v, param.Tensor().Shape())
		}
	}
	return state
}

// LoadStateDict restores moment buffers and the timestep.
func (a *Adam[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	if tRaw, ok := state["t"]; ok {
		a.t = int(tRaw.AsInt32()[0])
	}

	for i, param := range a.params {
		n := param.Tensor().NumElements()
		if raw, ok := state[fmt.Sprintf("m.%d", i)]; ok {
			if raw.NumElements() != n {
				return fmt.Errorf("m.%d has %d elements, parameter has %d", i, raw.NumElements(), n)
			}
			m := make([]float32, n)
			copy(m, raw.AsFloat32())
			a.m[i] = m
		}
		if raw, ok := state[fmt.Sprintf("v.%d", i)]; ok {
			if raw.NumElements() != n {
				return fmt.Errorf("v.%d has %d elements, parameter has %d", i, raw.NumElements(), n)
			}
			v := make([]float32, n)
			copy(v, raw.AsFloat32())
			a.v[i] = v
		}
	}
	return nil
}

func sliceToRaw(data []float32, shape tensor.Shape) *tensor.RawTensor {
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		panic(err)
	}
	copy(raw.AsFloat32(), data)
	return raw
}
