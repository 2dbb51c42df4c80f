package optim_test

import (
	"math"
	"testing"

	"github.com/ember-ml/ember/internal/autodiff"
	"github.com/ember-ml/ember/internal/backend/cpu"
	"github.com/ember-ml/ember/internal/nn"
	"github.com/ember-ml/ember/internal/optim"
	"github.com/ember-ml/ember/internal/tensor"
)

type testBackend = *autodiff.Backend[*cpu.Backend]

func floatEqual(a, b, eps float32) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < eps
}

func newParam(t *testing.T, backend testBackend, name string, data []float32) *nn.Parameter[testBackend] {
	t.Helper()
	ten, err := tensor.FromSlice(data, tensor.Shape{len(data)}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	return nn.NewParameter(name, ten)
}

func gradFor(t *testing.T, param *nn.Parameter[testBackend], values []float32) map[*tensor.RawTensor]*tensor.RawTensor {
	t.Helper()
	grad, err := tensor.NewRaw(tensor.Shape{len(values)}, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	copy(grad.AsFloat32(), values)
	return map[*tensor.RawTensor]*tensor.RawTensor{param.Tensor().Raw(): grad}
}

func TestSGD_SimpleUpdate(t *testing.T) {
	backend := autodiff.New(cpu.New())
	param := newParam(t, backend, "x", []float32{2.0})

	optimizer := optim.NewSGD([]*nn.Parameter[testBackend]{param}, optim.SGDConfig{LR: 0.1})
	optimizer.Step(gradFor(t, param, []float32{1.0}))

	// x_new = 2.0 - 0.1*1.0
	got := param.Tensor().Data()[0]
	if !floatEqual(got, 1.9, 1e-6) {
		t.Errorf("after step: got %f, want 1.9", got)
	}
}

func TestSGD_WithMomentum(t *testing.T) {
	backend := autodiff.New(cpu.New())
	param := newParam(t, backend, "x", []float32{1.0})

	optimizer := optim.NewSGD([]*nn.Parameter[testBackend]{param}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})

	// Step 1: v = 1.0, x = 1.0 - 0.1*1.0 = 0.9
	optimizer.Step(gradFor(t, param, []float32{1.0}))
	if got := param.Tensor().Data()[0]; !floatEqual(got, 0.9, 1e-6) {
		t.Fatalf("after first step: got %f, want 0.9", got)
	}

	// Step 2: v = 0.9*1.0 + 1.0 = 1.9, x = 0.9 - 0.1*1.9 = 0.71
	optimizer.Step(gradFor(t, param, []float32{1.0}))
	if got := param.Tensor().Data()[0]; !floatEqual(got, 0.71, 1e-6) {
		t.Errorf("after second step: got %f, want 0.71", got)
	}
}

func TestSGD_MissingGradientSkipsParam(t *testing.T) {
	backend := autodiff.New(cpu.New())
	param := newParam(t, backend, "x", []float32{3.0})

	optimizer := optim.NewSGD([]*nn.Parameter[testBackend]{param}, optim.SGDConfig{LR: 0.5})
	optimizer.Step(map[*tensor.RawTensor]*tensor.RawTensor{})

	if got := param.Tensor().Data()[0]; got != 3.0 {
		t.Errorf("parameter changed without gradient: got %f", got)
	}
}

func TestSGD_StateDictRoundTrip(t *testing.T) {
	backend := autodiff.New(cpu.New())
	param := newParam(t, backend, "x", []float32{1.0, 2.0})

	optimizer := optim.NewSGD([]*nn.Parameter[testBackend]{param}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})
	optimizer.Step(gradFor(t, param, []float32{0.5, -0.5}))

	state := optimizer.StateDict()
	if _, ok := state["velocity.0"]; !ok {
		t.Fatalf("state dict missing velocity.0, keys: %v", state)
	}

	param2 := newParam(t, backend, "x", []float32{1.0, 2.0})
	restored := optim.NewSGD([]*nn.Parameter[testBackend]{param2}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})
	if err := restored.LoadStateDict(state); err != nil {
		t.Fatalf("LoadStateDict: %v", err)
	}

	// After restore both optimizers must produce identical updates.
	optimizer.Step(gradFor(t, param, []float32{0.5, -0.5}))
	// Bring param2 to the same starting point as param before its second step.
	copy(param2.Tensor().Data(), []float32{0.95, 2.05})
	restored.Step(gradFor(t, param2, []float32{0.5, -0.5}))

	a := param.Tensor().Data()
	b := param2.Tensor().Data()
	for i := range a {
		if !floatEqual(a[i], b[i], 1e-6) {
			t.Errorf("element %d diverged after restore: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestAdam_FirstStep(t *testing.T) {
	backend := autodiff.New(cpu.New())
	param := newParam(t, backend, "x", []float32{1.0})

	optimizer := optim.NewAdam([]*nn.Parameter[testBackend]{param}, optim.AdamConfig{LR: 0.1})
	optimizer.Step(gradFor(t, param, []float32{2.0}))

	// With bias correction the first step moves by roughly lr regardless
	// of gradient magnitude: m_hat = g, v_hat = g^2, update = lr*g/(|g|+eps).
	got := param.Tensor().Data()[0]
	if !floatEqual(got, 0.9, 1e-4) {
		t.Errorf("after first step: got %f, want ~0.9", got)
	}
}

func TestAdam_ConvergesOnQuadratic(t *testing.T) {
	backend := autodiff.New(cpu.New())
	param := newParam(t, backend, "x", []float32{5.0})

	optimizer := optim.NewAdam([]*nn.Parameter[testBackend]{param}, optim.AdamConfig{LR: 0.1})

	// Minimize f(x) = x^2 with analytic gradient 2x.
	for i := 0; i < 200; i++ {
		x := param.Tensor().Data()[0]
		optimizer.Step(gradFor(t, param, []float32{2 * x}))
	}

	got := param.Tensor().Data()[0]
	if math.Abs(float64(got)) > 0.1 {
		t.Errorf("x did not converge toward 0: got %f", got)
	}
}

func TestAdam_Defaults(t *testing.T) {
	backend := autodiff.New(cpu.New())
	param := newParam(t, backend, "x", []float32{1.0})

	optimizer := optim.NewAdam([]*nn.Parameter[testBackend]{param}, optim.AdamConfig{})
	if got := optimizer.GetLR(); !floatEqual(got, 0.001, 1e-9) {
		t.Errorf("default lr: got %f, want 0.001", got)
	}
	if optimizer.Name() != "Adam" {
		t.Errorf("name: got %q", optimizer.Name())
	}
}

func TestAdam_StateDictRoundTrip(t *testing.T) {
	backend := autodiff.New(cpu.New())
	param := newParam(t, backend, "x", []float32{1.0, -1.0})

	optimizer := optim.NewAdam([]*nn.Parameter[testBackend]{param}, optim.AdamConfig{LR: 0.01})
	optimizer.Step(gradFor(t, param, []float32{0.3, -0.7}))
	optimizer.Step(gradFor(t, param, []float32{0.1, 0.2}))

	state := optimizer.StateDict()
	for _, key := range []string{"t", "m.0", "v.0"} {
		if _, ok := state[key]; !ok {
			t.Fatalf("state dict missing %q", key)
		}
	}
	if got := state["t"].AsInt32()[0]; got != 2 {
		t.Errorf("step count: got %d, want 2", got)
	}

	param2 := newParam(t, backend, "x", []float32{1.0, -1.0})
	copy(param2.Tensor().Data(), param.Tensor().Data())
	restored := optim.NewAdam([]*nn.Parameter[testBackend]{param2}, optim.AdamConfig{LR: 0.01})
	if err := restored.LoadStateDict(state); err != nil {
		t.Fatalf("LoadStateDict: %v", err)
	}

	optimizer.Step(gradFor(t, param, []float32{0.5, 0.5}))
	restored.Step(gradFor(t, param2, []float32{0.5, 0.5}))

	a := param.Tensor().Data()
	b := param2.Tensor().Data()
	for i := range a {
		if !floatEqual(a[i], b[i], 1e-6) {
			t.Errorf("element %d diverged after restore: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestSetLR(t *testing.T) {
	backend := autodiff.New(cpu.New())
	param := newParam(t, backend, "x", []float32{1.0})

	optimizer := optim.NewSGD([]*nn.Parameter[testBackend]{param}, optim.SGDConfig{LR: 0.1})
	optimizer.SetLR(0.01)
	if got := optimizer.GetLR(); !floatEqual(got, 0.01, 1e-9) {
		t.Errorf("SetLR: got %f, want 0.01", got)
	}
}
