package nn_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/ember-ml/ember/internal/autodiff"
	"github.com/ember-ml/ember/internal/backend/cpu"
	"github.com/ember-ml/ember/internal/nn"
	"github.com/ember-ml/ember/internal/tensor"
)

type testBackend = *autodiff.Backend[*cpu.Backend]

func newBackend() testBackend {
	return autodiff.New(cpu.New())
}

func rawFromSlice(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	copy(raw.AsFloat32(), data)
	return raw
}

func TestLinear_ForwardKnownValues(t *testing.T) {
	backend := newBackend()
	rng := rand.New(rand.NewSource(1))

	linear := nn.NewLinear(2, 3, rng, backend)
	err := linear.LoadStateDict(map[string]*tensor.RawTensor{
		"weight": rawFromSlice(t, []float32{1, 0, 0, 1, 1, 1}, tensor.Shape{3, 2}),
		"bias":   rawFromSlice(t, []float32{0.5, -0.5, 0}, tensor.Shape{3}),
	})
	if err != nil {
		t.Fatalf("LoadStateDict: %v", err)
	}

	input, _ := tensor.FromSlice([]float32{2, 3}, tensor.Shape{1, 2}, backend)
	output := linear.Forward(input)

	// y = x @ Wᵀ + b = [2, 3, 5] + [0.5, -0.5, 0]
	want := []float32{2.5, 2.5, 5}
	got := output.Data()
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("output[%d]: got %f, want %f", i, got[i], want[i])
		}
	}
}

func TestLinear_OutputShape(t *testing.T) {
	backend := newBackend()
	rng := rand.New(rand.NewSource(42))

	linear := nn.NewLinear(784, 512, rng, backend)
	input := tensor.Zeros[float32](tensor.Shape{64, 784}, backend)

	output := linear.Forward(input)
	if !output.Shape().Equal(tensor.Shape{64, 512}) {
		t.Errorf("output shape: got %v, want [64 512]", output.Shape())
	}
}

func TestLinear_XavierBound(t *testing.T) {
	backend := newBackend()
	rng := rand.New(rand.NewSource(7))

	linear := nn.NewLinear(100, 50, rng, backend)
	bound := float32(math.Sqrt(6.0 / 150.0))

	for _, w := range linear.Weight().Tensor().Data() {
		if w < -bound || w > bound {
			t.Fatalf("weight %f outside Xavier bound ±%f", w, bound)
		}
	}
	for _, b := range linear.Bias().Tensor().Data() {
		if b != 0 {
			t.Fatalf("bias initialized to %f, want 0", b)
		}
	}
}

func TestLinear_LoadStateDictErrors(t *testing.T) {
	backend := newBackend()
	rng := rand.New(rand.NewSource(1))
	linear := nn.NewLinear(2, 3, rng, backend)

	err := linear.LoadStateDict(map[string]*tensor.RawTensor{
		"weight": rawFromSlice(t, []float32{1, 2}, tensor.Shape{1, 2}),
		"bias":   rawFromSlice(t, []float32{0, 0, 0}, tensor.Shape{3}),
	})
	if err == nil {
		t.Error("expected shape mismatch error")
	}

	err = linear.LoadStateDict(map[string]*tensor.RawTensor{
		"bias": rawFromSlice(t, []float32{0, 0, 0}, tensor.Shape{3}),
	})
	if err == nil {
		t.Error("expected missing weight error")
	}
}

func TestReLU_Forward(t *testing.T) {
	backend := newBackend()

	relu := nn.NewReLU[testBackend]()
	input, _ := tensor.FromSlice([]float32{-2, -0.5, 0, 0.5, 2}, tensor.Shape{1, 5}, backend)
	output := relu.Forward(input)

	want := []float32{0, 0, 0, 0.5, 2}
	got := output.Data()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("output[%d]: got %f, want %f", i, got[i], want[i])
		}
	}
	if len(relu.Parameters()) != 0 {
		t.Error("ReLU should have no parameters")
	}
}

func TestFlatten_Forward(t *testing.T) {
	backend := newBackend()

	flatten := nn.NewFlatten[testBackend]()
	input := tensor.Zeros[float32](tensor.Shape{4, 1, 28, 28}, backend)

	output := flatten.Forward(input)
	if !output.Shape().Equal(tensor.Shape{4, 784}) {
		t.Errorf("output shape: got %v, want [4 784]", output.Shape())
	}
}

func TestSequential_Forward(t *testing.T) {
	backend := newBackend()
	rng := rand.New(rand.NewSource(3))

	model := nn.NewSequential[testBackend](
		nn.NewLinear(4, 8, rng, backend),
		nn.NewReLU[testBackend](),
		nn.NewLinear(8, 2, rng, backend),
	)

	input := tensor.Zeros[float32](tensor.Shape{3, 4}, backend)
	output := model.Forward(input)
	if !output.Shape().Equal(tensor.Shape{3, 2}) {
		t.Errorf("output shape: got %v, want [3 2]", output.Shape())
	}

	// Two Linear layers, two parameters each.
	if got := len(model.Parameters()); got != 4 {
		t.Errorf("parameter count: got %d, want 4", got)
	}
}

func TestSequential_StateDictRoundTrip(t *testing.T) {
	backend := newBackend()
	rng := rand.New(rand.NewSource(5))

	model := nn.NewSequential[testBackend](
		nn.NewLinear(4, 8, rng, backend),
		nn.NewReLU[testBackend](),
		nn.NewLinear(8, 2, rng, backend),
	)

	state := model.StateDict()
	for _, key := range []string{"0.weight", "0.bias", "2.weight", "2.bias"} {
		if _, ok := state[key]; !ok {
			t.Fatalf("state dict missing %q", key)
		}
	}

	clone := nn.NewSequential[testBackend](
		nn.NewLinear(4, 8, rng, backend),
		nn.NewReLU[testBackend](),
		nn.NewLinear(8, 2, rng, backend),
	)
	if err := clone.LoadStateDict(state); err != nil {
		t.Fatalf("LoadStateDict: %v", err)
	}

	input, _ := tensor.FromSlice([]float32{1, -2, 3, -4, 0.5, 0.5, -0.5, -0.5, 2, 2, 2, 2}, tensor.Shape{3, 4}, backend)
	a := model.Forward(input).Data()
	b := clone.Forward(input).Data()
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("output %d differs after state dict round trip: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestCrossEntropyLoss_UniformLogits(t *testing.T) {
	backend := newBackend()

	loss := nn.NewCrossEntropyLoss[testBackend]()
	logits := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
	targets, _ := tensor.FromSlice([]int32{0, 2}, tensor.Shape{2}, backend)

	out := loss.Forward(logits, targets)
	want := float32(math.Log(3))
	if got := out.Item(); math.Abs(float64(got-want)) > 1e-5 {
		t.Errorf("uniform logits loss: got %f, want ln(3)=%f", got, want)
	}
}

func TestAccuracy(t *testing.T) {
	backend := newBackend()

	logits, _ := tensor.FromSlice([]float32{
		5, 1, 0,
		0, 3, 1,
		2, 0, 1,
	}, tensor.Shape{3, 3}, backend)
	targets, _ := tensor.FromSlice([]int32{0, 1, 2}, tensor.Shape{3}, backend)

	// Predictions are 0, 1, 0: two of three correct.
	got := nn.Accuracy(logits, targets)
	if math.Abs(got-2.0/3.0) > 1e-9 {
		t.Errorf("accuracy: got %f, want %f", got, 2.0/3.0)
	}
}
