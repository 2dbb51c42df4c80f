package model_test

import (
	"math/rand"
	"testing"

	"github.com/ember-ml/ember/internal/autodiff"
	"github.com/ember-ml/ember/internal/backend/cpu"
	"github.com/ember-ml/ember/internal/model"
	"github.com/ember-ml/ember/internal/tensor"
)

func TestNewMLP_OutputShape(t *testing.T) {
	backend := autodiff.New(cpu.New())
	rng := rand.New(rand.NewSource(1))

	mlp := model.NewMLP(rng, backend)
	input := tensor.Zeros[float32](tensor.Shape{8, 1, 28, 28}, backend)

	output := mlp.Forward(input)
	if !output.Shape().Equal(tensor.Shape{8, model.NumClasses}) {
		t.Errorf("output shape: got %v, want [8 %d]", output.Shape(), model.NumClasses)
	}
}

func TestNewMLP_ParameterCount(t *testing.T) {
	backend := autodiff.New(cpu.New())
	rng := rand.New(rand.NewSource(1))

	mlp := model.NewMLP(rng, backend)

	// Three Linear layers, weight plus bias each.
	params := mlp.Parameters()
	if len(params) != 6 {
		t.Fatalf("parameter count: got %d, want 6", len(params))
	}

	total := 0
	for _, p := range params {
		total += p.Tensor().NumElements()
	}
	want := 784*512 + 512 + 512*512 + 512 + 512*10 + 10
	if total != want {
		t.Errorf("total parameters: got %d, want %d", total, want)
	}
}

func TestNewMLP_DeterministicForward(t *testing.T) {
	backend := autodiff.New(cpu.New())

	a := model.NewMLP(rand.New(rand.NewSource(42)), backend)
	b := model.NewMLP(rand.New(rand.NewSource(42)), backend)

	input := tensor.Ones[float32](tensor.Shape{2, 1, 28, 28}, backend)

	outA := a.Forward(input).Data()
	outB := b.Forward(input).Data()
	for i := range outA {
		if outA[i] != outB[i] {
			t.Fatalf("output %d differs across same-seed models: %f vs %f", i, outA[i], outB[i])
		}
	}

	// Same model, same input, twice: identical scores.
	again := a.Forward(input).Data()
	for i := range outA {
		if outA[i] != again[i] {
			t.Fatalf("output %d differs across repeated forwards: %f vs %f", i, outA[i], again[i])
		}
	}
}

func TestNewMLP_OutputsNonNegative(t *testing.T) {
	backend := autodiff.New(cpu.New())
	rng := rand.New(rand.NewSource(3))

	mlp := model.NewMLP(rng, backend)
	input := tensor.Ones[float32](tensor.Shape{1, 1, 28, 28}, backend)

	// The final ReLU clamps scores at zero.
	for i, v := range mlp.Forward(input).Data() {
		if v < 0 {
			t.Errorf("score %d is negative: %f", i, v)
		}
	}
}
