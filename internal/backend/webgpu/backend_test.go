//go:build windows

package webgpu

import (
	"testing"

	"github.com/ember-ml/ember/internal/tensor"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	if !IsAvailable() {
		t.Skip("WebGPU not available on this system")
	}
	backend, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(backend.Release)
	return backend
}

func rawFromSlice(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.WebGPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	copy(raw.AsFloat32(), data)
	return raw
}

func TestBackend_Add(t *testing.T) {
	backend := newTestBackend(t)

	a := rawFromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := rawFromSlice(t, []float32{10, 20, 30, 40}, tensor.Shape{2, 2})

	result := backend.Add(a, b)
	want := []float32{11, 22, 33, 44}
	for i, v := range result.AsFloat32() {
		if v != want[i] {
			t.Errorf("result[%d]: got %f, want %f", i, v, want[i])
		}
	}
}

func TestBackend_MatMul(t *testing.T) {
	backend := newTestBackend(t)

	a := rawFromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := rawFromSlice(t, []float32{5, 6, 7, 8}, tensor.Shape{2, 2})

	result := backend.MatMul(a, b)
	want := []float32{19, 22, 43, 50}
	for i, v := range result.AsFloat32() {
		if v != want[i] {
			t.Errorf("result[%d]: got %f, want %f", i, v, want[i])
		}
	}
}

func TestBackend_ReLU(t *testing.T) {
	backend := newTestBackend(t)

	x := rawFromSlice(t, []float32{-1, 0, 2, -3}, tensor.Shape{4})
	result := backend.ReLU(x)

	want := []float32{0, 0, 2, 0}
	for i, v := range result.AsFloat32() {
		if v != want[i] {
			t.Errorf("result[%d]: got %f, want %f", i, v, want[i])
		}
	}
}

func TestBackend_Transpose(t *testing.T) {
	backend := newTestBackend(t)

	x := rawFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	result := backend.Transpose(x)

	if !result.Shape().Equal(tensor.Shape{3, 2}) {
		t.Fatalf("shape: got %v, want [3 2]", result.Shape())
	}
	want := []float32{1, 4, 2, 5, 3, 6}
	for i, v := range result.AsFloat32() {
		if v != want[i] {
			t.Errorf("result[%d]: got %f, want %f", i, v, want[i])
		}
	}
}

func TestBackend_BroadcastFallsBackToCPU(t *testing.T) {
	backend := newTestBackend(t)

	a := rawFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	bias := rawFromSlice(t, []float32{10, 20, 30}, tensor.Shape{1, 3})

	result := backend.Add(a, bias)
	want := []float32{11, 22, 33, 14, 25, 36}
	for i, v := range result.AsFloat32() {
		if v != want[i] {
			t.Errorf("result[%d]: got %f, want %f", i, v, want[i])
		}
	}
}
