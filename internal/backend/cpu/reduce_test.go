package cpu

import (
	"math"
	"testing"

	"github.com/ember-ml/ember/internal/tensor"
)

func TestBackend_Sum(t *testing.T) {
	backend := New()

	a := newRawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	result := backend.Sum(a)

	if !result.Shape().Equal(tensor.Shape{1}) {
		t.Fatalf("bad shape %v", result.Shape())
	}
	if got := result.AsFloat32()[0]; got != 21 {
		t.Errorf("got %v, expected 21", got)
	}
}

func TestBackend_SumDim(t *testing.T) {
	backend := New()

	a := newRawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	t.Run("Dim0", func(t *testing.T) {
		result := backend.SumDim(a, 0, false)
		if !result.Shape().Equal(tensor.Shape{3}) {
			t.Fatalf("bad shape %v", result.Shape())
		}
		if !float32SliceEqual(result.AsFloat32(), []float32{5, 7, 9}) {
			t.Errorf("got %v", result.AsFloat32())
		}
	})

	t.Run("Dim1KeepDim", func(t *testing.T) {
		result := backend.SumDim(a, 1, true)
		if !result.Shape().Equal(tensor.Shape{2, 1}) {
			t.Fatalf("bad shape %v", result.Shape())
		}
		if !float32SliceEqual(result.AsFloat32(), []float32{6, 15}) {
			t.Errorf("got %v", result.AsFloat32())
		}
	})

	t.Run("NegativeDim", func(t *testing.T) {
		result := backend.SumDim(a, -1, false)
		if !float32SliceEqual(result.AsFloat32(), []float32{6, 15}) {
			t.Errorf("got %v", result.AsFloat32())
		}
	})
}

func TestBackend_Argmax(t *testing.T) {
	backend := New()

	a := newRawFloat32(t, tensor.Shape{2, 4}, []float32{
		0.1, 0.9, 0.3, 0.2,
		2.0, 1.0, 3.0, 0.5,
	})

	result := backend.Argmax(a, 1)

	if !result.Shape().Equal(tensor.Shape{2}) {
		t.Fatalf("bad shape %v", result.Shape())
	}
	got := result.AsInt32()
	if got[0] != 1 || got[1] != 2 {
		t.Errorf("got %v, expected [1 2]", got)
	}
}

func TestBackend_Argmax_Ties(t *testing.T) {
	backend := New()

	a := newRawFloat32(t, tensor.Shape{1, 3}, []float32{5, 5, 5})
	result := backend.Argmax(a, 1)

	if got := result.AsInt32()[0]; got != 0 {
		t.Errorf("ties should resolve to the lowest index, got %d", got)
	}
}

func TestBackend_Softmax(t *testing.T) {
	backend := New()

	a := newRawFloat32(t, tensor.Shape{2, 3}, []float32{
		1, 2, 3,
		0, 0, 0,
	})

	result := backend.Softmax(a, 1)
	data := result.AsFloat32()

	// Each row sums to one.
	for row := 0; row < 2; row++ {
		var sum float32
		for j := 0; j < 3; j++ {
			sum += data[row*3+j]
		}
		if math.Abs(float64(sum-1)) > 1e-5 {
			t.Errorf("row %d sums to %v", row, sum)
		}
	}

	// A uniform row gives uniform probabilities.
	for j := 0; j < 3; j++ {
		if math.Abs(float64(data[3+j]-1.0/3.0)) > 1e-5 {
			t.Errorf("uniform row: got %v at %d", data[3+j], j)
		}
	}

	// Ordering is preserved.
	if !(data[0] < data[1] && data[1] < data[2]) {
		t.Errorf("ordering not preserved: %v", data[:3])
	}
}

func TestBackend_Softmax_LargeValues(t *testing.T) {
	backend := New()

	// Without max subtraction these would overflow to +Inf.
	a := newRawFloat32(t, tensor.Shape{1, 3}, []float32{1000, 1001, 1002})
	result := backend.Softmax(a, 1)

	var sum float32
	for _, v := range result.AsFloat32() {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("non-finite probability %v", v)
		}
		sum += v
	}
	if math.Abs(float64(sum-1)) > 1e-5 {
		t.Errorf("probabilities sum to %v", sum)
	}
}
