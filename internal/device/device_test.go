package device

import (
	"testing"

	"github.com/ember-ml/ember/internal/tensor"
)

func TestResolve_CPU(t *testing.T) {
	d, err := Resolve("cpu")
	if err != nil {
		t.Fatalf("Resolve(cpu): %v", err)
	}
	if d != tensor.CPU {
		t.Errorf("got %v, want CPU", d)
	}
}

func TestResolve_Auto(t *testing.T) {
	d, err := Resolve("auto")
	if err != nil {
		t.Fatalf("Resolve(auto): %v", err)
	}
	if d != tensor.CPU && d != tensor.WebGPU {
		t.Errorf("got %v, want CPU or WebGPU", d)
	}
}

func TestResolve_Unknown(t *testing.T) {
	if _, err := Resolve("tpu"); err == nil {
		t.Error("expected error for unknown device")
	}
}
