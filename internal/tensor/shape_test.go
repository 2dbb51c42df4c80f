package tensor

import (
	"testing"
)

func TestShape_NumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int
	}{
		{Shape{}, 1},
		{Shape{5}, 5},
		{Shape{2, 3}, 6},
		{Shape{64, 1, 28, 28}, 50176},
	}

	for _, tt := range tests {
		if got := tt.shape.NumElements(); got != tt.want {
			t.Errorf("%v.NumElements() = %d, want %d", tt.shape, got, tt.want)
		}
	}
}

func TestShape_Validate(t *testing.T) {
	if err := (Shape{2, 3}).Validate(); err != nil {
		t.Errorf("valid shape rejected: %v", err)
	}
	if err := (Shape{2, 0}).Validate(); err == nil {
		t.Error("zero dimension accepted")
	}
	if err := (Shape{-1, 3}).Validate(); err == nil {
		t.Error("negative dimension accepted")
	}
}

func TestShape_Strides(t *testing.T) {
	tests := []struct {
		shape Shape
		want  []int
	}{
		{Shape{6}, []int{1}},
		{Shape{2, 3}, []int{3, 1}},
		{Shape{2, 3, 4}, []int{12, 4, 1}},
	}

	for _, tt := range tests {
		got := tt.shape.Strides()
		if len(got) != len(tt.want) {
			t.Errorf("%v.Strides() = %v, want %v", tt.shape, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%v.Strides() = %v, want %v", tt.shape, got, tt.want)
				break
			}
		}
	}
}

func TestBroadcast(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Shape
		want      Shape
		stretched bool
		wantErr   bool
	}{
		{"SameShape", Shape{2, 3}, Shape{2, 3}, Shape{2, 3}, false, false},
		{"BiasRow", Shape{64, 10}, Shape{1, 10}, Shape{64, 10}, true, false},
		{"ScalarLike", Shape{2, 3}, Shape{1}, Shape{2, 3}, true, false},
		{"TrailingDim", Shape{2, 1}, Shape{2, 5}, Shape{2, 5}, true, false},
		{"Incompatible", Shape{2, 3}, Shape{2, 4}, nil, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, stretched, err := Broadcast(tt.a, tt.b)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Broadcast(%v, %v): expected error", tt.a, tt.b)
				}
				return
			}
			if err != nil {
				t.Fatalf("Broadcast(%v, %v): %v", tt.a, tt.b, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if stretched != tt.stretched {
				t.Errorf("stretched = %v, want %v", stretched, tt.stretched)
			}
		})
	}
}

func TestRawTensor_RefCounting(t *testing.T) {
	raw, err := NewRaw(Shape{2, 2}, Float32, CPU)
	if err != nil {
		t.Fatal(err)
	}

	if !raw.IsUnique() {
		t.Error("fresh tensor should hold the only reference")
	}

	clone := raw.Clone()
	if raw.IsUnique() || clone.IsUnique() {
		t.Error("clones share the buffer, neither should be unique")
	}

	raw.AsFloat32()[0] = 42
	if clone.AsFloat32()[0] != 42 {
		t.Error("clone does not alias the original buffer")
	}
}

func TestRawTensor_Retain(t *testing.T) {
	raw, err := NewRaw(Shape{3}, Float32, CPU)
	if err != nil {
		t.Fatal(err)
	}

	release := raw.Retain()
	if raw.IsUnique() {
		t.Error("retained tensor should not be unique")
	}
	release()
	if !raw.IsUnique() {
		t.Error("release should restore uniqueness")
	}
}
