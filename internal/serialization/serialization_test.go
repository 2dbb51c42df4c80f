package serialization

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ember-ml/ember/internal/tensor"
)

func makeState(t *testing.T) map[string]*tensor.RawTensor {
	t.Helper()

	weight, err := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatal(err)
	}
	for i := range weight.AsFloat32() {
		weight.AsFloat32()[i] = float32(i) * 0.5
	}

	bias, err := tensor.NewRaw(tensor.Shape{3}, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatal(err)
	}
	bias.AsFloat32()[1] = -1.25

	labels, err := tensor.NewRaw(tensor.Shape{4}, tensor.Int32, tensor.CPU)
	if err != nil {
		t.Fatal(err)
	}
	labels.AsInt32()[2] = 7

	return map[string]*tensor.RawTensor{
		"0.weight": weight,
		"0.bias":   bias,
		"labels":   labels,
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.ember")
	state := makeState(t)

	err := SaveStateDict(path, state, "Sequential", map[string]string{"dataset": "mnist"}, nil)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, header, err := LoadStateDict(path, tensor.CPU)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if header.ModelType != "Sequential" {
		t.Errorf("model type %q", header.ModelType)
	}
	if header.Metadata["dataset"] != "mnist" {
		t.Errorf("metadata lost: %v", header.Metadata)
	}
	if len(loaded) != len(state) {
		t.Fatalf("expected %d tensors, got %d", len(state), len(loaded))
	}

	for name, original := range state {
		got, ok := loaded[name]
		if !ok {
			t.Fatalf("missing tensor %q", name)
		}
		if !got.Shape().Equal(original.Shape()) {
			t.Errorf("%q shape %v, want %v", name, got.Shape(), original.Shape())
		}
		if got.DType() != original.DType() {
			t.Errorf("%q dtype %v, want %v", name, got.DType(), original.DType())
		}
		origData := original.Data()
		gotData := got.Data()
		for i := range origData {
			if gotData[i] != origData[i] {
				t.Errorf("%q data differs at byte %d", name, i)
				break
			}
		}
	}
}

func TestCheckpointMetaRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt.ember")

	meta := &CheckpointMeta{Epoch: 3, Step: 2814, Loss: 0.412, OptimizerType: "SGD"}
	if err := SaveStateDict(path, makeState(t), "Sequential", nil, meta); err != nil {
		t.Fatalf("save: %v", err)
	}

	_, header, err := LoadStateDict(path, tensor.CPU)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	got := header.CheckpointMeta
	if got == nil {
		t.Fatal("checkpoint metadata missing")
	}
	if got.Epoch != 3 || got.Step != 2814 || got.OptimizerType != "SGD" {
		t.Errorf("checkpoint meta %+v", got)
	}
}

func TestReader_InvalidMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.ember")
	if err := os.WriteFile(path, []byte("NOPE and some trailing bytes to get past the prefix"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewReader(path)
	if !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("expected ErrInvalidMagic, got %v", err)
	}
}

func TestReader_CorruptedData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.ember")
	if err := SaveStateDict(path, makeState(t), "Sequential", nil, nil); err != nil {
		t.Fatal(err)
	}

	// Flip a byte at the end of the file, inside the data section.
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content[len(content)-1] ^= 0xFF
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = NewReader(path)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestReader_TruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.ember")
	if err := SaveStateDict(path, makeState(t), "Sequential", nil, nil); err != nil {
		t.Fatal(err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, content[:len(content)-8], 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewReader(path); err == nil {
		t.Error("expected an error for a truncated file")
	}
}

func TestWriter_DeterministicLayout(t *testing.T) {
	dir := t.TempDir()
	state := makeState(t)

	pathA := filepath.Join(dir, "a.ember")
	pathB := filepath.Join(dir, "b.ember")

	if err := SaveStateDict(pathA, state, "Sequential", nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := SaveStateDict(pathB, state, "Sequential", nil, nil); err != nil {
		t.Fatal(err)
	}

	headerA, err := NewReader(pathA)
	if err != nil {
		t.Fatal(err)
	}
	defer headerA.Close()
	headerB, err := NewReader(pathB)
	if err != nil {
		t.Fatal(err)
	}
	defer headerB.Close()

	tensorsA := headerA.Header().Tensors
	tensorsB := headerB.Header().Tensors
	for i := range tensorsA {
		if tensorsA[i].Name != tensorsB[i].Name || tensorsA[i].Offset != tensorsB[i].Offset {
			t.Errorf("layout differs at %d: %+v vs %+v", i, tensorsA[i], tensorsB[i])
		}
	}
}
