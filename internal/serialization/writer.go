package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/ember-ml/ember/internal/tensor"
)

const emberVersion = "0.1.0"

// Writer writes state dictionaries as .ember files.
type Writer struct {
	file   *os.File
	closed bool
}

// NewWriter creates (or truncates) the file at path.
func NewWriter(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return &Writer{file: file}, nil
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// WriteStateDict writes the state dictionary with optional checkpoint
// metadata. Tensors are laid out in sorted name order so the same state
// always produces the same file.
func (w *Writer) WriteStateDict(state map[string]*tensor.RawTensor, modelType string, metadata map[string]string, checkpoint *CheckpointMeta) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}

	names := make([]string, 0, len(state))
	for name := range state {
		names = append(names, name)
	}
	sort.Strings(names)

	header := Header{
		FormatVersion:  FormatVersion,
		EmberVersion:   emberVersion,
		ModelType:      modelType,
		CreatedAt:      time.Now().UTC(),
		Tensors:        make([]TensorMeta, 0, len(state)),
		Metadata:       metadata,
		CheckpointMeta: checkpoint,
	}

	var offset int64
	var dataSize int64
	for _, name := range names {
		raw := state[name]
		size := int64(raw.ByteSize())
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  dtypeToString(raw.DType()),
			Shape:  []int(raw.Shape()),
			Offset: offset,
			Size:   size,
		})
		offset += size
		dataSize += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	// Checksum covers the whole data section.
	data := make([]byte, 0, dataSize)
	for _, name := range names {
		data = append(data, state[name].Data()...)
	}
	checksum := ComputeChecksum(data)

	if _, err := w.file.WriteString(MagicBytes); err != nil {
		return fmt.Errorf("failed to write magic bytes: %w", err)
	}
	if err := binary.Write(w.file, binary.LittleEndian, uint32(FormatVersion)); err != nil {
		return fmt.Errorf("failed to write version: %w", err)
	}

	var flags uint32
	if len(metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if checkpoint != nil && checkpoint.OptimizerType != "" {
		flags |= FlagHasOptimizer
	}
	if err := binary.Write(w.file, binary.LittleEndian, flags); err != nil {
		return fmt.Errorf("failed to write flags: %w", err)
	}

	if err := binary.Write(w.file, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.file.Write(checksum[:]); err != nil {
		return fmt.Errorf("failed to write checksum: %w", err)
	}
	if _, err := w.file.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// Pad so the data section starts on an aligned boundary.
	pos := int64(fixedPrefixSize) + int64(len(headerJSON))
	if padding := (DataAlignment - pos%DataAlignment) % DataAlignment; padding > 0 {
		if _, err := w.file.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}

	if _, err := w.file.Write(data); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}

// SaveStateDict is a convenience wrapper writing a state dict to path
// in one call.
func SaveStateDict(path string, state map[string]*tensor.RawTensor, modelType string, metadata map[string]string, checkpoint *CheckpointMeta) error {
	w, err := NewWriter(path)
	if err != nil {
		return err
	}
	if err := w.WriteStateDict(state, modelType, metadata, checkpoint); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
