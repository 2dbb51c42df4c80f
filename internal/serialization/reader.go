package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ember-ml/ember/internal/tensor"
)

const maxHeaderSize = 100 * 1024 * 1024

// Reader reads .ember files. The header is parsed and the data section
// checksummed when the reader is opened.
type Reader struct {
	file       *os.File
	header     Header
	flags      uint32
	dataOffset int64
	closed     bool
}

// NewReader opens path, parses the header and verifies the checksum.
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	r := &Reader{file: file}
	if err := r.parseHeader(); err != nil {
		_ = file.Close()
		return nil, err
	}
	return r, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

// Header returns the parsed file header.
func (r *Reader) Header() Header {
	return r.header
}

func (r *Reader) parseHeader() error {
	magic := make([]byte, 4)
	if _, err := io.ReadFull(r.file, magic); err != nil {
		return fmt.Errorf("failed to read magic bytes: %w", err)
	}
	if string(magic) != MagicBytes {
		return ErrInvalidMagic
	}

	var version uint32
	if err := binary.Read(r.file, binary.LittleEndian, &version); err != nil {
		return fmt.Errorf("failed to read version: %w", err)
	}
	if version != FormatVersion {
		return fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, version, FormatVersion)
	}

	if err := binary.Read(r.file, binary.LittleEndian, &r.flags); err != nil {
		return fmt.Errorf("failed to read flags: %w", err)
	}

	var headerSize uint64
	if err := binary.Read(r.file, binary.LittleEndian, &headerSize); err != nil {
		return fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > maxHeaderSize {
		return ErrHeaderTooLarge
	}

	var stored [ChecksumSize]byte
	if _, err := io.ReadFull(r.file, stored[:]); err != nil {
		return fmt.Errorf("failed to read checksum: %w", err)
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r.file, headerJSON); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if err := json.Unmarshal(headerJSON, &r.header); err != nil {
		return fmt.Errorf("failed to parse header: %w", err)
	}

	pos := int64(fixedPrefixSize) + int64(headerSize)
	r.dataOffset = pos + (DataAlignment-pos%DataAlignment)%DataAlignment

	info, err := r.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	dataSize := info.Size() - r.dataOffset
	if dataSize < 0 {
		return ErrTensorOutOfBounds
	}

	if err := r.validateTensors(dataSize); err != nil {
		return err
	}

	data := make([]byte, dataSize)
	if _, err := r.file.ReadAt(data, r.dataOffset); err != nil {
		return fmt.Errorf("failed to read data section: %w", err)
	}
	return ValidateChecksum(ComputeChecksum(data), stored)
}

func (r *Reader) validateTensors(dataSize int64) error {
	for _, meta := range r.header.Tensors {
		if meta.Offset < 0 || meta.Size < 0 || meta.Offset+meta.Size > dataSize {
			return fmt.Errorf("%w: %q at offset %d size %d, data section is %d bytes",
				ErrTensorOutOfBounds, meta.Name, meta.Offset, meta.Size, dataSize)
		}

		dtype, ok := stringToDtype(meta.DType)
		if !ok {
			return fmt.Errorf("%w: %q has dtype %q", ErrUnknownDType, meta.Name, meta.DType)
		}

		want := int64(tensor.Shape(meta.Shape).NumElements() * dtype.Size())
		if meta.Size != want {
			return fmt.Errorf("%w: %q declares %d bytes, shape %v needs %d",
				ErrTensorSizeMismatch, meta.Name, meta.Size, meta.Shape, want)
		}
	}
	return nil
}

// ReadStateDict loads every tensor into memory on the given device.
func (r *Reader) ReadStateDict(device tensor.Device) (map[string]*tensor.RawTensor, error) {
	if r.closed {
		return nil, fmt.Errorf("reader is closed")
	}

	state := make(map[string]*tensor.RawTensor, len(r.header.Tensors))
	for _, meta := range r.header.Tensors {
		dtype, _ := stringToDtype(meta.DType)

		raw, err := tensor.NewRaw(tensor.Shape(meta.Shape), dtype, device)
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", meta.Name, err)
		}
		if _, err := r.file.ReadAt(raw.Data(), r.dataOffset+meta.Offset); err != nil {
			return nil, fmt.Errorf("failed to read tensor %q: %w", meta.Name, err)
		}
		state[meta.Name] = raw
	}
	return state, nil
}

// LoadStateDict opens path and reads the full state dict in one call,
// returning the header for checkpoint metadata access.
func LoadStateDict(path string, device tensor.Device) (map[string]*tensor.RawTensor, Header, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, Header{}, err
	}
	defer r.Close()

	state, err := r.ReadStateDict(device)
	if err != nil {
		return nil, Header{}, err
	}
	return state, r.Header(), nil
}
