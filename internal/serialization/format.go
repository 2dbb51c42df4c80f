// Package serialization reads and writes the .ember model file format.
//
// Layout:
//
//	magic "EMBR"   4 bytes
//	version        uint32 little-endian
//	flags          uint32 little-endian
//	header size    uint64 little-endian
//	checksum       32 bytes, SHA-256 of the data section
//	header         JSON, header size bytes
//	padding        zero bytes up to a 64-byte boundary
//	data section   raw tensor bytes at the offsets the header declares
package serialization

import (
	"time"

	"github.com/ember-ml/ember/internal/tensor"
)

// Format constants.
const (
	MagicBytes    = "EMBR"
	FormatVersion = 1
	DataAlignment = 64
	ChecksumSize  = 32

	// fixedPrefixSize is everything before the JSON header.
	fixedPrefixSize = 4 + 4 + 4 + 8 + ChecksumSize
)

// Flags stored in the file header.
const (
	FlagHasOptimizer uint32 = 1 << 0
	FlagHasMetadata  uint32 = 1 << 1
)

// Header is the JSON header of a .ember file.
type Header struct {
	FormatVersion  int               `json:"format_version"`
	EmberVersion   string            `json:"ember_version"`
	ModelType      string            `json:"model_type"`
	CreatedAt      time.Time         `json:"created_at"`
	Tensors        []TensorMeta      `json:"tensors"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CheckpointMeta *CheckpointMeta   `json:"checkpoint,omitempty"`
}

// CheckpointMeta carries training state alongside the weights so a run
// can resume where it stopped.
type CheckpointMeta struct {
	Epoch         int     `json:"epoch"`
	Step          int64   `json:"step"`
	Loss          float64 `json:"loss"`
	OptimizerType string  `json:"optimizer_type,omitempty"`
}

// TensorMeta locates one tensor inside the data section.
type TensorMeta struct {
	Name   string `json:"name"`
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"`
	Size   int64  `json:"size"`
}

const (
	dtypeFloat32 = "float32"
	dtypeInt32   = "int32"
	dtypeUint8   = "uint8"
)

func dtypeToString(dt tensor.DataType) string {
	switch dt {
	case tensor.Float32:
		return dtypeFloat32
	case tensor.Int32:
		return dtypeInt32
	case tensor.Uint8:
		return dtypeUint8
	default:
		return "unknown"
	}
}

func stringToDtype(s string) (tensor.DataType, bool) {
	switch s {
	case dtypeFloat32:
		return tensor.Float32, true
	case dtypeInt32:
		return tensor.Int32, true
	case dtypeUint8:
		return tensor.Uint8, true
	default:
		return 0, false
	}
}
