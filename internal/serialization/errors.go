package serialization

import "errors"

// Sentinel errors returned by the reader.
var (
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrTensorOutOfBounds  = errors.New("tensor extends beyond data section")
	ErrTensorSizeMismatch = errors.New("tensor size does not match shape and dtype")
	ErrUnknownDType       = errors.New("unknown tensor dtype")
)
