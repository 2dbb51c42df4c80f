package tensor

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// buffer is a reference-counted byte slice shared between RawTensor views.
// Reference counting enables cheap clones and lets backends mutate in place
// when they hold the only reference.
type buffer struct {
	data     []byte
	refCount atomic.Int32
}

func newBuffer(size int) *buffer {
	b := &buffer{data: make([]byte, size)}
	b.refCount.Store(1)
	return b
}

func (b *buffer) addRef()        { b.refCount.Add(1) }
func (b *buffer) release()       { b.refCount.Add(-1) }
func (b *buffer) isUnique() bool { return b.refCount.Load() == 1 }

// RawTensor is the untyped tensor representation that backends operate on.
// It pairs a shared byte buffer with shape, stride and type metadata.
type RawTensor struct {
	buf    *buffer
	shape  Shape
	stride []int
	dtype  DataType
	device Device
}

// NewRaw allocates a zero-filled RawTensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &RawTensor{
		buf:    newBuffer(shape.NumElements() * dtype.Size()),
		shape:  shape.Clone(),
		stride: shape.Strides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape { return r.shape }

// Strides returns the tensor's row-major strides.
func (r *RawTensor) Strides() []int { return r.stride }

// DType returns the tensor's element type.
func (r *RawTensor) DType() DataType { return r.dtype }

// Device returns the tensor's compute target.
func (r *RawTensor) Device() Device { return r.device }

// NumElements returns the total element count.
func (r *RawTensor) NumElements() int { return r.shape.NumElements() }

// ByteSize returns the memory footprint in bytes.
func (r *RawTensor) ByteSize() int { return r.NumElements() * r.dtype.Size() }

// Data exposes the raw backing bytes. Mutations are visible to every view.
func (r *RawTensor) Data() []byte { return r.buf.data }

// AsFloat32 reinterprets the data as []float32. Panics on dtype mismatch.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	if len(r.buf.data) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.buf.data[0])), r.NumElements())
}

// AsInt32 reinterprets the data as []int32. Panics on dtype mismatch.
func (r *RawTensor) AsInt32() []int32 {
	if r.dtype != Int32 {
		panic(fmt.Sprintf("tensor dtype is %s, not int32", r.dtype))
	}
	if len(r.buf.data) == 0 {
		return nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&r.buf.data[0])), r.NumElements())
}

// AsUint8 reinterprets the data as []uint8. Panics on dtype mismatch.
func (r *RawTensor) AsUint8() []uint8 {
	if r.dtype != Uint8 {
		panic(fmt.Sprintf("tensor dtype is %s, not uint8", r.dtype))
	}
	return r.buf.data
}

// Clone returns a shallow copy sharing the same buffer. The reference count
// is bumped so in-place optimizations see the buffer as shared.
func (r *RawTensor) Clone() *RawTensor {
	r.buf.addRef()
	return &RawTensor{
		buf:    r.buf,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
		device: r.device,
	}
}

// IsUnique reports whether this tensor holds the only reference to its
// buffer, in which case a backend may safely overwrite it in place.
func (r *RawTensor) IsUnique() bool { return r.buf.isUnique() }

// Retain temporarily bumps the reference count so no backend performs an
// in-place update while the returned release function has not run. The
// autodiff tape uses this to keep recorded inputs intact.
//
//	defer t.Retain()()
func (r *RawTensor) Retain() func() {
	r.buf.addRef()
	return r.buf.release
}
