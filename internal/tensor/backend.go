package tensor

// Backend is the interface every compute backend implements. The typed
// Tensor API dispatches all math through it, so decorators (such as the
// autodiff tape) can wrap any implementation.
//
// Implementations:
//   - backend/cpu: portable Go kernels, always available
//   - backend/webgpu: GPU compute via WebGPU, availability probed at runtime
//   - autodiff: decorator that records operations for backpropagation
type Backend interface {
	// Element-wise binary operations with broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Matrix multiplication for 2-D tensors: (M,K) @ (K,N) -> (M,N).
	MatMul(a, b *RawTensor) *RawTensor

	// Shape operations.
	Reshape(t *RawTensor, shape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Element-wise scalar and math operations (float32 only).
	MulScalar(x *RawTensor, s float32) *RawTensor
	Exp(x *RawTensor) *RawTensor
	Log(x *RawTensor) *RawTensor

	// Softmax along a dimension (float32 only).
	Softmax(x *RawTensor, dim int) *RawTensor

	// Reductions.
	Sum(x *RawTensor) *RawTensor
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	Argmax(x *RawTensor, dim int) *RawTensor

	// Metadata.
	Name() string
	Device() Device
}
