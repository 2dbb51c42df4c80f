//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/ember-ml/ember/internal/tensor"
)

// compileShader compiles WGSL into a cached ShaderModule.
func (b *Backend) compileShader(name, code string) *wgpu.ShaderModule {
	b.mu.RLock()
	if shader, exists := b.shaders[name]; exists {
		b.mu.RUnlock()
		return shader
	}
	b.mu.RUnlock()

	shader := b.device.CreateShaderModuleWGSL(code)

	b.mu.Lock()
	b.shaders[name] = shader
	b.mu.Unlock()
	return shader
}

// pipelineFor returns the cached ComputePipeline for a shader, creating
// it with an auto layout on first use.
func (b *Backend) pipelineFor(name string, shader *wgpu.ShaderModule) *wgpu.ComputePipeline {
	b.mu.RLock()
	if pipeline, exists := b.pipelines[name]; exists {
		b.mu.RUnlock()
		return pipeline
	}
	b.mu.RUnlock()

	pipeline := b.device.CreateComputePipelineSimple(nil, shader, "main")

	b.mu.Lock()
	b.pipelines[name] = pipeline
	b.mu.Unlock()
	return pipeline
}

// uploadBuffer creates a storage buffer initialized with data.
func (b *Backend) uploadBuffer(data []byte) *wgpu.Buffer {
	size := uint64(len(data))
	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})

	mapped := unsafe.Slice((*byte)(buffer.GetMappedRange(0, size)), size)
	copy(mapped, data)
	buffer.Unmap()
	return buffer
}

// resultBuffer creates an uninitialized storage buffer the shaders
// write into and the staging path reads out of.
func (b *Backend) resultBuffer(size uint64) *wgpu.Buffer {
	return b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
}

// paramsBuffer packs up to three u32 values into a 16-byte aligned
// uniform buffer.
func (b *Backend) paramsBuffer(values ...uint32) *wgpu.Buffer {
	const size = 16
	data := make([]byte, size)
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:(i+1)*4], v)
	}

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mapped := unsafe.Slice((*byte)(buffer.GetMappedRange(0, size)), size)
	copy(mapped, data)
	buffer.Unmap()
	return buffer
}

// dispatch binds the buffers in order and runs one compute pass.
func (b *Backend) dispatch(pipeline *wgpu.ComputePipeline, entries []wgpu.BindGroupEntry, groupsX, groupsY uint32) {
	bindGroup := b.device.CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), entries)
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(groupsX, groupsY, 1)
	pass.End()

	b.queue.Submit(encoder.Finish(nil))
}

// readBuffer copies a GPU buffer back to host memory via a staging
// buffer, since storage buffers cannot be mapped directly.
func (b *Backend) readBuffer(src *wgpu.Buffer, size uint64) ([]byte, error) {
	staging := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	b.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(b.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("map staging buffer: %w", err)
	}
	defer staging.Unmap()

	mapped := unsafe.Slice((*byte)(staging.GetMappedRange(0, size)), size)
	result := make([]byte, size)
	copy(result, mapped)
	return result, nil
}

func groupCount(n, per uint32) uint32 {
	return (n + per - 1) / per
}

func (b *Backend) runBinaryOp(a, other *tensor.RawTensor, name, code string) (*tensor.RawTensor, error) {
	numElements := uint32(a.NumElements())
	size := uint64(a.ByteSize())

	pipeline := b.pipelineFor(name, b.compileShader(name, code))

	bufferA := b.uploadBuffer(a.Data())
	defer bufferA.Release()
	bufferOther := b.uploadBuffer(other.Data())
	defer bufferOther.Release()
	bufferResult := b.resultBuffer(size)
	defer bufferResult.Release()
	bufferParams := b.paramsBuffer(numElements)
	defer bufferParams.Release()

	b.dispatch(pipeline, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufferA, 0, size),
		wgpu.BufferBindingEntry(1, bufferOther, 0, size),
		wgpu.BufferBindingEntry(2, bufferResult, 0, size),
		wgpu.BufferBindingEntry(3, bufferParams, 0, 16),
	}, groupCount(numElements, workgroupSize), 1)

	data, err := b.readBuffer(bufferResult, size)
	if err != nil {
		return nil, err
	}
	return b.newResult(a.Shape(), data)
}

func (b *Backend) runUnaryOp(input *tensor.RawTensor, name, code string) (*tensor.RawTensor, error) {
	numElements := uint32(input.NumElements())
	size := uint64(input.ByteSize())

	pipeline := b.pipelineFor(name, b.compileShader(name, code))

	bufferInput := b.uploadBuffer(input.Data())
	defer bufferInput.Release()
	bufferResult := b.resultBuffer(size)
	defer bufferResult.Release()
	bufferParams := b.paramsBuffer(numElements)
	defer bufferParams.Release()

	b.dispatch(pipeline, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufferInput, 0, size),
		wgpu.BufferBindingEntry(1, bufferResult, 0, size),
		wgpu.BufferBindingEntry(2, bufferParams, 0, 16),
	}, groupCount(numElements, workgroupSize), 1)

	data, err := b.readBuffer(bufferResult, size)
	if err != nil {
		return nil, err
	}
	return b.newResult(input.Shape(), data)
}

func (b *Backend) runMatMul(a, other *tensor.RawTensor) (*tensor.RawTensor, error) {
	if a.DType() != tensor.Float32 || other.DType() != tensor.Float32 {
		return nil, fmt.Errorf("only float32 is supported, got %s and %s", a.DType(), other.DType())
	}
	if len(a.Shape()) != 2 || len(other.Shape()) != 2 {
		return nil, fmt.Errorf("matmul requires 2D tensors, got %v and %v", a.Shape(), other.Shape())
	}
	if a.Shape()[1] != other.Shape()[0] {
		return nil, fmt.Errorf("shape mismatch: %v @ %v", a.Shape(), other.Shape())
	}

	m := uint32(a.Shape()[0])
	k := uint32(a.Shape()[1])
	n := uint32(other.Shape()[1])

	pipeline := b.pipelineFor("matmul", b.compileShader("matmul", matmulShader))

	bufferA := b.uploadBuffer(a.Data())
	defer bufferA.Release()
	bufferOther := b.uploadBuffer(other.Data())
	defer bufferOther.Release()

	resultSize := uint64(int(m) * int(n) * 4)
	bufferResult := b.resultBuffer(resultSize)
	defer bufferResult.Release()
	bufferParams := b.paramsBuffer(m, k, n)
	defer bufferParams.Release()

	b.dispatch(pipeline, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufferA, 0, uint64(a.ByteSize())),
		wgpu.BufferBindingEntry(1, bufferOther, 0, uint64(other.ByteSize())),
		wgpu.BufferBindingEntry(2, bufferResult, 0, resultSize),
		wgpu.BufferBindingEntry(3, bufferParams, 0, 16),
	}, groupCount(n, 16), groupCount(m, 16))

	data, err := b.readBuffer(bufferResult, resultSize)
	if err != nil {
		return nil, err
	}
	return b.newResult(tensor.Shape{int(m), int(n)}, data)
}

func (b *Backend) runTranspose(input *tensor.RawTensor) (*tensor.RawTensor, error) {
	rows := uint32(input.Shape()[0])
	cols := uint32(input.Shape()[1])
	size := uint64(input.ByteSize())

	pipeline := b.pipelineFor("transpose", b.compileShader("transpose", transposeShader))

	bufferInput := b.uploadBuffer(input.Data())
	defer bufferInput.Release()
	bufferResult := b.resultBuffer(size)
	defer bufferResult.Release()
	bufferParams := b.paramsBuffer(rows, cols)
	defer bufferParams.Release()

	b.dispatch(pipeline, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufferInput, 0, size),
		wgpu.BufferBindingEntry(1, bufferResult, 0, size),
		wgpu.BufferBindingEntry(2, bufferParams, 0, 16),
	}, groupCount(cols, 16), groupCount(rows, 16))

	data, err := b.readBuffer(bufferResult, size)
	if err != nil {
		return nil, err
	}
	return b.newResult(tensor.Shape{int(cols), int(rows)}, data)
}

func (b *Backend) newResult(shape tensor.Shape, data []byte) (*tensor.RawTensor, error) {
	result, err := tensor.NewRaw(shape, tensor.Float32, tensor.WebGPU)
	if err != nil {
		return nil, err
	}
	copy(result.Data(), data)
	return result, nil
}
