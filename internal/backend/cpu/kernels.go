package cpu

import (
	"github.com/ember-ml/ember/internal/tensor"
)

type opKind int

const (
	addKind opKind = iota
	subKind
	mulKind
	divKind
)

type number interface {
	~float32 | ~int32
}

// ewiseInplace accumulates b into a. Shapes must already match.
func ewiseInplace[T number](a, b []T, kind opKind) {
	switch kind {
	case addKind:
		for i := range a {
			a[i] += b[i]
		}
	case subKind:
		for i := range a {
			a[i] -= b[i]
		}
	case mulKind:
		for i := range a {
			a[i] *= b[i]
		}
	case divKind:
		for i := range a {
			a[i] /= b[i]
		}
	}
}

// ewise writes a op b into dst. Shapes must already match.
func ewise[T number](dst, a, b []T, kind opKind) {
	switch kind {
	case addKind:
		for i := range a {
			dst[i] = a[i] + b[i]
		}
	case subKind:
		for i := range a {
			dst[i] = a[i] - b[i]
		}
	case mulKind:
		for i := range a {
			dst[i] = a[i] * b[i]
		}
	case divKind:
		for i := range a {
			dst[i] = a[i] / b[i]
		}
	}
}

// ewiseBroadcast walks the output index space, translating each output
// index back into the (possibly broadcast) operand buffers.
func ewiseBroadcast[T number](dst, a, b []T, aShape, bShape, outShape tensor.Shape, kind opKind) {
	outStrides := outShape.Strides()
	aStrides := broadcastStrides(aShape, outShape)
	bStrides := broadcastStrides(bShape, outShape)

	n := outShape.NumElements()
	for i := 0; i < n; i++ {
		av := a[flatIndex(i, outStrides, aStrides)]
		bv := b[flatIndex(i, outStrides, bStrides)]
		switch kind {
		case addKind:
			dst[i] = av + bv
		case subKind:
			dst[i] = av - bv
		case mulKind:
			dst[i] = av * bv
		case divKind:
			dst[i] = av / bv
		}
	}
}

// broadcastStrides maps inShape onto outShape: padded and size-1
// dimensions get stride 0 so they repeat.
func broadcastStrides(inShape, outShape tensor.Shape) []int {
	outDim := len(outShape)
	strides := make([]int, outDim)

	inDim := len(inShape)
	offset := outDim - inDim
	origStrides := inShape.Strides()

	for i := 0; i < outDim; i++ {
		inIdx := i - offset
		switch {
		case inIdx < 0:
			strides[i] = 0
		case inShape[inIdx] == 1:
			strides[i] = 0
		default:
			strides[i] = origStrides[inIdx]
		}
	}
	return strides
}

// flatIndex converts a flat output index into a flat source index using
// the broadcast-adjusted source strides.
func flatIndex(outIdx int, outStrides, inStrides []int) int {
	idx := 0
	for i := range outStrides {
		coord := outIdx / outStrides[i]
		outIdx %= outStrides[i]
		idx += coord * inStrides[i]
	}
	return idx
}
