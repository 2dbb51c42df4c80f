package ops

import "github.com/ember-ml/ember/internal/tensor"

// reduceBroadcast collapses a gradient back to the shape of a forward
// input that was broadcast. Broadcasting aligns shapes from the right,
// so leading gradient dimensions are summed away and dimensions where
// the input had size 1 are summed with keepDim.
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()

	// Clone so a later in-place op cannot corrupt a shared gradient.
	if gradShape.Equal(targetShape) {
		return grad.Clone()
	}

	result := grad
	for len(result.Shape()) > len(targetShape) {
		result = backend.SumDim(result, 0, false)
	}

	resultShape := result.Shape()
	for i := range targetShape {
		if targetShape[i] == 1 && resultShape[i] > 1 {
			result = backend.SumDim(result, i, true)
			resultShape = result.Shape()
		}
	}

	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}
	return result
}
