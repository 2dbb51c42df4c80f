package nn

import (
	"fmt"

	"github.com/ember-ml/ember/internal/tensor"
)

// CrossEntropyBackend is satisfied by backends with a fused
// softmax + negative-log-likelihood kernel.
type CrossEntropyBackend interface {
	CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor
}

// CrossEntropyLoss computes the mean cross-entropy between logits
// [batch, classes] and target class indices [batch].
type CrossEntropyLoss[B tensor.Backend] struct{}

// NewCrossEntropyLoss creates the loss module.
func NewCrossEntropyLoss[B tensor.Backend]() *CrossEntropyLoss[B] {
	return &CrossEntropyLoss[B]{}
}

// Forward returns the scalar mean loss.
func (c *CrossEntropyLoss[B]) Forward(logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	backend := logits.Backend()
	ceb, ok := any(backend).(CrossEntropyBackend)
	if !ok {
		panic("CrossEntropyLoss: backend does not implement the CrossEntropy operation")
	}
	return tensor.New[float32, B](ceb.CrossEntropy(logits.Raw(), targets.Raw()), backend)
}

// Accuracy returns the fraction of rows where the argmax of the logits
// equals the target class.
func Accuracy[B tensor.Backend](logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) float64 {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("Accuracy: expected 2D logits, got %v", shape))
	}
	if targets.NumElements() != shape[0] {
		panic(fmt.Sprintf("Accuracy: %d targets for %d rows", targets.NumElements(), shape[0]))
	}

	predictions := tensor.Argmax(logits, 1)
	predData := predictions.Data()
	targetData := targets.Data()

	correct := 0
	for i := range predData {
		if predData[i] == targetData[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(predData))
}
