package ops

import (
	"fmt"
	"math"

	"github.com/ember-ml/ember/internal/tensor"
)

// CrossEntropyOp records the fused softmax + negative log-likelihood
// loss used for classification.
//
// Forward: loss = mean_b(-log_softmax(logits[b])[targets[b]]), computed
// with the log-sum-exp trick.
//
// Backward: dL/dlogits = (softmax(logits) - one_hot(targets)) / batch.
type CrossEntropyOp struct {
	logits  *tensor.RawTensor // [batch, classes]
	targets *tensor.RawTensor // [batch] class indices
	output  *tensor.RawTensor // [1] mean loss
}

// NewCrossEntropyOp creates a CrossEntropyOp.
func NewCrossEntropyOp(logits, targets, output *tensor.RawTensor) *CrossEntropyOp {
	return &CrossEntropyOp{logits: logits, targets: targets, output: output}
}

// Inputs returns only the logits. Targets are class indices and carry
// no gradient.
func (op *CrossEntropyOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.logits}
}

func (op *CrossEntropyOp) Output() *tensor.RawTensor { return op.output }

func (op *CrossEntropyOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.logits.Shape()
	if len(shape) != 2 {
		panic("cross entropy: backward needs 2D logits [batch, classes]")
	}
	batch, classes := shape[0], shape[1]

	grad, err := tensor.NewRaw(shape, op.logits.DType(), op.logits.Device())
	if err != nil {
		panic(err)
	}

	logitsData := op.logits.AsFloat32()
	targetsData := op.targets.AsInt32()
	gradData := grad.AsFloat32()
	gradScale := outputGrad.AsFloat32()[0]

	for b := 0; b < batch; b++ {
		row := logitsData[b*classes : (b+1)*classes]
		probs := softmaxRow(row)

		target := int(targetsData[b])
		for i := 0; i < classes; i++ {
			g := probs[i]
			if i == target {
				g -= 1
			}
			gradData[b*classes+i] = gradScale * g / float32(batch)
		}
	}

	return []*tensor.RawTensor{grad}
}

// CrossEntropyForward computes the mean cross-entropy loss without
// touching the tape. The autodiff backend records the matching op.
func CrossEntropyForward(logits, targets *tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic("cross entropy: logits must be 2D [batch, classes]")
	}
	if len(targets.Shape()) != 1 || targets.Shape()[0] != shape[0] {
		panic(fmt.Sprintf("cross entropy: targets %v do not match logits %v", targets.Shape(), shape))
	}

	batch, classes := shape[0], shape[1]

	output, err := tensor.NewRaw(tensor.Shape{1}, logits.DType(), device)
	if err != nil {
		panic(err)
	}

	logitsData := logits.AsFloat32()
	targetsData := targets.AsInt32()

	var total float32
	for b := 0; b < batch; b++ {
		row := logitsData[b*classes : (b+1)*classes]

		target := int(targetsData[b])
		if target < 0 || target >= classes {
			panic(fmt.Sprintf("cross entropy: target %d out of range [0, %d)", target, classes))
		}

		// log_softmax(z)[t] = z[t] - (max(z) + log(sum exp(z - max(z))))
		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}
		var sumExp float64
		for _, v := range row {
			sumExp += math.Exp(float64(v - maxVal))
		}
		logSumExp := float64(maxVal) + math.Log(sumExp)

		total += -(row[target] - float32(logSumExp))
	}

	output.AsFloat32()[0] = total / float32(batch)
	return output
}

// softmaxRow computes stable softmax probabilities for one sample.
func softmaxRow(logits []float32) []float32 {
	probs := make([]float32, len(logits))

	maxVal := logits[0]
	for _, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	var sum float32
	for i, v := range logits {
		e := float32(math.Exp(float64(v - maxVal)))
		probs[i] = e
		sum += e
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
