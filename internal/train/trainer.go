// Package train drives the optimization and evaluation loops.
package train

import (
	"fmt"
	"io"
	"os"

	"github.com/ember-ml/ember/internal/autodiff"
	"github.com/ember-ml/ember/internal/dataset"
	"github.com/ember-ml/ember/internal/nn"
	"github.com/ember-ml/ember/internal/optim"
	"github.com/ember-ml/ember/internal/tensor"
)

// Config controls loop behavior. LogEvery is the batch interval between
// progress lines; 0 means the default of 100.
type Config struct {
	LogEvery int
	Output   io.Writer
}

// Metrics summarizes one pass over a loader. AvgLoss is the summed
// batch loss divided by the number of batches; Accuracy is the fraction
// of correctly classified samples.
type Metrics struct {
	AvgLoss  float64
	Accuracy float64
}

// Trainer runs training and evaluation passes for one model. The tape
// of the autodiff backend is the gradient accumulator: it is cleared at
// the start of every training step.
type Trainer[B tensor.Backend] struct {
	model     nn.Module[*autodiff.Backend[B]]
	optimizer optim.Optimizer
	backend   *autodiff.Backend[B]
	config    Config
}

// New creates a Trainer. The model must already live on backend.
func New[B tensor.Backend](model nn.Module[*autodiff.Backend[B]], optimizer optim.Optimizer, backend *autodiff.Backend[B], config Config) *Trainer[B] {
	if config.LogEvery <= 0 {
		config.LogEvery = 100
	}
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Trainer[B]{
		model:     model,
		optimizer: optimizer,
		backend:   backend,
		config:    config,
	}
}

// TrainEpoch makes one full pass over the loader: per batch, forward,
// loss, tape reset and backward, then an optimizer step. Every LogEvery
// batches it prints the running loss and samples processed so far.
func (t *Trainer[B]) TrainEpoch(loader *dataset.Loader[*autodiff.Backend[B]]) Metrics {
	loader.Reset()
	t.backend.Tape().StartRecording()

	total := loader.NumSamples()
	totalLoss := 0.0
	numBatches := 0
	correct := 0
	processed := 0

	for {
		batch, ok := loader.Next()
		if !ok {
			break
		}

		t.backend.Tape().Clear()

		logits := t.model.Forward(batch.Images)
		lossRaw := t.backend.CrossEntropy(logits.Raw(), batch.Labels.Raw())
		lossValue := float64(lossRaw.AsFloat32()[0])

		grads := t.backend.Tape().Backward(onesLike(lossRaw, t.backend.Device()), t.backend)
		t.optimizer.Step(grads)

		totalLoss += lossValue
		correct += countCorrect(logits, batch.Labels)
		processed += batch.Size
		numBatches++

		if numBatches%t.config.LogEvery == 0 {
			fmt.Fprintf(t.config.Output, "loss: %f  [%d/%d]\n", lossValue, processed, total)
		}
	}
	t.backend.Tape().Clear()

	return metricsFrom(totalLoss, numBatches, correct, processed)
}

// Evaluate makes one pass without touching parameters. Gradient
// recording is suspended for the whole pass and restored afterwards,
// even on panic.
func (t *Trainer[B]) Evaluate(loader *dataset.Loader[*autodiff.Backend[B]]) Metrics {
	loader.Reset()

	totalLoss := 0.0
	numBatches := 0
	correct := 0
	samples := 0

	t.backend.WithoutRecording(func() {
		for {
			batch, ok := loader.Next()
			if !ok {
				break
			}

			logits := t.model.Forward(batch.Images)
			lossRaw := t.backend.CrossEntropy(logits.Raw(), batch.Labels.Raw())

			totalLoss += float64(lossRaw.AsFloat32()[0])
			correct += countCorrect(logits, batch.Labels)
			samples += batch.Size
			numBatches++
		}
	})

	return metricsFrom(totalLoss, numBatches, correct, samples)
}

// Fit alternates training and evaluation for the given number of
// epochs, printing a summary line after each epoch.
func (t *Trainer[B]) Fit(trainLoader, testLoader *dataset.Loader[*autodiff.Backend[B]], epochs int) Metrics {
	var metrics Metrics
	for epoch := 1; epoch <= epochs; epoch++ {
		fmt.Fprintf(t.config.Output, "Epoch %d\n-------------------------------\n", epoch)
		t.TrainEpoch(trainLoader)
		metrics = t.Evaluate(testLoader)
		fmt.Fprintf(t.config.Output, "Test Error: Accuracy: %.1f%%, Avg loss: %f\n\n", metrics.Accuracy*100, metrics.AvgLoss)
	}
	return metrics
}

func metricsFrom(totalLoss float64, numBatches, correct, samples int) Metrics {
	var m Metrics
	if numBatches > 0 {
		m.AvgLoss = totalLoss / float64(numBatches)
	}
	if samples > 0 {
		m.Accuracy = float64(correct) / float64(samples)
	}
	return m
}

func countCorrect[B tensor.Backend](logits *tensor.Tensor[float32, B], labels *tensor.Tensor[int32, B]) int {
	predictions := tensor.Argmax(logits, 1)
	predicted := predictions.Data()
	want := labels.Data()

	correct := 0
	for i := range want {
		if predicted[i] == want[i] {
			correct++
		}
	}
	return correct
}

func onesLike(t *tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	grad, err := tensor.NewRaw(t.Shape(), t.DType(), device)
	if err != nil {
		panic(err)
	}
	for i := range grad.AsFloat32() {
		grad.AsFloat32()[i] = 1.0
	}
	return grad
}
