package nn

import (
	"fmt"
	"strings"

	"github.com/ember-ml/ember/internal/serialization"
	"github.com/ember-ml/ember/internal/tensor"
)

// optimizerStatePrefix separates optimizer tensors from model tensors
// inside the combined checkpoint state dict.
const optimizerStatePrefix = "optimizer."

// OptimizerState is the slice of an optimizer a checkpoint needs. It is
// declared here rather than in optim to avoid an import cycle; the optim
// package's optimizers satisfy it.
type OptimizerState interface {
	StateDict() map[string]*tensor.RawTensor
	LoadStateDict(state map[string]*tensor.RawTensor) error
	Name() string
}

// Checkpoint is a full training snapshot: model parameters, optimizer
// state, and where in the run the snapshot was taken.
type Checkpoint[B tensor.Backend] struct {
	Model     Module[B]
	Optimizer OptimizerState
	Epoch     int
	Step      int64
	Loss      float64
}

// Save writes the checkpoint to an .ember file. Optimizer tensors are
// stored under an "optimizer." prefix next to the model tensors.
func (c *Checkpoint[B]) Save(path string) error {
	combined := make(map[string]*tensor.RawTensor)
	for name, raw := range c.Model.StateDict() {
		combined[name] = raw
	}

	meta := &serialization.CheckpointMeta{
		Epoch: c.Epoch,
		Step:  c.Step,
		Loss:  c.Loss,
	}
	if c.Optimizer != nil {
		for name, raw := range c.Optimizer.StateDict() {
			combined[optimizerStatePrefix+name] = raw
		}
		meta.OptimizerType = c.Optimizer.Name()
	}

	if err := serialization.SaveStateDict(path, combined, "Checkpoint", nil, meta); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// SaveCheckpoint saves model and optimizer state in one call.
func SaveCheckpoint[B tensor.Backend](path string, model Module[B], optimizer OptimizerState, epoch int, step int64, loss float64) error {
	c := &Checkpoint[B]{
		Model:     model,
		Optimizer: optimizer,
		Epoch:     epoch,
		Step:      step,
		Loss:      loss,
	}
	return c.Save(path)
}

// LoadCheckpoint restores a checkpoint into a pre-built model and
// optimizer. Both must match the architecture the file was saved from.
// A nil optimizer skips optimizer state, which lets a checkpoint be
// loaded for inference only.
func LoadCheckpoint[B tensor.Backend](path string, backend B, model Module[B], optimizer OptimizerState) (*Checkpoint[B], error) {
	state, header, err := serialization.LoadStateDict(path, backend.Device())
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if header.CheckpointMeta == nil {
		return nil, fmt.Errorf("load checkpoint: %s has no checkpoint metadata", path)
	}

	modelState := make(map[string]*tensor.RawTensor)
	optimizerState := make(map[string]*tensor.RawTensor)
	for name, raw := range state {
		if rest, ok := strings.CutPrefix(name, optimizerStatePrefix); ok {
			optimizerState[rest] = raw
		} else {
			modelState[name] = raw
		}
	}

	if err := model.LoadStateDict(modelState); err != nil {
		return nil, fmt.Errorf("load model state: %w", err)
	}
	if optimizer != nil {
		if err := optimizer.LoadStateDict(optimizerState); err != nil {
			return nil, fmt.Errorf("load optimizer state: %w", err)
		}
	}

	return &Checkpoint[B]{
		Model:     model,
		Optimizer: optimizer,
		Epoch:     header.CheckpointMeta.Epoch,
		Step:      header.CheckpointMeta.Step,
		Loss:      header.CheckpointMeta.Loss,
	}, nil
}
