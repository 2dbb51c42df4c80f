package dataset

import (
	"fmt"
	"math/rand"

	"github.com/ember-ml/ember/internal/tensor"
)

// Batch is one mini-batch ready for the model. Images are stacked as
// [batch, 1, rows, cols] float32, labels as [batch] int32. Batches are
// built per step and can be discarded after use.
type Batch[B tensor.Backend] struct {
	Images *tensor.Tensor[float32, B]
	Labels *tensor.Tensor[int32, B]
	Size   int
}

// LoaderConfig configures iteration order. Shuffle is off by default,
// which keeps the batch order deterministic.
type LoaderConfig struct {
	BatchSize int
	Shuffle   bool
	Seed      int64
}

// Loader walks a dataset in mini-batches.
type Loader[B tensor.Backend] struct {
	dataset *Dataset
	backend B
	config  LoaderConfig
	rng     *rand.Rand
	indices []int
	pos     int
}

// NewLoader creates a loader over dataset. Panics on a non-positive
// batch size.
func NewLoader[B tensor.Backend](dataset *Dataset, config LoaderConfig, backend B) *Loader[B] {
	if config.BatchSize <= 0 {
		panic(fmt.Sprintf("NewLoader: batch size %d must be positive", config.BatchSize))
	}

	l := &Loader[B]{
		dataset: dataset,
		backend: backend,
		config:  config,
		indices: make([]int, dataset.Len()),
	}
	if config.Shuffle {
		l.rng = rand.New(rand.NewSource(config.Seed))
	}
	for i := range l.indices {
		l.indices[i] = i
	}
	l.Reset()
	return l
}

// NumSamples returns the total sample count.
func (l *Loader[B]) NumSamples() int {
	return l.dataset.Len()
}

// NumBatches returns how many batches one full pass yields.
func (l *Loader[B]) NumBatches() int {
	return (l.dataset.Len() + l.config.BatchSize - 1) / l.config.BatchSize
}

// Reset rewinds the loader for a new epoch, reshuffling when enabled.
func (l *Loader[B]) Reset() {
	l.pos = 0
	if l.config.Shuffle {
		l.rng.Shuffle(len(l.indices), func(i, j int) {
			l.indices[i], l.indices[j] = l.indices[j], l.indices[i]
		})
	}
}

// Next assembles the next batch. The final batch of a pass may hold
// fewer than BatchSize samples. Returns false when the pass is done.
func (l *Loader[B]) Next() (*Batch[B], bool) {
	if l.pos >= len(l.indices) {
		return nil, false
	}

	end := l.pos + l.config.BatchSize
	if end > len(l.indices) {
		end = len(l.indices)
	}
	size := end - l.pos
	pixels := l.dataset.Rows * l.dataset.Cols

	imagesRaw, err := tensor.NewRaw(tensor.Shape{size, 1, l.dataset.Rows, l.dataset.Cols}, tensor.Float32, l.backend.Device())
	if err != nil {
		panic(err)
	}
	labelsRaw, err := tensor.NewRaw(tensor.Shape{size}, tensor.Int32, l.backend.Device())
	if err != nil {
		panic(err)
	}

	imagesData := imagesRaw.AsFloat32()
	labelsData := labelsRaw.AsInt32()
	for i := 0; i < size; i++ {
		idx := l.indices[l.pos+i]
		row := imagesData[i*pixels : (i+1)*pixels]
		copy(row, l.dataset.Images[idx])
		if l.dataset.Transform != nil {
			l.dataset.Transform(row)
		}
		labelsData[i] = l.dataset.Labels[idx]
	}
	l.pos = end

	return &Batch[B]{
		Images: tensor.New[float32, B](imagesRaw, l.backend),
		Labels: tensor.New[int32, B](labelsRaw, l.backend),
		Size:   size,
	}, true
}
