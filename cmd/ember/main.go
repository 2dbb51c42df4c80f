// Command ember trains, evaluates and runs inference with an MLP
// classifier on the MNIST handwritten digit dataset.
//
// Usage:
//
//	ember train [flags]    train a model and save a checkpoint
//	ember eval [flags]     evaluate a saved checkpoint on the test set
//	ember infer [flags]    classify a single test image
//	ember version          print the version
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"

	"github.com/ember-ml/ember/internal/autodiff"
	"github.com/ember-ml/ember/internal/config"
	"github.com/ember-ml/ember/internal/dataset"
	"github.com/ember-ml/ember/internal/device"
	"github.com/ember-ml/ember/internal/model"
	"github.com/ember-ml/ember/internal/nn"
	"github.com/ember-ml/ember/internal/optim"
	"github.com/ember-ml/ember/internal/tensor"
	"github.com/ember-ml/ember/internal/train"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd := os.Args[1]

	if cmd == "version" {
		fmt.Printf("ember %s\n", version)
		return
	}

	cfg := config.Default()
	index := 0

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir, "Directory for MNIST data files")
	fs.StringVar(&cfg.Checkpoint, "checkpoint", cfg.Checkpoint, "Checkpoint file path")
	fs.IntVar(&cfg.Epochs, "epochs", cfg.Epochs, "Number of training epochs")
	fs.IntVar(&cfg.BatchSize, "batch", cfg.BatchSize, "Batch size")
	fs.Float64Var(&cfg.LR, "lr", cfg.LR, "Learning rate")
	fs.StringVar(&cfg.Optimizer, "optimizer", cfg.Optimizer, "Optimizer: sgd or adam")
	fs.StringVar(&cfg.Device, "device", cfg.Device, "Device: auto, cpu or webgpu")
	fs.IntVar(&cfg.LogEvery, "log-every", cfg.LogEvery, "Print training loss every N batches")
	fs.BoolVar(&cfg.Download, "download", cfg.Download, "Download MNIST data when missing")
	fs.BoolVar(&cfg.Synthetic, "synthetic", cfg.Synthetic, "Use synthetic data (for testing without MNIST files)")
	fs.BoolVar(&cfg.Shuffle, "shuffle", cfg.Shuffle, "Shuffle training data each epoch")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed for init and shuffling")
	fs.IntVar(&index, "index", index, "Test sample index for infer")

	switch cmd {
	case "train", "eval", "infer":
		fs.Parse(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	dev, err := device.Resolve(cfg.Device)
	if err != nil {
		log.Fatalf("device: %v", err)
	}
	fmt.Printf("Using %s device\n", strings.ToLower(dev.String()))

	if err := run(cmd, &cfg, index, dev); err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "ember - MNIST digit classification")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  ember train [flags]    train a model and save a checkpoint")
	fmt.Fprintln(os.Stderr, "  ember eval [flags]     evaluate a saved checkpoint on the test set")
	fmt.Fprintln(os.Stderr, "  ember infer [flags]    classify a single test image")
	fmt.Fprintln(os.Stderr, "  ember version          print the version")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Run 'ember <command> -h' for the command's flags.")
}

func runCommand[B tensor.Backend](cmd string, cfg *config.Config, index int, backend *autodiff.Backend[B]) error {
	switch cmd {
	case "train":
		return runTrain(cfg, backend)
	case "eval":
		return runEval(cfg, backend)
	case "infer":
		return runInfer(cfg, index, backend)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func runTrain[B tensor.Backend](cfg *config.Config, backend *autodiff.Backend[B]) error {
	trainData, err := loadSplit(cfg, dataset.Train)
	if err != nil {
		return err
	}
	testData, err := loadSplit(cfg, dataset.Test)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d training and %d test samples\n", trainData.Len(), testData.Len())

	trainLoader := dataset.NewLoader(trainData, dataset.LoaderConfig{
		BatchSize: cfg.BatchSize,
		Shuffle:   cfg.Shuffle,
		Seed:      cfg.Seed,
	}, backend)
	testLoader := dataset.NewLoader(testData, dataset.LoaderConfig{BatchSize: cfg.BatchSize}, backend)

	rng := rand.New(rand.NewSource(cfg.Seed))
	mlp := model.NewMLP(rng, backend)

	optimizer, err := newOptimizer(cfg, mlp.Parameters())
	if err != nil {
		return err
	}

	trainer := train.New[B](mlp, optimizer, backend, train.Config{LogEvery: cfg.LogEvery})
	metrics := trainer.Fit(trainLoader, testLoader, cfg.Epochs)
	fmt.Println("Done!")

	steps := int64(cfg.Epochs) * int64(trainLoader.NumBatches())
	if err := nn.SaveCheckpoint[*autodiff.Backend[B]](cfg.Checkpoint, mlp, optimizer, cfg.Epochs, steps, metrics.AvgLoss); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	fmt.Printf("Saved checkpoint to %s\n", cfg.Checkpoint)
	return nil
}

func runEval[B tensor.Backend](cfg *config.Config, backend *autodiff.Backend[B]) error {
	testData, err := loadSplit(cfg, dataset.Test)
	if err != nil {
		return err
	}
	mlp, checkpoint, err := restoreModel(cfg, backend)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded checkpoint %s (epoch %d, step %d)\n", cfg.Checkpoint, checkpoint.Epoch, checkpoint.Step)

	testLoader := dataset.NewLoader(testData, dataset.LoaderConfig{BatchSize: cfg.BatchSize}, backend)
	trainer := train.New[B](mlp, nil, backend, train.Config{LogEvery: cfg.LogEvery})
	metrics := trainer.Evaluate(testLoader)
	fmt.Printf("Accuracy: %.1f%%, Avg loss: %f\n", metrics.Accuracy*100, metrics.AvgLoss)
	return nil
}

func runInfer[B tensor.Backend](cfg *config.Config, index int, backend *autodiff.Backend[B]) error {
	testData, err := loadSplit(cfg, dataset.Test)
	if err != nil {
		return err
	}
	if index < 0 || index >= testData.Len() {
		return fmt.Errorf("sample index %d out of range [0, %d)", index, testData.Len())
	}
	mlp, _, err := restoreModel(cfg, backend)
	if err != nil {
		return err
	}

	image := testData.Images[index]
	input, err := tensor.FromSlice(image, tensor.Shape{1, 1, testData.Rows, testData.Cols}, backend)
	if err != nil {
		return err
	}

	var predicted int32
	backend.WithoutRecording(func() {
		logits := mlp.Forward(input)
		predicted = tensor.Argmax(logits, 1).Data()[0]
	})

	fmt.Println(renderImage(image, testData.Rows, testData.Cols))
	fmt.Printf("Predicted: %q, Actual: %q\n", digitName(predicted), digitName(testData.Labels[index]))
	return nil
}

func newOptimizer[B tensor.Backend](cfg *config.Config, params []*nn.Parameter[B]) (optim.Optimizer, error) {
	switch cfg.Optimizer {
	case "sgd":
		return optim.NewSGD(params, optim.SGDConfig{LR: float32(cfg.LR)}), nil
	case "adam":
		return optim.NewAdam(params, optim.AdamConfig{LR: float32(cfg.LR)}), nil
	}
	return nil, fmt.Errorf("unknown optimizer %q", cfg.Optimizer)
}

func restoreModel[B tensor.Backend](cfg *config.Config, backend *autodiff.Backend[B]) (*nn.Sequential[*autodiff.Backend[B]], *nn.Checkpoint[*autodiff.Backend[B]], error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	mlp := model.NewMLP(rng, backend)
	checkpoint, err := nn.LoadCheckpoint(cfg.Checkpoint, backend, mlp, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("load checkpoint: %w", err)
	}
	return mlp, checkpoint, nil
}

func loadSplit(cfg *config.Config, split dataset.Split) (*dataset.Dataset, error) {
	if cfg.Synthetic {
		trainData, testData := dataset.Synthetic(600).Split(0.2)
		if split == dataset.Train {
			return trainData, nil
		}
		return testData, nil
	}
	return dataset.Load(cfg.DataDir, split, cfg.Download)
}

func digitName(label int32) string {
	return fmt.Sprintf("%d", label)
}

// renderImage draws a grayscale image as ASCII art, one character per
// pixel, darker pixels mapped to denser glyphs.
func renderImage(image []float32, rows, cols int) string {
	const ramp = " .:-=+*#%@"
	var sb strings.Builder
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := image[r*cols+c]
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			sb.WriteByte(ramp[int(v*float32(len(ramp)-1))])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
