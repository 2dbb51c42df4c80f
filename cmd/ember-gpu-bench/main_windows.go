//go:build windows

// Command ember-gpu-bench compares CPU and WebGPU forward-pass latency
// for the MNIST MLP. It builds the same random weights on both
// backends and times repeated inference over a synthetic batch.
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/ember-ml/ember/internal/backend/cpu"
	"github.com/ember-ml/ember/internal/backend/webgpu"
	"github.com/ember-ml/ember/internal/model"
	"github.com/ember-ml/ember/internal/tensor"
)

// inferenceBackend is what forward needs: the standard backend
// operations plus a ReLU kernel.
type inferenceBackend interface {
	tensor.Backend
	ReLU(x *tensor.RawTensor) *tensor.RawTensor
}

type weights struct {
	w1, b1 *tensor.RawTensor
	w2, b2 *tensor.RawTensor
	w3, b3 *tensor.RawTensor
}

func main() {
	batchSize := flag.Int("batch", 64, "Batch size for inference")
	iterations := flag.Int("iterations", 50, "Number of timed iterations")
	warmup := flag.Int("warmup", 5, "Number of warmup iterations")
	seed := flag.Int64("seed", 1, "Random seed for weights and inputs")
	flag.Parse()

	fmt.Println("ember - CPU vs WebGPU inference benchmark")
	fmt.Printf("Batch size: %d, iterations: %d, warmup: %d\n", *batchSize, *iterations, *warmup)
	fmt.Printf("Model: %d -> %d -> %d -> %d\n\n",
		model.InputPixels, model.HiddenSize, model.HiddenSize, model.NumClasses)

	if !webgpu.IsAvailable() {
		fmt.Println("WebGPU not available on this system.")
		fmt.Println("Ensure wgpu-native is installed and accessible.")
		return
	}

	gpuBackend, err := webgpu.New()
	if err != nil {
		fmt.Printf("Failed to create WebGPU backend: %v\n", err)
		return
	}
	defer gpuBackend.Release()
	fmt.Printf("GPU: %s\n\n", gpuBackend.Name())

	cpuBackend := cpu.New()
	rng := rand.New(rand.NewSource(*seed))

	input := randomRaw(rng, tensor.Shape{*batchSize, model.InputPixels}, tensor.CPU)
	cpuWeights := randomWeights(rng, tensor.CPU)

	gpuInput := copyTo(input, tensor.WebGPU)
	gpuWeights := weights{
		w1: copyTo(cpuWeights.w1, tensor.WebGPU),
		b1: copyTo(cpuWeights.b1, tensor.WebGPU),
		w2: copyTo(cpuWeights.w2, tensor.WebGPU),
		b2: copyTo(cpuWeights.b2, tensor.WebGPU),
		w3: copyTo(cpuWeights.w3, tensor.WebGPU),
		b3: copyTo(cpuWeights.b3, tensor.WebGPU),
	}

	cpuAvg, cpuMin, cpuMax := bench(cpuBackend, input, cpuWeights, *warmup, *iterations)
	gpuAvg, gpuMin, gpuMax := bench(gpuBackend, gpuInput, gpuWeights, *warmup, *iterations)

	fmt.Printf("%-10s %12s %12s %12s\n", "Backend", "Avg (ms)", "Min (ms)", "Max (ms)")
	fmt.Printf("%-10s %12.2f %12.2f %12.2f\n", "CPU", ms(cpuAvg), ms(cpuMin), ms(cpuMax))
	fmt.Printf("%-10s %12.2f %12.2f %12.2f\n", "WebGPU", ms(gpuAvg), ms(gpuMin), ms(gpuMax))

	speedup := float64(cpuAvg) / float64(gpuAvg)
	if speedup > 1 {
		fmt.Printf("\nSpeedup: %.2fx (GPU faster)\n", speedup)
	} else {
		fmt.Printf("\nSpeedup: %.2fx (CPU faster)\n", speedup)
	}
	fmt.Printf("Throughput: CPU %.0f samples/sec, GPU %.0f samples/sec\n",
		float64(*batchSize)/cpuAvg.Seconds(),
		float64(*batchSize)/gpuAvg.Seconds())
}

// forward runs one inference pass. Biases are shaped [1, features] so
// the backend's broadcasting Add applies them row-wise.
func forward(backend inferenceBackend, input *tensor.RawTensor, w weights) *tensor.RawTensor {
	h1 := backend.ReLU(backend.Add(backend.MatMul(input, w.w1), w.b1))
	h2 := backend.ReLU(backend.Add(backend.MatMul(h1, w.w2), w.b2))
	return backend.Softmax(backend.Add(backend.MatMul(h2, w.w3), w.b3), 1)
}

func bench(backend inferenceBackend, input *tensor.RawTensor, w weights, warmup, iterations int) (avg, min, max time.Duration) {
	for i := 0; i < warmup; i++ {
		_ = forward(backend, input, w)
	}

	var total time.Duration
	min = time.Duration(math.MaxInt64)
	for i := 0; i < iterations; i++ {
		start := time.Now()
		_ = forward(backend, input, w)
		elapsed := time.Since(start)
		total += elapsed
		if elapsed < min {
			min = elapsed
		}
		if elapsed > max {
			max = elapsed
		}
	}
	return total / time.Duration(iterations), min, max
}

func randomWeights(rng *rand.Rand, device tensor.Device) weights {
	return weights{
		w1: randomRaw(rng, tensor.Shape{model.InputPixels, model.HiddenSize}, device),
		b1: randomRaw(rng, tensor.Shape{1, model.HiddenSize}, device),
		w2: randomRaw(rng, tensor.Shape{model.HiddenSize, model.HiddenSize}, device),
		b2: randomRaw(rng, tensor.Shape{1, model.HiddenSize}, device),
		w3: randomRaw(rng, tensor.Shape{model.HiddenSize, model.NumClasses}, device),
		b3: randomRaw(rng, tensor.Shape{1, model.NumClasses}, device),
	}
}

func randomRaw(rng *rand.Rand, shape tensor.Shape, device tensor.Device) *tensor.RawTensor {
	raw, err := tensor.NewRaw(shape, tensor.Float32, device)
	if err != nil {
		panic(err)
	}
	data := raw.AsFloat32()
	for i := range data {
		data[i] = rng.Float32()*0.2 - 0.1
	}
	return raw
}

func copyTo(src *tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	dst, err := tensor.NewRaw(src.Shape(), src.DType(), device)
	if err != nil {
		panic(err)
	}
	copy(dst.Data(), src.Data())
	return dst
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
