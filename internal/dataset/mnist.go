package dataset

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/ember-ml/ember/internal/parallel"
)

// Split selects the training or test portion of MNIST.
type Split string

const (
	Train Split = "train"
	Test  Split = "t10k"
)

// mirrorURL hosts the official IDX files gzipped.
const mirrorURL = "https://ossci-datasets.s3.amazonaws.com/mnist/"

// Transform mutates one image in place before it is batched, e.g. for
// normalization tweaks or augmentation.
type Transform func(image []float32)

// Dataset holds a loaded split: images normalized to [0, 1] and labels
// in [0, 9].
type Dataset struct {
	Images [][]float32 // [numSamples][rows*cols]
	Labels []int32     // [numSamples]
	Rows   int
	Cols   int

	// Transform, when set, is applied to a copy of each image as the
	// loader assembles a batch. The stored images are never mutated.
	Transform Transform
}

// Load reads a MNIST split from dir. With download true, missing files
// are fetched from the public mirror and gunzipped into dir first.
func Load(dir string, split Split, download bool) (*Dataset, error) {
	if split != Train && split != Test {
		return nil, fmt.Errorf("unknown split %q", split)
	}

	imagesFile := fmt.Sprintf("%s-images-idx3-ubyte", split)
	labelsFile := fmt.Sprintf("%s-labels-idx1-ubyte", split)

	for _, name := range []string{imagesFile, labelsFile} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if !download {
			return nil, fmt.Errorf("missing %s (pass download to fetch it)", path)
		}
		if err := fetchAndGunzip(mirrorURL+name+".gz", path); err != nil {
			return nil, fmt.Errorf("download %s: %w", name, err)
		}
	}

	raw, rows, cols, err := readIDXImages(filepath.Join(dir, imagesFile))
	if err != nil {
		return nil, fmt.Errorf("load images: %w", err)
	}
	labelBytes, err := readIDXLabels(filepath.Join(dir, labelsFile))
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}
	if len(raw) != len(labelBytes) {
		return nil, fmt.Errorf("image count (%d) != label count (%d)", len(raw), len(labelBytes))
	}

	images := make([][]float32, len(raw))
	labels := make([]int32, len(labelBytes))
	parallel.For(len(raw), func(i int) {
		pixels := make([]float32, len(raw[i]))
		for j, p := range raw[i] {
			pixels[j] = float32(p) / 255.0
		}
		images[i] = pixels
	}, parallel.DefaultConfig())

	for i, l := range labelBytes {
		if l > 9 {
			return nil, fmt.Errorf("label out of range at sample %d: %d", i, l)
		}
		labels[i] = int32(l)
	}

	return &Dataset{Images: images, Labels: labels, Rows: rows, Cols: cols}, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.Images)
}

// Split divides the dataset into two parts, the second holding ratio of
// the samples. Slices are shared, not copied.
func (d *Dataset) Split(ratio float64) (*Dataset, *Dataset) {
	if ratio < 0 || ratio > 1 {
		panic(fmt.Sprintf("Dataset.Split: ratio %f outside [0, 1]", ratio))
	}
	cut := int(float64(d.Len()) * (1 - ratio))
	first := &Dataset{Images: d.Images[:cut], Labels: d.Labels[:cut], Rows: d.Rows, Cols: d.Cols, Transform: d.Transform}
	second := &Dataset{Images: d.Images[cut:], Labels: d.Labels[cut:], Rows: d.Rows, Cols: d.Cols, Transform: d.Transform}
	return first, second
}

func fetchAndGunzip(url, dest string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("gunzip: %w", err)
	}
	defer gz.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, gz); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return out.Close()
}
