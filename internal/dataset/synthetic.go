package dataset

// Synthetic builds a deterministic stand-in dataset with one fixed
// pattern per digit, cycling labels 0-9. It is not real handwriting,
// but it exercises the full pipeline without MNIST files on disk.
func Synthetic(numSamples int) *Dataset {
	const rows, cols = 28, 28

	images := make([][]float32, numSamples)
	labels := make([]int32, numSamples)

	for i := 0; i < numSamples; i++ {
		digit := i % 10
		labels[i] = int32(digit)

		image := make([]float32, rows*cols)
		// A horizontal band whose position encodes the digit, so each
		// class is linearly separable from the others.
		startRow := digit * 2
		for row := startRow; row < startRow+8 && row < rows; row++ {
			for col := 5; col < 23; col++ {
				image[row*cols+col] = 0.8
			}
		}
		images[i] = image
	}

	return &Dataset{Images: images, Labels: labels, Rows: rows, Cols: cols}
}
