package cpu

import (
	"fmt"

	"github.com/ember-ml/ember/internal/parallel"
	"github.com/ember-ml/ember/internal/tensor"
)

// MatMul performs 2-D matrix multiplication: (M, K) @ (K, N) -> (M, N).
// Rows of the result are computed in parallel, with the inner loops
// blocked over K to stay cache resident.
func (c *Backend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape)))
	}

	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]
	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch [%d,%d] @ [%d,%d]", m, k, kAlt, n))
	}
	if a.DType() != tensor.Float32 || b.DType() != tensor.Float32 {
		panic(fmt.Sprintf("matmul: unsupported dtype %s", a.DType()))
	}

	result := c.newRaw("matmul", tensor.Shape{m, n}, tensor.Float32)
	matmulFloat32(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, k, n, c.blockK, c.parallel)
	return result
}

// matmulFloat32 computes C[i,j] = sum_k A[i,k] * B[k,j] with the k loop
// hoisted outermost inside each block so B is read row by row.
func matmulFloat32(cOut, a, b []float32, m, k, n, blockK int, cfg parallel.Config) {
	parallel.For(m, func(i int) {
		row := cOut[i*n : (i+1)*n]
		for j := range row {
			row[j] = 0
		}
		for k0 := 0; k0 < k; k0 += blockK {
			kEnd := min(k0+blockK, k)
			for kk := k0; kk < kEnd; kk++ {
				av := a[i*k+kk]
				if av == 0 {
					continue
				}
				bRow := b[kk*n : (kk+1)*n]
				for j, bv := range bRow {
					row[j] += av * bv
				}
			}
		}
	}, cfg)
}
