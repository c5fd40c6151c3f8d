package cpu

import (
	"fmt"

	"github.com/graft-ml/grafomer/internal/parallel"
	"github.com/graft-ml/grafomer/internal/tensor"
)

// Work splitting for the two matmul shapes: one task per output row in
// the 2D case, one per batch otherwise. Attention-sized batches (heads
// times batch) are usually small, so the batch threshold is lower.
var (
	rowParallel   = parallel.Config{Enabled: true, NumWorkers: parallel.DefaultConfig().NumWorkers, MinChunkSize: 32}
	batchParallel = parallel.Config{Enabled: true, NumWorkers: parallel.DefaultConfig().NumWorkers, MinChunkSize: 4}
)

// MatMul performs 2D matrix multiplication: [M, K] @ [K, N] -> [M, N].
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape)))
	}

	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]
	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch [%d,%d] @ [%d,%d]", m, k, kAlt, n))
	}

	result, err := tensor.NewRaw(tensor.Shape{m, n}, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("matmul: %v", err))
	}

	switch a.DType() {
	case tensor.Float32:
		matmulF32(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, k, n)
	case tensor.Float64:
		matmulF64(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), m, k, n)
	default:
		panic(fmt.Sprintf("matmul: unsupported dtype %v", a.DType()))
	}

	return result
}

// BatchMatMul performs batched matrix multiplication for 3D/4D tensors.
func (cpu *CPUBackend) BatchMatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != len(bShape) || (len(aShape) != 3 && len(aShape) != 4) {
		panic(fmt.Sprintf("batchmatmul: expected matching 3D or 4D tensors, got %v and %v", aShape, bShape))
	}

	ndim := len(aShape)
	m, k := aShape[ndim-2], aShape[ndim-1]
	kAlt, n := bShape[ndim-2], bShape[ndim-1]
	if k != kAlt {
		panic(fmt.Sprintf("batchmatmul: inner dimension mismatch %v @ %v", aShape, bShape))
	}

	batches := 1
	outShape := make(tensor.Shape, ndim)
	for i := 0; i < ndim-2; i++ {
		if aShape[i] != bShape[i] {
			panic(fmt.Sprintf("batchmatmul: batch dimension mismatch %v @ %v", aShape, bShape))
		}
		batches *= aShape[i]
		outShape[i] = aShape[i]
	}
	outShape[ndim-2], outShape[ndim-1] = m, n

	result, err := tensor.NewRaw(outShape, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("batchmatmul: %v", err))
	}

	switch a.DType() {
	case tensor.Float32:
		aData, bData, cData := a.AsFloat32(), b.AsFloat32(), result.AsFloat32()
		parallel.For(batches, func(bi int) {
			matmulF32(cData[bi*m*n:(bi+1)*m*n], aData[bi*m*k:(bi+1)*m*k], bData[bi*k*n:(bi+1)*k*n], m, k, n)
		}, batchParallel)
	case tensor.Float64:
		aData, bData, cData := a.AsFloat64(), b.AsFloat64(), result.AsFloat64()
		parallel.For(batches, func(bi int) {
			matmulF64(cData[bi*m*n:(bi+1)*m*n], aData[bi*m*k:(bi+1)*m*k], bData[bi*k*n:(bi+1)*k*n], m, k, n)
		}, batchParallel)
	default:
		panic(fmt.Sprintf("batchmatmul: unsupported dtype %v", a.DType()))
	}

	return result
}

// matmulF32 computes C[i,j] = sum_k A[i,k] * B[k,j].
//
// Loop order (i, k, j) keeps the inner loop streaming over contiguous rows of
// B and C, which the hardware prefetcher handles well.
func matmulF32(c, a, b []float32, m, k, n int) {
	parallel.For(m, func(i int) {
		cRow := c[i*n : (i+1)*n]
		for j := range cRow {
			cRow[j] = 0
		}
		for kk := 0; kk < k; kk++ {
			av := a[i*k+kk]
			if av == 0 {
				continue
			}
			bRow := b[kk*n : (kk+1)*n]
			for j := range bRow {
				cRow[j] += av * bRow[j]
			}
		}
	}, rowParallel)
}

func matmulF64(c, a, b []float64, m, k, n int) {
	parallel.For(m, func(i int) {
		cRow := c[i*n : (i+1)*n]
		for j := range cRow {
			cRow[j] = 0
		}
		for kk := 0; kk < k; kk++ {
			av := a[i*k+kk]
			if av == 0 {
				continue
			}
			bRow := b[kk*n : (kk+1)*n]
			for j := range bRow {
				cRow[j] += av * bRow[j]
			}
		}
	}, rowParallel)
}
