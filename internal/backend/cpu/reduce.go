package cpu

import (
	"fmt"
	"math"

	"github.com/graft-ml/grafomer/internal/tensor"
)

// Sum reduces the whole tensor to a single scalar (shape [1]).
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(tensor.Shape{1}, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("sum: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		var acc float32
		for _, v := range x.AsFloat32() {
			acc += v
		}
		result.AsFloat32()[0] = acc
	case tensor.Float64:
		var acc float64
		for _, v := range x.AsFloat64() {
			acc += v
		}
		result.AsFloat64()[0] = acc
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %v", x.DType()))
	}

	return result
}

// SumDim sums along dim. With keepDim the reduced dimension stays as size 1.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduceDim("sumdim", x, dim, keepDim, false)
}

// MeanDim averages along dim.
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduceDim("meandim", x, dim, keepDim, true)
}

func (cpu *CPUBackend) reduceDim(name string, x *tensor.RawTensor, dim int, keepDim, mean bool) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("%s: dim out of range for shape %v", name, shape))
	}
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("%s: unsupported dtype %v", name, x.DType()))
	}

	dimSize := shape[dim]
	inner := 1
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	outer := x.NumElements() / (dimSize * inner)

	outShape := make(tensor.Shape, 0, len(shape))
	for i, d := range shape {
		if i == dim {
			if keepDim {
				outShape = append(outShape, 1)
			}
			continue
		}
		outShape = append(outShape, d)
	}
	if len(outShape) == 0 {
		outShape = tensor.Shape{1}
	}

	result, err := tensor.NewRaw(outShape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	in, out := x.AsFloat32(), result.AsFloat32()
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			var acc float32
			base := o*dimSize*inner + i
			for d := 0; d < dimSize; d++ {
				acc += in[base+d*inner]
			}
			if mean {
				acc /= float32(dimSize)
			}
			out[o*inner+i] = acc
		}
	}

	return result
}

// Argmax returns int32 indices of the maximum along dim (dimension removed).
func (cpu *CPUBackend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("argmax: dim out of range for shape %v", shape))
	}
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("argmax: unsupported dtype %v", x.DType()))
	}

	dimSize := shape[dim]
	inner := 1
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	outer := x.NumElements() / (dimSize * inner)

	outShape := make(tensor.Shape, 0, len(shape)-1)
	for i, d := range shape {
		if i != dim {
			outShape = append(outShape, d)
		}
	}
	if len(outShape) == 0 {
		outShape = tensor.Shape{1}
	}

	result, err := tensor.NewRaw(outShape, tensor.Int32, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("argmax: %v", err))
	}

	in, out := x.AsFloat32(), result.AsInt32()
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			best := float32(math.Inf(-1))
			bestIdx := int32(0)
			base := o*dimSize*inner + i
			for d := 0; d < dimSize; d++ {
				if v := in[base+d*inner]; v > best {
					best = v
					bestIdx = int32(d)
				}
			}
			out[o*inner+i] = bestIdx
		}
	}

	return result
}
