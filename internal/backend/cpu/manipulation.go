package cpu

import (
	"fmt"

	"github.com/graft-ml/grafomer/internal/tensor"
)

// Cat concatenates tensors along an existing dimension.
//
// All tensors must agree on rank, dtype, and every dimension except dim.
// The copies are dtype-agnostic: elements move as byte runs.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: no tensors")
	}

	first := tensors[0]
	shape := first.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("cat: dim out of range for shape %v", shape))
	}

	outShape := shape.Clone()
	outShape[dim] = 0
	for _, t := range tensors {
		ts := t.Shape()
		if len(ts) != len(shape) || t.DType() != first.DType() {
			panic("cat: rank or dtype mismatch")
		}
		for i := range ts {
			if i != dim && ts[i] != shape[i] {
				panic(fmt.Sprintf("cat: shape mismatch %v vs %v at dim %d", shape, ts, i))
			}
		}
		outShape[dim] += ts[dim]
	}

	result, err := tensor.NewRaw(outShape, first.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("cat: %v", err))
	}

	elemSize := first.DType().Size()
	inner := 1
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	outer := 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}

	// For each outer index, lay the per-tensor runs down in order.
	outData := result.Data()
	outRun := outShape[dim] * inner * elemSize
	offset := 0
	for _, t := range tensors {
		run := t.Shape()[dim] * inner * elemSize
		inData := t.Data()
		for o := 0; o < outer; o++ {
			copy(outData[o*outRun+offset:o*outRun+offset+run], inData[o*run:(o+1)*run])
		}
		offset += run
	}

	return result
}

// Narrow returns the contiguous slice [start, start+length) along dim.
func (cpu *CPUBackend) Narrow(x *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("narrow: dim out of range for shape %v", shape))
	}
	if start < 0 || length <= 0 || start+length > shape[dim] {
		panic(fmt.Sprintf("narrow: range [%d, %d) out of bounds for dim %d of %v", start, start+length, dim, shape))
	}

	outShape := shape.Clone()
	outShape[dim] = length

	result, err := tensor.NewRaw(outShape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("narrow: %v", err))
	}

	elemSize := x.DType().Size()
	inner := 1
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	outer := 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}

	inRun := shape[dim] * inner * elemSize
	outRun := length * inner * elemSize
	skip := start * inner * elemSize
	inData, outData := x.Data(), result.Data()
	for o := 0; o < outer; o++ {
		copy(outData[o*outRun:(o+1)*outRun], inData[o*inRun+skip:o*inRun+skip+outRun])
	}

	return result
}

// Chunk splits the tensor into n equal parts along dim.
func (cpu *CPUBackend) Chunk(x *tensor.RawTensor, n, dim int) []*tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if n <= 0 || shape[dim]%n != 0 {
		panic(fmt.Sprintf("chunk: cannot split dim %d of %v into %d parts", dim, shape, n))
	}

	size := shape[dim] / n
	out := make([]*tensor.RawTensor, n)
	for i := 0; i < n; i++ {
		out[i] = cpu.Narrow(x, dim, i*size, size)
	}
	return out
}

// Unsqueeze inserts a dimension of size one at dim.
func (cpu *CPUBackend) Unsqueeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape) + 1
	}
	if dim < 0 || dim > len(shape) {
		panic(fmt.Sprintf("unsqueeze: dim out of range for shape %v", shape))
	}

	newShape := make(tensor.Shape, 0, len(shape)+1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, 1)
	newShape = append(newShape, shape[dim:]...)

	return x.Clone().WithShape(newShape)
}

// Squeeze removes a dimension of size one at dim.
func (cpu *CPUBackend) Squeeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) || shape[dim] != 1 {
		panic(fmt.Sprintf("squeeze: dim %d of shape %v is not size 1", dim, shape))
	}

	newShape := make(tensor.Shape, 0, len(shape)-1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, shape[dim+1:]...)
	if len(newShape) == 0 {
		newShape = tensor.Shape{1}
	}

	return x.Clone().WithShape(newShape)
}

// Embedding gathers rows of weight [vocab, dim] by int32 indices.
//
// The output shape is the index shape with dim appended.
func (cpu *CPUBackend) Embedding(weight, indices *tensor.RawTensor) *tensor.RawTensor {
	wShape := weight.Shape()
	if len(wShape) != 2 {
		panic(fmt.Sprintf("embedding: weight must be 2D, got %v", wShape))
	}
	if indices.DType() != tensor.Int32 {
		panic(fmt.Sprintf("embedding: indices must be int32, got %v", indices.DType()))
	}

	vocab, dim := wShape[0], wShape[1]
	outShape := append(indices.Shape().Clone(), dim)

	result, err := tensor.NewRaw(outShape, weight.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("embedding: %v", err))
	}

	elemSize := weight.DType().Size()
	row := dim * elemSize
	wData, outData := weight.Data(), result.Data()
	for i, idx := range indices.AsInt32() {
		if idx < 0 || int(idx) >= vocab {
			panic(fmt.Sprintf("embedding: index %d out of range [0, %d)", idx, vocab))
		}
		copy(outData[i*row:(i+1)*row], wData[int(idx)*row:(int(idx)+1)*row])
	}

	return result
}
