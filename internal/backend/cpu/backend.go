// Package cpu implements the pure-Go CPU backend for the tensor core.
package cpu

import (
	"fmt"

	"github.com/graft-ml/grafomer/internal/tensor"
)

// CPUBackend implements tensor.Backend on the host CPU.
type CPUBackend struct {
	device tensor.Device
}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{device: tensor.CPU}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b,
		func(x, y float32) float32 { return x + y },
		func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("sub", a, b,
		func(x, y float32) float32 { return x - y },
		func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b,
		func(x, y float32) float32 { return x * y },
		func(x, y float64) float64 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("div", a, b,
		func(x, y float32) float32 { return x / y },
		func(x, y float64) float64 { return x / y })
}

// binary applies an element-wise binary op, broadcasting where needed.
func (cpu *CPUBackend) binary(
	name string,
	a, b *tensor.RawTensor,
	f32 func(x, y float32) float32,
	f64 func(x, y float64) float64,
) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	result, err := tensor.NewRaw(outShape, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	switch a.DType() {
	case tensor.Float32:
		if !needsBroadcast {
			out, av, bv := result.AsFloat32(), a.AsFloat32(), b.AsFloat32()
			for i := range out {
				out[i] = f32(av[i], bv[i])
			}
		} else {
			broadcastF32(result, a, b, f32)
		}
	case tensor.Float64:
		if !needsBroadcast {
			out, av, bv := result.AsFloat64(), a.AsFloat64(), b.AsFloat64()
			for i := range out {
				out[i] = f64(av[i], bv[i])
			}
		} else {
			broadcastF64(result, a, b, f64)
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %v", name, a.DType()))
	}

	return result
}

// broadcastF32 applies f over broadcast-expanded operands.
func broadcastF32(out, a, b *tensor.RawTensor, f func(x, y float32) float32) {
	outShape := out.Shape()
	outData := out.AsFloat32()
	aData, bData := a.AsFloat32(), b.AsFloat32()
	aShape, bShape := a.Shape(), b.Shape()

	idx := make([]int, len(outShape))
	for flat := range outData {
		outData[flat] = f(aData[broadcastIndex(idx, aShape)], bData[broadcastIndex(idx, bShape)])
		incrementIndex(idx, outShape)
	}
}

func broadcastF64(out, a, b *tensor.RawTensor, f func(x, y float64) float64) {
	outShape := out.Shape()
	outData := out.AsFloat64()
	aData, bData := a.AsFloat64(), b.AsFloat64()
	aShape, bShape := a.Shape(), b.Shape()

	idx := make([]int, len(outShape))
	for flat := range outData {
		outData[flat] = f(aData[broadcastIndex(idx, aShape)], bData[broadcastIndex(idx, bShape)])
		incrementIndex(idx, outShape)
	}
}

// broadcastIndex maps a multi-index in the output to a flat index in a
// (possibly lower-rank or size-1-dimension) operand.
func broadcastIndex(idx []int, shape tensor.Shape) int {
	strides := shape.ComputeStrides()
	offset := len(idx) - len(shape)
	flat := 0
	for i, dim := range shape {
		j := idx[offset+i]
		if dim == 1 {
			j = 0
		}
		flat += j * strides[i]
	}
	return flat
}

// incrementIndex advances a row-major multi-index by one position.
func incrementIndex(idx []int, shape tensor.Shape) {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < shape[i] {
			return
		}
		idx[i] = 0
	}
}

// Reshape returns the data under a new shape.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if err := newShape.Validate(); err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("reshape: incompatible shapes %v -> %v", t.Shape(), newShape))
	}
	return t.Clone().WithShape(newShape)
}

// Transpose permutes dimensions. With no axes all dimensions are reversed.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: axes length %d != ndim %d", len(axes), ndim))
	}
	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim || seen[ax] {
			panic(fmt.Sprintf("transpose: invalid axes %v for %dD tensor", axes, ndim))
		}
		seen[ax] = true
	}

	newShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		newShape[i] = shape[ax]
	}

	result, err := tensor.NewRaw(newShape, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("transpose: %v", err))
	}

	// dtype-agnostic element moves via byte copies
	elemSize := t.DType().Size()
	inStrides := shape.ComputeStrides()
	outStrides := newShape.ComputeStrides()
	inData, outData := t.Data(), result.Data()

	idx := make([]int, ndim)
	total := t.NumElements()
	for flat := 0; flat < total; flat++ {
		inFlat := 0
		for i, ax := range axes {
			inFlat += idx[i] * inStrides[ax]
		}
		outFlat := 0
		for i := range idx {
			outFlat += idx[i] * outStrides[i]
		}
		copy(outData[outFlat*elemSize:(outFlat+1)*elemSize], inData[inFlat*elemSize:(inFlat+1)*elemSize])
		incrementIndex(idx, newShape)
	}

	return result
}

// Expand broadcasts the tensor to a larger shape.
func (cpu *CPUBackend) Expand(t *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("expand: %v", err))
	}

	elemSize := t.DType().Size()
	inData, outData := t.Data(), result.Data()
	idx := make([]int, len(shape))
	total := shape.NumElements()
	for flat := 0; flat < total; flat++ {
		src := broadcastIndex(idx, t.Shape())
		copy(outData[flat*elemSize:(flat+1)*elemSize], inData[src*elemSize:(src+1)*elemSize])
		incrementIndex(idx, shape)
	}
	return result
}
