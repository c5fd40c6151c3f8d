package cpu

import (
	"fmt"
	"math"

	"github.com/graft-ml/grafomer/internal/tensor"
)

// MulScalar multiplies every element by a scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalarOp("mulscalar", x, scalar,
		func(v, s float32) float32 { return v * s },
		func(v, s float64) float64 { return v * s })
}

// AddScalar adds a scalar to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalarOp("addscalar", x, scalar,
		func(v, s float32) float32 { return v + s },
		func(v, s float64) float64 { return v + s })
}

func (cpu *CPUBackend) scalarOp(
	name string,
	x *tensor.RawTensor,
	scalar any,
	f32 func(v, s float32) float32,
	f64 func(v, s float64) float64,
) *tensor.RawTensor {
	result := x.Clone()
	switch x.DType() {
	case tensor.Float32:
		s, ok := scalar.(float32)
		if !ok {
			panic(fmt.Sprintf("%s: scalar %T for float32 tensor", name, scalar))
		}
		data := result.AsFloat32()
		for i := range data {
			data[i] = f32(data[i], s)
		}
	case tensor.Float64:
		s, ok := scalar.(float64)
		if !ok {
			panic(fmt.Sprintf("%s: scalar %T for float64 tensor", name, scalar))
		}
		data := result.AsFloat64()
		for i := range data {
			data[i] = f64(data[i], s)
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %v", name, x.DType()))
	}
	return result
}

// Exp applies e^x element-wise.
func (cpu *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("exp", x, func(v float64) float64 { return math.Exp(v) })
}

// Sqrt applies the square root element-wise.
func (cpu *CPUBackend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("sqrt", x, math.Sqrt)
}

// Rsqrt applies 1/sqrt(x) element-wise.
func (cpu *CPUBackend) Rsqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("rsqrt", x, func(v float64) float64 { return 1.0 / math.Sqrt(v) })
}

// Tanh applies the hyperbolic tangent element-wise.
func (cpu *CPUBackend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("tanh", x, math.Tanh)
}

// Gelu applies the tanh-approximated Gaussian error linear unit element-wise.
func (cpu *CPUBackend) Gelu(x *tensor.RawTensor) *tensor.RawTensor {
	const c = 0.7978845608028654 // sqrt(2/pi)
	return cpu.unary("gelu", x, func(v float64) float64 {
		return 0.5 * v * (1.0 + math.Tanh(c*(v+0.044715*v*v*v)))
	})
}

func (cpu *CPUBackend) unary(name string, x *tensor.RawTensor, f func(float64) float64) *tensor.RawTensor {
	result := x.Clone()
	switch x.DType() {
	case tensor.Float32:
		data := result.AsFloat32()
		for i := range data {
			data[i] = float32(f(float64(data[i])))
		}
	case tensor.Float64:
		data := result.AsFloat64()
		for i := range data {
			data[i] = f(data[i])
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %v", name, x.DType()))
	}
	return result
}

// Softmax normalizes along dim with the usual max-subtraction for stability.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("softmax: dim out of range for shape %v", shape))
	}
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("softmax: unsupported dtype %v", x.DType()))
	}

	result := x.Clone()
	data := result.AsFloat32()

	// View the tensor as [outer, dimSize, inner] and normalize each lane.
	dimSize := shape[dim]
	inner := 1
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	outer := x.NumElements() / (dimSize * inner)

	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			base := o*dimSize*inner + in

			maxVal := float32(math.Inf(-1))
			for d := 0; d < dimSize; d++ {
				if v := data[base+d*inner]; v > maxVal {
					maxVal = v
				}
			}

			sum := float32(0)
			for d := 0; d < dimSize; d++ {
				e := float32(math.Exp(float64(data[base+d*inner] - maxVal)))
				data[base+d*inner] = e
				sum += e
			}
			for d := 0; d < dimSize; d++ {
				data[base+d*inner] /= sum
			}
		}
	}

	return result
}
