package tensor

import (
	"fmt"
	"math/rand"
	"unsafe"
)

// Zeros creates a zero-filled tensor.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), b.Device())
	if err != nil {
		panic(fmt.Sprintf("tensor: zeros: %v", err))
	}
	return New[T, B](raw, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full[T, B](shape, 1, b)
}

// Full creates a tensor filled with a constant value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Randn creates a tensor with values drawn from N(0, 1).
//
// Only floating-point element types are supported.
func Randn[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	switch t.DType() {
	case Float32:
		data := unsafe.Slice((*float32)(unsafe.Pointer(&t.raw.data[0])), t.NumElements())
		for i := range data {
			data[i] = float32(rand.NormFloat64()) //nolint:gosec // weight init, not crypto
		}
	case Float64:
		data := unsafe.Slice((*float64)(unsafe.Pointer(&t.raw.data[0])), t.NumElements())
		for i := range data {
			data[i] = rand.NormFloat64() //nolint:gosec // weight init, not crypto
		}
	default:
		panic(fmt.Sprintf("tensor: randn: unsupported dtype %v", t.DType()))
	}
	return t
}

// Arange creates a 1D tensor with values [start, end) step 1.
func Arange[T DType, B Backend](start, end T, b B) *Tensor[T, B] {
	n := int(end - start)
	if n <= 0 {
		panic(fmt.Sprintf("tensor: arange: empty range [%v, %v)", start, end))
	}
	t := Zeros[T, B](Shape{n}, b)
	data := t.Data()
	for i := range data {
		data[i] = start + T(i)
	}
	return t
}
