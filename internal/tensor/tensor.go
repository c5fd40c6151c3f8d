// Package tensor provides the typed tensor core for the Grafomer project.
//
// Tensor[T, B] is a generic, type-safe view over a RawTensor; all computation
// is dispatched to a Backend implementation. The op surface is intentionally
// narrow: what transformer stacks and on-demand weight synthesis need, and
// nothing more.
package tensor

import (
	"fmt"
	"unsafe"
)

// Tensor is a typed, backend-bound tensor.
type Tensor[T DType, B Backend] struct {
	raw     *RawTensor
	backend B
}

// New wraps a RawTensor in a typed Tensor.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	return &Tensor[T, B]{raw: raw, backend: b}
}

// FromSlice creates a tensor from a flat slice and a shape.
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("tensor: data length %d does not match shape %v", len(data), shape)
	}

	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), b.Device())
	if err != nil {
		return nil, err
	}

	dst := unsafe.Slice((*T)(unsafe.Pointer(&raw.data[0])), len(data))
	copy(dst, data)

	return New[T, B](raw, b), nil
}

// Shape returns the tensor shape.
func (t *Tensor[T, B]) Shape() Shape {
	return t.raw.Shape()
}

// DType returns the runtime data type.
func (t *Tensor[T, B]) DType() DataType {
	return t.raw.DType()
}

// NumElements returns the total element count.
func (t *Tensor[T, B]) NumElements() int {
	return t.raw.NumElements()
}

// Raw returns the underlying RawTensor.
func (t *Tensor[T, B]) Raw() *RawTensor {
	return t.raw
}

// Backend returns the compute backend.
func (t *Tensor[T, B]) Backend() B {
	return t.backend
}

// Data returns the underlying data as a typed slice.
func (t *Tensor[T, B]) Data() []T {
	return unsafe.Slice((*T)(unsafe.Pointer(&t.raw.data[0])), t.NumElements())
}

// Item returns the single element of a scalar tensor.
func (t *Tensor[T, B]) Item() T {
	if t.NumElements() != 1 {
		panic(fmt.Sprintf("tensor: Item on tensor with %d elements", t.NumElements()))
	}
	return t.Data()[0]
}

// At returns the element at the given indices.
func (t *Tensor[T, B]) At(indices ...int) T {
	shape := t.Shape()
	if len(indices) != len(shape) {
		panic(fmt.Sprintf("tensor: At with %d indices on %dD tensor", len(indices), len(shape)))
	}

	strides := shape.ComputeStrides()
	flat := 0
	for i, idx := range indices {
		if idx < 0 || idx >= shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range for dimension %d (size %d)", idx, i, shape[i]))
		}
		flat += idx * strides[i]
	}
	return t.Data()[flat]
}

// Set assigns the element at the given indices.
func (t *Tensor[T, B]) Set(value T, indices ...int) {
	shape := t.Shape()
	if len(indices) != len(shape) {
		panic(fmt.Sprintf("tensor: Set with %d indices on %dD tensor", len(indices), len(shape)))
	}

	strides := shape.ComputeStrides()
	flat := 0
	for i, idx := range indices {
		if idx < 0 || idx >= shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range for dimension %d (size %d)", idx, i, shape[i]))
		}
		flat += idx * strides[i]
	}
	t.Data()[flat] = value
}

// Clone returns a deep copy.
func (t *Tensor[T, B]) Clone() *Tensor[T, B] {
	return New[T, B](t.raw.Clone(), t.backend)
}

// String returns a short description of the tensor.
func (t *Tensor[T, B]) String() string {
	return fmt.Sprintf("Tensor[%v]%v on %v", t.DType(), t.Shape(), t.backend.Device())
}
