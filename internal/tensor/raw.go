package tensor

import (
	"fmt"
	"unsafe"
)

// Device identifies where tensor data lives.
type Device int

// Supported devices.
const (
	CPU Device = iota
)

// String returns the device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "cpu"
	default:
		return "unknown"
	}
}

// RawTensor is the untyped, backend-facing tensor representation.
//
// It owns a contiguous row-major buffer plus shape/dtype metadata. The typed
// Tensor[T, B] wrapper is a thin view over a RawTensor; backends operate on
// RawTensor directly.
type RawTensor struct {
	shape  Shape
	dtype  DataType
	device Device
	data   []byte
}

// NewRaw allocates a zero-filled raw tensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if dtype.Size() == 0 {
		return nil, fmt.Errorf("rawtensor: unsupported dtype %v", dtype)
	}

	return &RawTensor{
		shape:  shape.Clone(),
		dtype:  dtype,
		device: device,
		data:   make([]byte, shape.NumElements()*dtype.Size()),
	}, nil
}

// Shape returns the tensor shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// DType returns the element data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the device the data lives on.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the total element count.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// Data returns the underlying byte buffer.
func (r *RawTensor) Data() []byte {
	return r.data
}

// AsFloat32 reinterprets the buffer as []float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("rawtensor: AsFloat32 on %v tensor", r.dtype))
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsFloat64 reinterprets the buffer as []float64.
func (r *RawTensor) AsFloat64() []float64 {
	if r.dtype != Float64 {
		panic(fmt.Sprintf("rawtensor: AsFloat64 on %v tensor", r.dtype))
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsInt32 reinterprets the buffer as []int32.
func (r *RawTensor) AsInt32() []int32 {
	if r.dtype != Int32 {
		panic(fmt.Sprintf("rawtensor: AsInt32 on %v tensor", r.dtype))
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsInt64 reinterprets the buffer as []int64.
func (r *RawTensor) AsInt64() []int64 {
	if r.dtype != Int64 {
		panic(fmt.Sprintf("rawtensor: AsInt64 on %v tensor", r.dtype))
	}
	return unsafe.Slice((*int64)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// Clone returns a deep copy.
func (r *RawTensor) Clone() *RawTensor {
	out, err := NewRaw(r.shape, r.dtype, r.device)
	if err != nil {
		panic(fmt.Sprintf("rawtensor: clone: %v", err))
	}
	copy(out.data, r.data)
	return out
}

// WithShape returns a view of the same buffer under a new shape.
//
// The element counts must match; the buffer is shared, not copied.
func (r *RawTensor) WithShape(shape Shape) *RawTensor {
	if shape.NumElements() != r.NumElements() {
		panic(fmt.Sprintf("rawtensor: cannot view %v as %v", r.shape, shape))
	}
	return &RawTensor{
		shape:  shape.Clone(),
		dtype:  r.dtype,
		device: r.device,
		data:   r.data,
	}
}
