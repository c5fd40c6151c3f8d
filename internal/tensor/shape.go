package tensor

import "fmt"

// Shape describes the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that all dimensions are positive.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("shape: dimension %d must be positive, got %d", i, dim)
		}
	}
	return nil
}

// Equal reports whether two shapes are identical.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// String renders the shape as "[d0 d1 ...]".
func (s Shape) String() string {
	return fmt.Sprintf("%v", []int(s))
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	out := make(Shape, len(s))
	copy(out, s)
	return out
}

// ComputeStrides returns row-major strides for the shape.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	stride := 1
	for i := len(s) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= s[i]
	}
	return strides
}

// BroadcastShapes computes the NumPy-style broadcast shape of a and b.
//
// Returns the output shape, whether broadcasting is actually needed, and an
// error when the shapes are incompatible.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	ndim := len(a)
	if len(b) > ndim {
		ndim = len(b)
	}

	out := make(Shape, ndim)
	needsBroadcast := len(a) != len(b)

	for i := 0; i < ndim; i++ {
		da, db := 1, 1
		if i < len(a) {
			da = a[len(a)-1-i]
		}
		if i < len(b) {
			db = b[len(b)-1-i]
		}

		switch {
		case da == db:
			out[ndim-1-i] = da
		case da == 1:
			out[ndim-1-i] = db
			needsBroadcast = true
		case db == 1:
			out[ndim-1-i] = da
			needsBroadcast = true
		default:
			return nil, false, fmt.Errorf("shapes %v and %v are not broadcastable", a, b)
		}
	}

	return out, needsBroadcast, nil
}
