package tensor

import "fmt"

// Cat concatenates tensors along an existing dimension.
func Cat[T DType, B Backend](tensors []*Tensor[T, B], dim int) *Tensor[T, B] {
	if len(tensors) == 0 {
		panic("tensor: cat of zero tensors")
	}
	raws := make([]*RawTensor, len(tensors))
	for i, t := range tensors {
		raws[i] = t.raw
	}
	b := tensors[0].backend
	return New[T, B](b.Cat(raws, dim), b)
}

// Stack concatenates tensors along a new leading dimension at dim.
//
// All inputs must share the same shape; the output gains one dimension of
// size len(tensors) at position dim.
func Stack[T DType, B Backend](tensors []*Tensor[T, B], dim int) *Tensor[T, B] {
	if len(tensors) == 0 {
		panic("tensor: stack of zero tensors")
	}
	shape := tensors[0].Shape()
	unsqueezed := make([]*Tensor[T, B], len(tensors))
	for i, t := range tensors {
		if !t.Shape().Equal(shape) {
			panic(fmt.Sprintf("tensor: stack shape mismatch: %v vs %v", shape, t.Shape()))
		}
		unsqueezed[i] = t.Unsqueeze(dim)
	}
	return Cat(unsqueezed, dim)
}

// Narrow returns a contiguous slice [start, start+length) along dim.
func (t *Tensor[T, B]) Narrow(dim, start, length int) *Tensor[T, B] {
	return New[T, B](t.backend.Narrow(t.raw, dim, start, length), t.backend)
}

// Chunk splits the tensor into n equal parts along dim.
func (t *Tensor[T, B]) Chunk(n, dim int) []*Tensor[T, B] {
	raws := t.backend.Chunk(t.raw, n, dim)
	out := make([]*Tensor[T, B], len(raws))
	for i, raw := range raws {
		out[i] = New[T, B](raw, t.backend)
	}
	return out
}

// Unsqueeze inserts a dimension of size one at dim.
func (t *Tensor[T, B]) Unsqueeze(dim int) *Tensor[T, B] {
	return New[T, B](t.backend.Unsqueeze(t.raw, dim), t.backend)
}

// Squeeze removes a dimension of size one at dim.
func (t *Tensor[T, B]) Squeeze(dim int) *Tensor[T, B] {
	return New[T, B](t.backend.Squeeze(t.raw, dim), t.backend)
}
