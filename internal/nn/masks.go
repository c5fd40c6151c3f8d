package nn

import "github.com/graft-ml/grafomer/internal/tensor"

// maskedOut is the additive logit value for disallowed attention
// positions. Large enough to vanish under softmax in float32 without
// producing NaN when an entire row is masked.
const maskedOut = float32(-1e9)

// CausalMask builds an additive mask [1, 1, queryLen, keyLen] that
// blocks attention to future positions. Queries are aligned to the end
// of the key axis, so with keyLen > queryLen (incremental decoding with
// a cache) every query may attend to all cached positions.
func CausalMask[B tensor.Backend](queryLen, keyLen int, b B) *tensor.Tensor[float32, B] {
	if keyLen < queryLen {
		panic("nn: causal mask requires keyLen >= queryLen")
	}
	data := make([]float32, queryLen*keyLen)
	offset := keyLen - queryLen
	for q := 0; q < queryLen; q++ {
		for k := 0; k < keyLen; k++ {
			if k > q+offset {
				data[q*keyLen+k] = maskedOut
			}
		}
	}
	t, err := tensor.FromSlice(data, tensor.Shape{1, 1, queryLen, keyLen}, b)
	if err != nil {
		panic("nn: causal mask: " + err.Error())
	}
	return t
}

// PaddingMask expands a [batch, keyLen] attention mask of ones and
// zeros into an additive mask [batch, 1, queryLen, keyLen]: zero where
// the key position is real, maskedOut where it is padding.
func PaddingMask[B tensor.Backend](attnMask *tensor.Tensor[float32, B], queryLen int) *tensor.Tensor[float32, B] {
	shape := attnMask.Shape()
	if len(shape) != 2 {
		panic("nn: padding mask expects [batch, keyLen], got shape " + shape.String())
	}
	batch, keyLen := shape[0], shape[1]
	src := attnMask.Data()

	data := make([]float32, batch*queryLen*keyLen)
	for row := 0; row < batch; row++ {
		for k := 0; k < keyLen; k++ {
			if src[row*keyLen+k] != 0 {
				continue
			}
			for q := 0; q < queryLen; q++ {
				data[(row*queryLen+q)*keyLen+k] = maskedOut
			}
		}
	}
	t, err := tensor.FromSlice(data, tensor.Shape{batch, 1, queryLen, keyLen}, attnMask.Backend())
	if err != nil {
		panic("nn: padding mask: " + err.Error())
	}
	return t
}

// CombineMasks adds two additive masks, broadcasting as needed. Either
// argument may be nil.
func CombineMasks[B tensor.Backend](a, b *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return a.Add(b)
	}
}
