package nn

import (
	"math"

	"github.com/graft-ml/grafomer/internal/tensor"
)

// ScaledDotProductAttention computes softmax(q k^T / sqrt(headDim) + mask) v
// for query, key, value of shape [batch, heads, seq, headDim]. The
// additive mask may be nil and broadcasts over batch and heads.
func ScaledDotProductAttention[B tensor.Backend](query, key, value, mask *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	headDim := query.Shape()[3]
	scale := float32(1.0 / math.Sqrt(float64(headDim)))

	scores := query.BatchMatMul(key.Transpose(0, 1, 3, 2)).MulScalar(scale)
	if mask != nil {
		scores = scores.Add(mask)
	}
	return scores.Softmax(3).BatchMatMul(value)
}

// SplitHeads reshapes [batch, seq, embedDim] into
// [batch, heads, seq, headDim].
func SplitHeads[B tensor.Backend](x *tensor.Tensor[float32, B], numHeads int) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	batch, seq, embed := shape[0], shape[1], shape[2]
	if embed%numHeads != 0 {
		panic("nn: embed dimension not divisible by head count")
	}
	headDim := embed / numHeads
	return x.Reshape(batch, seq, numHeads, headDim).Transpose(0, 2, 1, 3)
}

// MergeHeads is the inverse of SplitHeads.
func MergeHeads[B tensor.Backend](x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	batch, heads, seq, headDim := shape[0], shape[1], shape[2], shape[3]
	return x.Transpose(0, 2, 1, 3).Reshape(batch, seq, heads*headDim)
}
