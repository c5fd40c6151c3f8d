// Package generate drives autoregressive decoding for bridge-coupled
// sequence-to-sequence models: encode once, then repeatedly feed the
// last generated token through the cached decoder until every sequence
// emits the end token or the length bound is hit.
package generate

import (
	"math/rand"

	"github.com/graft-ml/grafomer/internal/tensor"
)

// Sampler picks the next token id from one row of vocabulary logits.
type Sampler[B tensor.Backend] interface {
	Sample(logits *tensor.Tensor[float32, B]) int32
}

// Greedy always picks the highest-scoring token.
type Greedy[B tensor.Backend] struct{}

// Sample returns the argmax over logits [vocab].
func (Greedy[B]) Sample(logits *tensor.Tensor[float32, B]) int32 {
	return logits.Argmax(0).Item()
}

// Temperature samples from the softmax distribution after dividing
// logits by T. Higher values flatten the distribution; values near zero
// approach greedy.
type Temperature[B tensor.Backend] struct {
	T   float32
	Rng *rand.Rand
}

// Sample draws one token id from softmax(logits / T).
func (s Temperature[B]) Sample(logits *tensor.Tensor[float32, B]) int32 {
	if s.T <= 0 {
		return Greedy[B]{}.Sample(logits)
	}
	probs := logits.MulScalar(1 / s.T).Softmax(0).Data()

	r := rand.Float32()
	if s.Rng != nil {
		r = s.Rng.Float32()
	}
	var cum float32
	for i, p := range probs {
		cum += p
		if r < cum {
			return int32(i)
		}
	}
	return int32(len(probs) - 1)
}
