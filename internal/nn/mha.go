package nn

import "github.com/graft-ml/grafomer/internal/tensor"

// AttentionOptions selects the capabilities of a MultiHeadAttention
// instance. The same primitive serves bidirectional self-attention
// (neither flag), causal self-attention (Causal) and encoder-decoder
// cross-attention (Cross); the four projections and the score math are
// identical in all three modes.
type AttentionOptions struct {
	// Causal blocks attention to future positions using a mask sliced
	// to the current query and key lengths.
	Causal bool

	// Cross sources keys and values from a second tensor passed to
	// Forward, and caches their projections across decoding steps.
	Cross bool
}

// MultiHeadAttention is the single attention primitive used by every
// stack in the model.
type MultiHeadAttention[B tensor.Backend] struct {
	query *Linear[B]
	key   *Linear[B]
	value *Linear[B]
	out   *Linear[B]

	embedDim int
	numHeads int
	opts     AttentionOptions
	backend  B
}

// NewMultiHeadAttention creates an attention module projecting from and
// to embedDim. embedDim must be divisible by numHeads.
func NewMultiHeadAttention[B tensor.Backend](embedDim, numHeads int, opts AttentionOptions, b B) *MultiHeadAttention[B] {
	if embedDim%numHeads != 0 {
		panic("nn: embedDim must be divisible by numHeads")
	}
	if opts.Causal && opts.Cross {
		panic("nn: attention cannot be both causal and cross")
	}
	return &MultiHeadAttention[B]{
		query:    NewLinear(embedDim, embedDim, true, b),
		key:      NewLinear(embedDim, embedDim, true, b),
		value:    NewLinear(embedDim, embedDim, true, b),
		out:      NewLinear(embedDim, embedDim, true, b),
		embedDim: embedDim,
		numHeads: numHeads,
		opts:     opts,
		backend:  b,
	}
}

// Forward runs attention over hidden [batch, seq, embedDim].
//
// For cross-attention keyValue holds the encoder states; otherwise it
// must be nil. attnMask is an additive mask broadcastable to
// [batch, heads, querySeq, keySeq], or nil. cache, when non-nil,
// accumulates key/value projections for layer across decoding steps.
func (m *MultiHeadAttention[B]) Forward(hidden, keyValue, attnMask *tensor.Tensor[float32, B], cache *KVCache[B], layer int) *tensor.Tensor[float32, B] {
	if m.opts.Cross == (keyValue == nil) {
		if m.opts.Cross {
			panic("nn: cross-attention requires a key/value source")
		}
		panic("nn: self-attention must not receive a key/value source")
	}

	q := SplitHeads(m.query.Forward(hidden), m.numHeads)

	var k, v *tensor.Tensor[float32, B]
	switch {
	case m.opts.Cross && cache != nil:
		if ck, cv, ok := cache.Cross(layer); ok {
			k, v = ck, cv
		} else {
			k = SplitHeads(m.key.Forward(keyValue), m.numHeads)
			v = SplitHeads(m.value.Forward(keyValue), m.numHeads)
			cache.SetCross(layer, k, v)
		}
	case m.opts.Cross:
		k = SplitHeads(m.key.Forward(keyValue), m.numHeads)
		v = SplitHeads(m.value.Forward(keyValue), m.numHeads)
	default:
		k = SplitHeads(m.key.Forward(hidden), m.numHeads)
		v = SplitHeads(m.value.Forward(hidden), m.numHeads)
		if cache != nil {
			k, v = cache.Update(layer, k, v)
		}
	}

	if m.opts.Causal {
		causal := CausalMask(q.Shape()[2], k.Shape()[2], m.backend)
		attnMask = CombineMasks(attnMask, causal)
	}

	ctx := ScaledDotProductAttention(q, k, v, attnMask)
	return m.out.Forward(MergeHeads(ctx))
}

// Parameters returns the four projection layers' parameters in
// query, key, value, output order.
func (m *MultiHeadAttention[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	params = append(params, m.query.Parameters()...)
	params = append(params, m.key.Parameters()...)
	params = append(params, m.value.Parameters()...)
	params = append(params, m.out.Parameters()...)
	return params
}
