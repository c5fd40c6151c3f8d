package nn

import "github.com/graft-ml/grafomer/internal/tensor"

// KVCache stores per-layer key/value projections across incremental
// decoding steps. Self-attention entries grow along the sequence axis
// on every Update; cross-attention entries are computed once from the
// encoder states and reused verbatim.
//
// All cached tensors have shape [batch, heads, seq, headDim].
type KVCache[B tensor.Backend] struct {
	keys   []*tensor.Tensor[float32, B]
	values []*tensor.Tensor[float32, B]

	crossKeys   []*tensor.Tensor[float32, B]
	crossValues []*tensor.Tensor[float32, B]
}

// NewKVCache creates an empty cache for numLayers layers.
func NewKVCache[B tensor.Backend](numLayers int) *KVCache[B] {
	return &KVCache[B]{
		keys:        make([]*tensor.Tensor[float32, B], numLayers),
		values:      make([]*tensor.Tensor[float32, B], numLayers),
		crossKeys:   make([]*tensor.Tensor[float32, B], numLayers),
		crossValues: make([]*tensor.Tensor[float32, B], numLayers),
	}
}

// NumLayers returns the number of layer slots.
func (c *KVCache[B]) NumLayers() int { return len(c.keys) }

// SeqLen returns the number of cached self-attention positions.
func (c *KVCache[B]) SeqLen() int {
	if len(c.keys) == 0 || c.keys[0] == nil {
		return 0
	}
	return c.keys[0].Shape()[2]
}

// Update appends new key/value projections for a layer and returns the
// full cached tensors including the new positions.
func (c *KVCache[B]) Update(layer int, key, value *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B]) {
	if c.keys[layer] != nil {
		key = tensor.Cat([]*tensor.Tensor[float32, B]{c.keys[layer], key}, 2)
		value = tensor.Cat([]*tensor.Tensor[float32, B]{c.values[layer], value}, 2)
	}
	c.keys[layer] = key
	c.values[layer] = value
	return key, value
}

// Cross returns the cached cross-attention key/value for a layer, and
// whether they have been set.
func (c *KVCache[B]) Cross(layer int) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B], bool) {
	if c.crossKeys[layer] == nil {
		return nil, nil, false
	}
	return c.crossKeys[layer], c.crossValues[layer], true
}

// SetCross stores the cross-attention key/value for a layer.
func (c *KVCache[B]) SetCross(layer int, key, value *tensor.Tensor[float32, B]) {
	c.crossKeys[layer] = key
	c.crossValues[layer] = value
}
