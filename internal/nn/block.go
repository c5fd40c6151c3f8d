package nn

import "github.com/graft-ml/grafomer/internal/tensor"

// BlockConfig sizes a transformer block.
type BlockConfig struct {
	EmbedDim  int
	NumHeads  int
	HiddenDim int
	Eps       float32
}

// EncoderBlock is a post-norm bidirectional transformer layer:
// self-attention and feed-forward, each followed by a residual add and
// layer normalization.
type EncoderBlock[B tensor.Backend] struct {
	selfAttn *MultiHeadAttention[B]
	attnNorm *LayerNorm[B]
	ffn      *FeedForward[B]
	ffnNorm  *LayerNorm[B]
}

// NewEncoderBlock creates an encoder block with GELU feed-forward.
func NewEncoderBlock[B tensor.Backend](cfg BlockConfig, b B) *EncoderBlock[B] {
	return &EncoderBlock[B]{
		selfAttn: NewMultiHeadAttention(cfg.EmbedDim, cfg.NumHeads, AttentionOptions{}, b),
		attnNorm: NewLayerNorm(cfg.EmbedDim, cfg.Eps, b),
		ffn:      NewFeedForward(cfg.EmbedDim, cfg.HiddenDim, GELU[B], b),
		ffnNorm:  NewLayerNorm(cfg.EmbedDim, cfg.Eps, b),
	}
}

// Forward runs the block over hidden [batch, seq, embedDim] with an
// optional additive attention mask.
func (e *EncoderBlock[B]) Forward(hidden, attnMask *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	attnOut := e.selfAttn.Forward(hidden, nil, attnMask, nil, 0)
	hidden = e.attnNorm.Forward(hidden.Add(attnOut))

	ffnOut := e.ffn.Forward(hidden)
	return e.ffnNorm.Forward(hidden.Add(ffnOut))
}

// Parameters returns all block parameters.
func (e *EncoderBlock[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	params = append(params, e.selfAttn.Parameters()...)
	params = append(params, e.attnNorm.Parameters()...)
	params = append(params, e.ffn.Parameters()...)
	params = append(params, e.ffnNorm.Parameters()...)
	return params
}

// DecoderBlock is a post-norm causal transformer layer with an optional
// cross-attention stage between self-attention and feed-forward.
type DecoderBlock[B tensor.Backend] struct {
	selfAttn *MultiHeadAttention[B]
	attnNorm *LayerNorm[B]

	crossAttn *MultiHeadAttention[B]
	crossNorm *LayerNorm[B]

	ffn     *FeedForward[B]
	ffnNorm *LayerNorm[B]
}

// NewDecoderBlock creates a causal decoder block. When withCross is
// true the block attends to encoder states passed to Forward.
func NewDecoderBlock[B tensor.Backend](cfg BlockConfig, withCross bool, b B) *DecoderBlock[B] {
	d := &DecoderBlock[B]{
		selfAttn: NewMultiHeadAttention(cfg.EmbedDim, cfg.NumHeads, AttentionOptions{Causal: true}, b),
		attnNorm: NewLayerNorm(cfg.EmbedDim, cfg.Eps, b),
		ffn:      NewFeedForward(cfg.EmbedDim, cfg.HiddenDim, GELU[B], b),
		ffnNorm:  NewLayerNorm(cfg.EmbedDim, cfg.Eps, b),
	}
	if withCross {
		d.crossAttn = NewMultiHeadAttention(cfg.EmbedDim, cfg.NumHeads, AttentionOptions{Cross: true}, b)
		d.crossNorm = NewLayerNorm(cfg.EmbedDim, cfg.Eps, b)
	}
	return d
}

// Forward runs the block. encoderStates and crossMask feed the
// cross-attention stage and must be nil for blocks built without it.
// cache accumulates key/value projections for layer when non-nil.
func (d *DecoderBlock[B]) Forward(hidden, encoderStates, selfMask, crossMask *tensor.Tensor[float32, B], cache *KVCache[B], layer int) *tensor.Tensor[float32, B] {
	attnOut := d.selfAttn.Forward(hidden, nil, selfMask, cache, layer)
	hidden = d.attnNorm.Forward(hidden.Add(attnOut))

	if d.crossAttn != nil {
		crossOut := d.crossAttn.Forward(hidden, encoderStates, crossMask, cache, layer)
		hidden = d.crossNorm.Forward(hidden.Add(crossOut))
	} else if encoderStates != nil {
		panic("nn: decoder block built without cross-attention received encoder states")
	}

	ffnOut := d.ffn.Forward(hidden)
	return d.ffnNorm.Forward(hidden.Add(ffnOut))
}

// Parameters returns all block parameters.
func (d *DecoderBlock[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	params = append(params, d.selfAttn.Parameters()...)
	params = append(params, d.attnNorm.Parameters()...)
	if d.crossAttn != nil {
		params = append(params, d.crossAttn.Parameters()...)
		params = append(params, d.crossNorm.Parameters()...)
	}
	params = append(params, d.ffn.Parameters()...)
	params = append(params, d.ffnNorm.Parameters()...)
	return params
}
