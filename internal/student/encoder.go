// Package student implements transformer stacks whose dense
// projections own no weights: every attention and feed-forward
// projection is a synthesized linear layer drawing on a frozen teacher
// through a TeacherContext. Embeddings and layer norms remain free
// parameters; only the projections are synthesized.
package student

import (
	"github.com/graft-ml/grafomer/internal/nn"
	"github.com/graft-ml/grafomer/internal/pretrained"
	"github.com/graft-ml/grafomer/internal/synthesis"
	"github.com/graft-ml/grafomer/internal/tensor"
)

// Encoder is a post-norm bidirectional stack mirroring the structure of
// the built-in pretrained encoder, with every projection synthesized
// from the teacher's encoder scope.
type Encoder[B tensor.Backend] struct {
	cfg *pretrained.Config

	tokens    *nn.Embedding[B]
	positions *nn.Embedding[B]
	embedNorm *nn.LayerNorm[B]
	layers    []*studentEncoderLayer[B]

	backend B
}

type studentEncoderLayer[B tensor.Backend] struct {
	query   *synthesis.SynthesizedLinear[B]
	key     *synthesis.SynthesizedLinear[B]
	value   *synthesis.SynthesizedLinear[B]
	attnOut *synthesis.SynthesizedLinear[B]

	attnNorm *nn.LayerNorm[B]

	intermediate *synthesis.SynthesizedLinear[B]
	output       *synthesis.SynthesizedLinear[B]
	outNorm      *nn.LayerNorm[B]

	numHeads int
}

// NewEncoder builds a student encoder with cfg.NumLayers layers, each
// drawing from its own contiguous slice of the teacher's encoder
// layers.
func NewEncoder[B tensor.Backend](ctx *synthesis.TeacherContext[B], cfg *pretrained.Config, b B) (*Encoder[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	enc := &Encoder[B]{
		cfg:       cfg,
		tokens:    nn.NewEmbedding[B](cfg.VocabSize, cfg.HiddenSize, b),
		positions: nn.NewEmbedding[B](cfg.MaxPositions, cfg.HiddenSize, b),
		embedNorm: nn.NewLayerNorm(cfg.HiddenSize, cfg.LayerNormEps, b),
		backend:   b,
	}
	for i := 0; i < cfg.NumLayers; i++ {
		layer, err := newStudentEncoderLayer(ctx, cfg, i, b)
		if err != nil {
			return nil, err
		}
		enc.layers = append(enc.layers, layer)
	}
	return enc, nil
}

func newStudentEncoderLayer[B tensor.Backend](ctx *synthesis.TeacherContext[B], cfg *pretrained.Config, layer int, b B) (*studentEncoderLayer[B], error) {
	n := cfg.NumLayers
	h := cfg.HiddenSize

	proj := func(role string, in, out int) (*synthesis.SynthesizedLinear[B], error) {
		return synthesis.NewSynthesizedLinear(ctx, role, layer, n, in, out, b)
	}

	query, err := proj("encoder.attention.self.query", h, h)
	if err != nil {
		return nil, err
	}
	key, err := proj("encoder.attention.self.key", h, h)
	if err != nil {
		return nil, err
	}
	value, err := proj("encoder.attention.self.value", h, h)
	if err != nil {
		return nil, err
	}
	attnOut, err := proj("encoder.attention.output.dense", h, h)
	if err != nil {
		return nil, err
	}
	intermediate, err := proj("encoder.intermediate.dense", h, cfg.IntermediateSize)
	if err != nil {
		return nil, err
	}
	output, err := proj("encoder.output.dense", cfg.IntermediateSize, h)
	if err != nil {
		return nil, err
	}

	return &studentEncoderLayer[B]{
		query:        query,
		key:          key,
		value:        value,
		attnOut:      attnOut,
		attnNorm:     nn.NewLayerNorm(h, cfg.LayerNormEps, b),
		intermediate: intermediate,
		output:       output,
		outNorm:      nn.NewLayerNorm(h, cfg.LayerNormEps, b),
		numHeads:     cfg.NumHeads,
	}, nil
}

func (l *studentEncoderLayer[B]) forward(hidden, attnMask *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	q := nn.SplitHeads(l.query.Forward(hidden), l.numHeads)
	k := nn.SplitHeads(l.key.Forward(hidden), l.numHeads)
	v := nn.SplitHeads(l.value.Forward(hidden), l.numHeads)

	ctx := nn.MergeHeads(nn.ScaledDotProductAttention(q, k, v, attnMask))
	hidden = l.attnNorm.Forward(hidden.Add(l.attnOut.Forward(ctx)))

	ffn := l.output.Forward(l.intermediate.Forward(hidden).Gelu())
	return l.outNorm.Forward(hidden.Add(ffn))
}

// Forward runs the full stack.
func (e *Encoder[B]) Forward(inputs pretrained.EncoderInputs[B]) (*nn.StackOutput[B], error) {
	hidden, batch, seq, err := pretrained.ResolveEmbeddings(inputs.InputIDs, inputs.InputEmbeds, e.tokens)
	if err != nil {
		return nil, err
	}

	hidden = hidden.Add(e.positions.Lookup(nn.PositionIDs(batch, seq, 0, e.backend)))
	hidden = e.embedNorm.Forward(hidden)

	var mask *tensor.Tensor[float32, B]
	if inputs.AttentionMask != nil {
		mask = nn.PaddingMask(inputs.AttentionMask, seq)
	}

	out := &nn.StackOutput[B]{}
	if inputs.CollectHiddenStates {
		out.HiddenStates = append(out.HiddenStates, hidden)
	}
	for _, layer := range e.layers {
		hidden = layer.forward(hidden, mask)
		if inputs.CollectHiddenStates {
			out.HiddenStates = append(out.HiddenStates, hidden)
		}
	}
	out.Hidden = hidden
	return out, nil
}

// Width returns the hidden size.
func (e *Encoder[B]) Width() int { return e.cfg.HiddenSize }

// Config returns the stack config.
func (e *Encoder[B]) Config() *pretrained.Config { return e.cfg }

// NamedParameters returns nil: a student stack is a parameter consumer,
// not a teacher.
func (e *Encoder[B]) NamedParameters() []synthesis.NamedParam[B] { return nil }

// Parameters returns the trainable parameters: embeddings, norms and
// every layer's synthesis parameters.
func (e *Encoder[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	params = append(params, e.tokens.Parameters()...)
	params = append(params, e.positions.Parameters()...)
	params = append(params, e.embedNorm.Parameters()...)
	for _, l := range e.layers {
		params = append(params, l.query.Parameters()...)
		params = append(params, l.key.Parameters()...)
		params = append(params, l.value.Parameters()...)
		params = append(params, l.attnOut.Parameters()...)
		params = append(params, l.attnNorm.Parameters()...)
		params = append(params, l.intermediate.Parameters()...)
		params = append(params, l.output.Parameters()...)
		params = append(params, l.outNorm.Parameters()...)
	}
	return params
}
