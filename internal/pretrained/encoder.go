package pretrained

import (
	"fmt"

	"github.com/graft-ml/grafomer/internal/nn"
	"github.com/graft-ml/grafomer/internal/synthesis"
	"github.com/graft-ml/grafomer/internal/tensor"
)

// FamilyBidirectional names the built-in post-norm bidirectional
// encoder architecture.
const FamilyBidirectional = "bidirectional"

// BidirectionalEncoder is a post-norm bidirectional transformer:
// token plus learned position embeddings with an embedding norm,
// followed by self-attention layers with separate query, key and value
// projections and a two-stage feed-forward.
type BidirectionalEncoder[B tensor.Backend] struct {
	cfg *Config

	tokens    *nn.Embedding[B]
	positions *nn.Embedding[B]
	embedNorm *nn.LayerNorm[B]
	layers    []*encoderLayer[B]

	backend B
}

type encoderLayer[B tensor.Backend] struct {
	query   *nn.Linear[B]
	key     *nn.Linear[B]
	value   *nn.Linear[B]
	attnOut *nn.Linear[B]

	attnNorm *nn.LayerNorm[B]

	intermediate *nn.Linear[B]
	output       *nn.Linear[B]
	outNorm      *nn.LayerNorm[B]

	numHeads int
}

// NewBidirectionalEncoder builds the encoder from a validated config.
func NewBidirectionalEncoder[B tensor.Backend](cfg *Config, b B) (*BidirectionalEncoder[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	enc := &BidirectionalEncoder[B]{
		cfg:       cfg,
		tokens:    nn.NewEmbedding[B](cfg.VocabSize, cfg.HiddenSize, b),
		positions: nn.NewEmbedding[B](cfg.MaxPositions, cfg.HiddenSize, b),
		embedNorm: nn.NewLayerNorm(cfg.HiddenSize, cfg.LayerNormEps, b),
		backend:   b,
	}
	for i := 0; i < cfg.NumLayers; i++ {
		enc.layers = append(enc.layers, &encoderLayer[B]{
			query:        nn.NewLinear(cfg.HiddenSize, cfg.HiddenSize, true, b),
			key:          nn.NewLinear(cfg.HiddenSize, cfg.HiddenSize, true, b),
			value:        nn.NewLinear(cfg.HiddenSize, cfg.HiddenSize, true, b),
			attnOut:      nn.NewLinear(cfg.HiddenSize, cfg.HiddenSize, true, b),
			attnNorm:     nn.NewLayerNorm(cfg.HiddenSize, cfg.LayerNormEps, b),
			intermediate: nn.NewLinear(cfg.HiddenSize, cfg.IntermediateSize, true, b),
			output:       nn.NewLinear(cfg.IntermediateSize, cfg.HiddenSize, true, b),
			outNorm:      nn.NewLayerNorm(cfg.HiddenSize, cfg.LayerNormEps, b),
			numHeads:     cfg.NumHeads,
		})
	}
	return enc, nil
}

func (l *encoderLayer[B]) forward(hidden, attnMask *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	q := nn.SplitHeads(l.query.Forward(hidden), l.numHeads)
	k := nn.SplitHeads(l.key.Forward(hidden), l.numHeads)
	v := nn.SplitHeads(l.value.Forward(hidden), l.numHeads)

	ctx := nn.MergeHeads(nn.ScaledDotProductAttention(q, k, v, attnMask))
	hidden = l.attnNorm.Forward(hidden.Add(l.attnOut.Forward(ctx)))

	ffn := l.output.Forward(l.intermediate.Forward(hidden).Gelu())
	return l.outNorm.Forward(hidden.Add(ffn))
}

// Forward runs the full stack.
func (e *BidirectionalEncoder[B]) Forward(inputs EncoderInputs[B]) (*nn.StackOutput[B], error) {
	hidden, batch, seq, err := ResolveEmbeddings(inputs.InputIDs, inputs.InputEmbeds, e.tokens)
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
func (e *BidirectionalEncoder[B]) Width() int { return e.cfg.HiddenSize }

// Config returns the model config.
func (e *BidirectionalEncoder[B]) Config() *Config { return e.cfg }

// NamedParameters lists every per-layer parameter in layer order using
// the stack's canonical names.
func (e *BidirectionalEncoder[B]) NamedParameters() []synthesis.NamedParam[B] {
	var params []synthesis.NamedParam[B]
	add := func(layer int, local string, p *nn.Parameter[B]) {
		params = append(params, synthesis.NamedParam[B]{
			Name:   fmt.Sprintf("layer.%d.%s.%s", layer, local, p.Name()),
			Tensor: p.Data(),
		})
	}
	for i, l := range e.layers {
		for _, p := range l.query.Parameters() {
			add(i, "attention.self.query", p)
		}
		for _, p := range l.key.Parameters() {
			add(i, "attention.self.key", p)
		}
		for _, p := range l.value.Parameters() {
			add(i, "attention.self.value", p)
		}
		for _, p := range l.attnOut.Parameters() {
			add(i, "attention.output.dense", p)
		}
		for _, p := range l.intermediate.Parameters() {
			add(i, "intermediate.dense", p)
		}
		for _, p := range l.output.Parameters() {
			add(i, "output.dense", p)
		}
	}
	return params
}
