package student

import (
	"github.com/graft-ml/grafomer/internal/nn"
	"github.com/graft-ml/grafomer/internal/pretrained"
	"github.com/graft-ml/grafomer/internal/synthesis"
	"github.com/graft-ml/grafomer/internal/tensor"
)

// Decoder is a pre-norm causal stack mirroring the structure of the
// built-in pretrained decoder, with the fused attention and
// feed-forward projections synthesized from the teacher's decoder
// scope.
type Decoder[B tensor.Backend] struct {
	cfg *pretrained.Config

	wte *nn.Embedding[B]
	wpe *nn.Embedding[B]

	layers    []*studentDecoderLayer[B]
	finalNorm *nn.LayerNorm[B]

	// causalBias is a fixed additive lower-triangular mask sized
	// [1, 1, MaxPositions, MaxPositions], sliced per call to the
	// current query/key window.
	causalBias *tensor.Tensor[float32, B]

	backend B
}

type studentDecoderLayer[B tensor.Backend] struct {
	ln1 *nn.LayerNorm[B]

	cAttn *synthesis.SynthesizedLinear[B]
	cProj *synthesis.SynthesizedLinear[B]

	ln2     *nn.LayerNorm[B]
	mlpFc   *synthesis.SynthesizedLinear[B]
	mlpProj *synthesis.SynthesizedLinear[B]

	numHeads int
}

// NewDecoder builds a student decoder with cfg.NumLayers layers, each
// drawing from its own contiguous slice of the teacher's decoder
// layers.
func NewDecoder[B tensor.Backend](ctx *synthesis.TeacherContext[B], cfg *pretrained.Config, b B) (*Decoder[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dec := &Decoder[B]{
		cfg:        cfg,
		wte:        nn.NewEmbedding[B](cfg.VocabSize, cfg.HiddenSize, b),
		wpe:        nn.NewEmbedding[B](cfg.MaxPositions, cfg.HiddenSize, b),
		finalNorm:  nn.NewLayerNorm(cfg.HiddenSize, cfg.LayerNormEps, b),
		causalBias: nn.CausalMask(cfg.MaxPositions, cfg.MaxPositions, b),
		backend:    b,
	}
	for i := 0; i < cfg.NumLayers; i++ {
		layer, err := newStudentDecoderLayer(ctx, cfg, i, b)
		if err != nil {
			return nil, err
		}
		dec.layers = append(dec.layers, layer)
	}
	return dec, nil
}

func newStudentDecoderLayer[B tensor.Backend](ctx *synthesis.TeacherContext[B], cfg *pretrained.Config, layer int, b B) (*studentDecoderLayer[B], error) {
	n := cfg.NumLayers
	h := cfg.HiddenSize

	cAttn, err := synthesis.NewSynthesizedLinear(ctx, "decoder.attn.c_attn", layer, n, h, 3*h, b)
	if err != nil {
		return nil, err
	}
	cProj, err := synthesis.NewSynthesizedLinear(ctx, "decoder.attn.c_proj", layer, n, h, h, b)
	if err != nil {
		return nil, err
	}
	mlpFc, err := synthesis.NewSynthesizedLinear(ctx, "decoder.mlp.c_fc", layer, n, h, cfg.IntermediateSize, b)
	if err != nil {
		return nil, err
	}
	mlpProj, err := synthesis.NewSynthesizedLinear(ctx, "decoder.mlp.c_proj", layer, n, cfg.IntermediateSize, h, b)
	if err != nil {
		return nil, err
	}

	return &studentDecoderLayer[B]{
		ln1:      nn.NewLayerNorm(h, cfg.LayerNormEps, b),
		cAttn:    cAttn,
		cProj:    cProj,
		ln2:      nn.NewLayerNorm(h, cfg.LayerNormEps, b),
		mlpFc:    mlpFc,
		mlpProj:  mlpProj,
		numHeads: cfg.NumHeads,
	}, nil
}

// slicedCausal returns the causal bias window for the current query and
// key lengths.
func (d *Decoder[B]) slicedCausal(queryLen, keyLen int) *tensor.Tensor[float32, B] {
	return d.causalBias.Narrow(2, keyLen-queryLen, queryLen).Narrow(3, 0, keyLen)
}

func (l *studentDecoderLayer[B]) forward(d *Decoder[B], hidden, attnMask *tensor.Tensor[float32, B], cache *nn.KVCache[B], layer int) *tensor.Tensor[float32, B] {
	normed := l.ln1.Forward(hidden)

	qkv := l.cAttn.Forward(normed).Chunk(3, 2)
	q := nn.SplitHeads(qkv[0], l.numHeads)
	k := nn.SplitHeads(qkv[1], l.numHeads)
	v := nn.SplitHeads(qkv[2], l.numHeads)

	if cache != nil {
		k, v = cache.Update(layer, k, v)
	}

	causal := d.slicedCausal(q.Shape()[2], k.Shape()[2])
	mask := nn.CombineMasks(attnMask, causal)

	ctx := nn.MergeHeads(nn.ScaledDotProductAttention(q, k, v, mask))
	hidden = hidden.Add(l.cProj.Forward(ctx))

	normed = l.ln2.Forward(hidden)
	return hidden.Add(l.mlpProj.Forward(l.mlpFc.Forward(normed).Gelu()))
}

// Forward runs the stack body without the language model head.
func (d *Decoder[B]) Forward(inputs pretrained.DecoderInputs[B]) (*nn.StackOutput[B], error) {
	hidden, batch, seq, err := pretrained.ResolveEmbeddings(inputs.InputIDs, inputs.InputEmbeds, d.wte)
	if err != nil {
		return nil, err
	}

	offset := 0
	if inputs.Cache != nil {
		offset = inputs.Cache.SeqLen()
	}
	hidden = hidden.Add(d.wpe.Lookup(nn.PositionIDs(batch, seq, offset, d.backend)))

	var mask *tensor.Tensor[float32, B]
	if inputs.AttentionMask != nil {
		mask = nn.PaddingMask(inputs.AttentionMask, seq)
	}

	out := &nn.StackOutput[B]{Cache: inputs.Cache}
	if inputs.CollectHiddenStates {
		out.HiddenStates = append(out.HiddenStates, hidden)
	}
	for i, layer := range d.layers {
		hidden = layer.forward(d, hidden, mask, inputs.Cache, i)
		if inputs.CollectHiddenStates {
			out.HiddenStates = append(out.HiddenStates, hidden)
		}
	}
	out.Hidden = d.finalNorm.Forward(hidden)
	return out, nil
}

// LMHead projects hidden states to vocabulary logits using the token
// embedding as tied output weight.
func (d *Decoder[B]) LMHead(hidden *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return nn.Affine(hidden, d.wte.Weight().Data(), nil)
}

// PrepareInputsForGeneration trims decoder ids to the last token once
// the cache holds previous positions.
func (d *Decoder[B]) PrepareInputsForGeneration(ids *tensor.Tensor[int32, B], cache *nn.KVCache[B]) *tensor.Tensor[int32, B] {
	if cache != nil && cache.SeqLen() > 0 {
		seq := ids.Shape()[1]
		return ids.Narrow(1, seq-1, 1)
	}
	return ids
}

// Width returns the hidden size.
func (d *Decoder[B]) Width() int { return d.cfg.HiddenSize }

// Config returns the stack config.
func (d *Decoder[B]) Config() *pretrained.Config { return d.cfg }

// NamedParameters returns nil: a student stack is a parameter consumer,
// not a teacher.
func (d *Decoder[B]) NamedParameters() []synthesis.NamedParam[B] { return nil }

// Parameters returns the trainable parameters: embeddings, norms and
// every layer's synthesis parameters.
func (d *Decoder[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	params = append(params, d.wte.Parameters()...)
	params = append(params, d.wpe.Parameters()...)
	for _, l := range d.layers {
		params = append(params, l.ln1.Parameters()...)
		params = append(params, l.cAttn.Parameters()...)
		params = append(params, l.cProj.Parameters()...)
		params = append(params, l.ln2.Parameters()...)
		params = append(params, l.mlpFc.Parameters()...)
		params = append(params, l.mlpProj.Parameters()...)
	}
	params = append(params, d.finalNorm.Parameters()...)
	return params
}
