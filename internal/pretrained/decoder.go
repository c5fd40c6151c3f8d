package pretrained

import (
	"fmt"

	"github.com/graft-ml/grafomer/internal/nn"
	"github.com/graft-ml/grafomer/internal/synthesis"
	"github.com/graft-ml/grafomer/internal/tensor"
)

// FamilyCausal names the built-in pre-norm causal decoder architecture.
const FamilyCausal = "causal"

// CausalDecoder is a pre-norm causal transformer: token and position
// embeddings, layers with a fused query/key/value projection, a final
// norm, and a language model head tied to the token embedding.
type CausalDecoder[B tensor.Backend] struct {
	cfg *Config

	wte *nn.Embedding[B]
	wpe *nn.Embedding[B]

	layers    []*decoderLayer[B]
	finalNorm *nn.LayerNorm[B]

	backend B
}

type decoderLayer[B tensor.Backend] struct {
	ln1 *nn.LayerNorm[B]

	// cAttn projects to fused [query; key; value] of width 3*hidden.
	cAttn *nn.Linear[B]
	cProj *nn.Linear[B]

	ln2     *nn.LayerNorm[B]
	mlpFc   *nn.Linear[B]
	mlpProj *nn.Linear[B]

	numHeads int
}

// NewCausalDecoder builds the decoder from a validated config.
func NewCausalDecoder[B tensor.Backend](cfg *Config, b B) (*CausalDecoder[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dec := &CausalDecoder[B]{
		cfg:       cfg,
		wte:       nn.NewEmbedding[B](cfg.VocabSize, cfg.HiddenSize, b),
		wpe:       nn.NewEmbedding[B](cfg.MaxPositions, cfg.HiddenSize, b),
		finalNorm: nn.NewLayerNorm(cfg.HiddenSize, cfg.LayerNormEps, b),
		backend:   b,
	}
	for i := 0; i < cfg.NumLayers; i++ {
		dec.layers = append(dec.layers, &decoderLayer[B]{
			ln1:      nn.NewLayerNorm(cfg.HiddenSize, cfg.LayerNormEps, b),
			cAttn:    nn.NewLinear(cfg.HiddenSize, 3*cfg.HiddenSize, true, b),
			cProj:    nn.NewLinear(cfg.HiddenSize, cfg.HiddenSize, true, b),
			ln2:      nn.NewLayerNorm(cfg.HiddenSize, cfg.LayerNormEps, b),
			mlpFc:    nn.NewLinear(cfg.HiddenSize, cfg.IntermediateSize, true, b),
			mlpProj:  nn.NewLinear(cfg.IntermediateSize, cfg.HiddenSize, true, b),
			numHeads: cfg.NumHeads,
		})
	}
	return dec, nil
}

func (l *decoderLayer[B]) forward(hidden, attnMask *tensor.Tensor[float32, B], cache *nn.KVCache[B], layer int, b B) *tensor.Tensor[float32, B] {
	normed := l.ln1.Forward(hidden)

	qkv := l.cAttn.Forward(normed).Chunk(3, 2)
	q := nn.SplitHeads(qkv[0], l.numHeads)
	k := nn.SplitHeads(qkv[1], l.numHeads)
	v := nn.SplitHeads(qkv[2], l.numHeads)

	if cache != nil {
		k, v = cache.Update(layer, k, v)
	}

	causal := nn.CausalMask(q.Shape()[2], k.Shape()[2], b)
	mask := nn.CombineMasks(attnMask, causal)

	ctx := nn.MergeHeads(nn.ScaledDotProductAttention(q, k, v, mask))
	hidden = hidden.Add(l.cProj.Forward(ctx))

	normed = l.ln2.Forward(hidden)
	return hidden.Add(l.mlpProj.Forward(l.mlpFc.Forward(normed).Gelu()))
}

// Forward runs the stack body without the language model head.
func (d *CausalDecoder[B]) Forward(inputs DecoderInputs[B]) (*nn.StackOutput[B], error) {
	hidden, batch, seq, err := ResolveEmbeddings(inputs.InputIDs, inputs.InputEmbeds, d.wte)
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
		hidden = layer.forward(hidden, mask, inputs.Cache, i, d.backend)
		if inputs.CollectHiddenStates {
			out.HiddenStates = append(out.HiddenStates, hidden)
		}
	}
	out.Hidden = d.finalNorm.Forward(hidden)
	return out, nil
}

// LMHead projects hidden states to vocabulary logits using the token
// embedding as tied output weight.
func (d *CausalDecoder[B]) LMHead(hidden *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return nn.Affine(hidden, d.wte.Weight().Data(), nil)
}

// Width returns the hidden size.
func (d *CausalDecoder[B]) Width() int { return d.cfg.HiddenSize }

// Config returns the model config.
func (d *CausalDecoder[B]) Config() *Config { return d.cfg }

// NamedParameters lists every per-layer parameter in layer order using
// the stack's canonical names.
func (d *CausalDecoder[B]) NamedParameters() []synthesis.NamedParam[B] {
	var params []synthesis.NamedParam[B]
	add := func(layer int, local string, p *nn.Parameter[B]) {
		params = append(params, synthesis.NamedParam[B]{
			Name:   fmt.Sprintf("h.%d.%s.%s", layer, local, p.Name()),
			Tensor: p.Data(),
		})
	}
	for i, l := range d.layers {
		for _, p := range l.cAttn.Parameters() {
			add(i, "attn.c_attn", p)
		}
		for _, p := range l.cProj.Parameters() {
			add(i, "attn.c_proj", p)
		}
		for _, p := range l.mlpFc.Parameters() {
			add(i, "mlp.c_fc", p)
		}
		for _, p := range l.mlpProj.Parameters() {
			add(i, "mlp.c_proj", p)
		}
	}
	return params
}
