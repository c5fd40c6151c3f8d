package graft

import (
	"k8s.io/klog/v2"

	"github.com/graft-ml/grafomer/internal/modelerr"
	"github.com/graft-ml/grafomer/internal/nn"
	"github.com/graft-ml/grafomer/internal/pretrained"
	"github.com/graft-ml/grafomer/internal/tensor"
)

// ModelConfig configures the top-level composition.
type ModelConfig struct {
	// DecoderStartTokenID seeds the decoder input during generation.
	DecoderStartTokenID int

	Bridge BridgeConfig
}

// GrafomerModel is a sequence-to-sequence model grafting a frozen
// pretrained encoder onto a frozen pretrained decoder through a
// trainable bridge. The decoder runs body-only; the bridge correction
// is added to its hidden state before the original language model head.
type GrafomerModel[B tensor.Backend] struct {
	encoder pretrained.Encoder[B]
	decoder pretrained.Decoder[B]
	bridge  *GraftBridge[B]

	cfg     ModelConfig
	backend B
}

// NewGrafomerModel composes a frozen encoder/decoder pair with a fresh
// bridge. The bridge's outer widths are taken from the two networks.
func NewGrafomerModel[B tensor.Backend](encoder pretrained.Encoder[B], decoder pretrained.Decoder[B], cfg ModelConfig, b B) (*GrafomerModel[B], error) {
	if encoder == nil || decoder == nil {
		return nil, modelerr.Configf("grafomer requires both an encoder and a decoder")
	}
	cfg.Bridge.EncoderWidth = encoder.Width()
	cfg.Bridge.DecoderWidth = decoder.Width()

	bridge, err := NewGraftBridge(cfg.Bridge, b)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("grafomer: bridge width=%d encoder width=%d decoder width=%d",
		cfg.Bridge.Width, cfg.Bridge.EncoderWidth, cfg.Bridge.DecoderWidth)
	return &GrafomerModel[B]{
		encoder: encoder,
		decoder: decoder,
		bridge:  bridge,
		cfg:     cfg,
		backend: b,
	}, nil
}

// ForwardInputs carries one forward pass worth of model inputs.
type ForwardInputs[B tensor.Backend] struct {
	// Source side. Exactly one of InputIDs and InputEmbeds must be set
	// unless EncoderOut carries a precomputed encoder pass.
	InputIDs      *tensor.Tensor[int32, B]
	InputEmbeds   *tensor.Tensor[float32, B]
	AttentionMask *tensor.Tensor[float32, B]

	// Target side. When both DecoderInputIDs and DecoderInputEmbeds
	// are nil, the source ids are decoded autoregressively instead.
	DecoderInputIDs      *tensor.Tensor[int32, B]
	DecoderInputEmbeds   *tensor.Tensor[float32, B]
	DecoderAttentionMask *tensor.Tensor[float32, B]

	// EncoderOut reuses a previous encoder pass across generation
	// steps.
	EncoderOut *nn.StackOutput[B]

	// Cache enables incremental decoding.
	Cache *nn.KVCache[B]
}

// ForwardOutput is the result of one model pass.
type ForwardOutput[B tensor.Backend] struct {
	// Logits is [batch, tgtLen, vocab].
	Logits *tensor.Tensor[float32, B]

	// EncoderOut is the encoder pass used, for reuse by the caller.
	EncoderOut *nn.StackOutput[B]

	// DecoderHidden is the combined hidden state fed to the head.
	DecoderHidden *tensor.Tensor[float32, B]

	// Cache is the decoder cache threaded through the pass.
	Cache *nn.KVCache[B]
}

// Forward encodes the source, decodes the target through the frozen
// decoder body, applies the bridge correction residually and projects
// through the decoder's original head.
func (m *GrafomerModel[B]) Forward(inputs ForwardInputs[B]) (*ForwardOutput[B], error) {
	encOut := inputs.EncoderOut
	if encOut == nil {
		var err error
		encOut, err = m.encoder.Forward(pretrained.EncoderInputs[B]{
			InputIDs:      inputs.InputIDs,
			InputEmbeds:   inputs.InputEmbeds,
			AttentionMask: inputs.AttentionMask,
		})
		if err != nil {
			return nil, err
		}
	}

	decIDs := inputs.DecoderInputIDs
	decEmbeds := inputs.DecoderInputEmbeds
	if decIDs == nil && decEmbeds == nil {
		// Autoregressive evaluation over the source sequence itself.
		decIDs = inputs.InputIDs
		if decIDs == nil {
			return nil, modelerr.Inputf("decoder inputs are required when the source is given as embeddings")
		}
	}

	decOut, err := m.decoder.Forward(pretrained.DecoderInputs[B]{
		InputIDs:      decIDs,
		InputEmbeds:   decEmbeds,
		AttentionMask: inputs.DecoderAttentionMask,
		Cache:         inputs.Cache,
	})
	if err != nil {
		return nil, err
	}

	tgtLen := decOut.Hidden.Shape()[1]
	srcLen := encOut.Hidden.Shape()[1]

	var encoderMask, crossMask, decoderMask *tensor.Tensor[float32, B]
	if inputs.AttentionMask != nil {
		encoderMask = nn.PaddingMask(inputs.AttentionMask, srcLen)
		crossMask = nn.PaddingMask(inputs.AttentionMask, tgtLen)
	}
	if inputs.DecoderAttentionMask != nil {
		decoderMask = nn.PaddingMask(inputs.DecoderAttentionMask, tgtLen)
	}

	correction := m.bridge.Forward(encOut.Hidden, encoderMask, decOut.Hidden, decoderMask, crossMask)
	combined := decOut.Hidden.Add(correction)

	return &ForwardOutput[B]{
		Logits:        m.decoder.LMHead(combined),
		EncoderOut:    encOut,
		DecoderHidden: combined,
		Cache:         decOut.Cache,
	}, nil
}

// PrepareInputsForGeneration builds the inputs for the next incremental
// decoding step. Once the cache holds previous positions, only the last
// generated token is fed back; earlier tokens are already reflected in
// the cached state.
func (m *GrafomerModel[B]) PrepareInputsForGeneration(decoderIDs *tensor.Tensor[int32, B], attentionMask *tensor.Tensor[float32, B], encOut *nn.StackOutput[B], cache *nn.KVCache[B]) ForwardInputs[B] {
	if cache != nil && cache.SeqLen() > 0 {
		seq := decoderIDs.Shape()[1]
		decoderIDs = decoderIDs.Narrow(1, seq-1, 1)
	}
	return ForwardInputs[B]{
		DecoderInputIDs: decoderIDs,
		AttentionMask:   attentionMask,
		EncoderOut:      encOut,
		Cache:           cache,
	}
}

// Encoder returns the frozen encoder.
func (m *GrafomerModel[B]) Encoder() pretrained.Encoder[B] { return m.encoder }

// Decoder returns the frozen decoder.
func (m *GrafomerModel[B]) Decoder() pretrained.Decoder[B] { return m.decoder }

// Bridge returns the trainable bridge.
func (m *GrafomerModel[B]) Bridge() *GraftBridge[B] { return m.bridge }

// DecoderStartTokenID returns the id seeding generation.
func (m *GrafomerModel[B]) DecoderStartTokenID() int { return m.cfg.DecoderStartTokenID }

// Parameters returns the trainable parameters: the bridge's. The
// pretrained halves are frozen and contribute none.
func (m *GrafomerModel[B]) Parameters() []*nn.Parameter[B] {
	return m.bridge.Parameters()
}
