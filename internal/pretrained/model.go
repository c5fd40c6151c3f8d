package pretrained

import (
	"github.com/graft-ml/grafomer/internal/modelerr"
	"github.com/graft-ml/grafomer/internal/nn"
	"github.com/graft-ml/grafomer/internal/synthesis"
	"github.com/graft-ml/grafomer/internal/tensor"
)

// EncoderInputs carries one forward pass worth of encoder inputs.
// Exactly one of InputIDs and InputEmbeds must be set.
type EncoderInputs[B tensor.Backend] struct {
	InputIDs      *tensor.Tensor[int32, B]
	InputEmbeds   *tensor.Tensor[float32, B]
	AttentionMask *tensor.Tensor[float32, B]

	CollectHiddenStates bool
}

// DecoderInputs carries one forward pass worth of decoder inputs.
// Exactly one of InputIDs and InputEmbeds must be set. Cache, when
// non-nil, enables incremental decoding.
type DecoderInputs[B tensor.Backend] struct {
	InputIDs      *tensor.Tensor[int32, B]
	InputEmbeds   *tensor.Tensor[float32, B]
	AttentionMask *tensor.Tensor[float32, B]
	Cache         *nn.KVCache[B]

	CollectHiddenStates bool
}

// Encoder is a frozen bidirectional stack.
type Encoder[B tensor.Backend] interface {
	Forward(inputs EncoderInputs[B]) (*nn.StackOutput[B], error)

	// Width returns the hidden size.
	Width() int

	Config() *Config

	// NamedParameters returns per-layer parameters in traversal order
	// for weight synthesis.
	NamedParameters() []synthesis.NamedParam[B]
}

// Decoder is a frozen causal stack with a separately callable language
// model head, so callers can modify the final hidden states before
// projecting to the vocabulary.
type Decoder[B tensor.Backend] interface {
	Forward(inputs DecoderInputs[B]) (*nn.StackOutput[B], error)

	// LMHead projects hidden states [batch, seq, width] to vocabulary
	// logits [batch, seq, vocab].
	LMHead(hidden *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	Width() int

	Config() *Config

	NamedParameters() []synthesis.NamedParam[B]
}

// Teacher joins a frozen encoder and decoder into the parameter source
// that synthesized student layers draw from.
type Teacher[B tensor.Backend] struct {
	encoder Encoder[B]
	decoder Decoder[B]
}

// NewTeacher wraps an encoder/decoder pair.
func NewTeacher[B tensor.Backend](encoder Encoder[B], decoder Decoder[B]) *Teacher[B] {
	return &Teacher[B]{encoder: encoder, decoder: decoder}
}

// NamedParameters dispatches on scope: "encoder" or "decoder".
func (t *Teacher[B]) NamedParameters(scope string) []synthesis.NamedParam[B] {
	switch scope {
	case "encoder":
		return t.encoder.NamedParameters()
	case "decoder":
		return t.decoder.NamedParameters()
	default:
		return nil
	}
}

// ResolveEmbeddings applies the input contract shared by both stacks:
// exactly one of ids and embeds must be provided. Returns the resolved
// embeddings plus batch and sequence sizes.
func ResolveEmbeddings[B tensor.Backend](ids *tensor.Tensor[int32, B], embeds *tensor.Tensor[float32, B], table *nn.Embedding[B]) (*tensor.Tensor[float32, B], int, int, error) {
	switch {
	case ids != nil && embeds != nil:
		return nil, 0, 0, modelerr.Inputf("cannot provide both input ids and input embeddings")
	case ids == nil && embeds == nil:
		return nil, 0, 0, modelerr.Inputf("one of input ids or input embeddings is required")
	case ids != nil:
		shape := ids.Shape()
		if len(shape) != 2 {
			return nil, 0, 0, modelerr.Inputf("input ids must be [batch, seq], got shape %v", shape)
		}
		return table.Lookup(ids), shape[0], shape[1], nil
	default:
		shape := embeds.Shape()
		if len(shape) != 3 {
			return nil, 0, 0, modelerr.Inputf("input embeddings must be [batch, seq, width], got shape %v", shape)
		}
		return embeds, shape[0], shape[1], nil
	}
}
