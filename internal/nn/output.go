package nn

import "github.com/graft-ml/grafomer/internal/tensor"

// StackOutput is the result of running a transformer stack. Hidden is
// always set; the remaining fields are populated only when the caller
// requested them.
type StackOutput[B tensor.Backend] struct {
	// Hidden is the final hidden state [batch, seq, embedDim].
	Hidden *tensor.Tensor[float32, B]

	// HiddenStates holds the embedding output followed by every
	// layer's output, when collection was requested.
	HiddenStates []*tensor.Tensor[float32, B]

	// Cache is the key/value cache threaded through the stack, when
	// caching was requested.
	Cache *KVCache[B]
}
